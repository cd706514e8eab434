package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinph/procedure-passport/database"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
	"github.com/jenkinph/procedure-passport/store/storetest"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSeedIsIdempotent(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := storetest.Seeded(t, open(t))
			before, err := s.LoadCatalog(ctx)
			require.NoError(t, err)

			storetest.Seeded(t, s)
			after, err := s.LoadCatalog(ctx)
			require.NoError(t, err)

			assert.Len(t, after.Specialties, 3)
			assert.Len(t, after.Procedures, 3)
			assert.Len(t, after.Evaluators, 3)
			assert.Equal(t, len(before.Steps), len(after.Steps))
			assert.Len(t, after.StepsFor("HYST"), 14)
		})
	}
}

func TestBootstrapKeepsAdminDeletions(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			log := storetest.Logger(t)
			seed, err := database.LoadCatalogSeed("")
			require.NoError(t, err)

			s := open(t)
			seeded, err := database.Bootstrap(ctx, s, seed, log)
			require.NoError(t, err)
			assert.True(t, seeded)

			require.NoError(t, s.DeleteProcedure(ctx, "LAPAPP"))
			require.NoError(t, s.DeleteEvaluator(ctx, "A_GS_SMITH"))

			seeded, err = database.Bootstrap(ctx, s, seed, log)
			require.NoError(t, err)
			assert.False(t, seeded)

			cat, err := s.LoadCatalog(ctx)
			require.NoError(t, err)
			_, ok := cat.Procedure("LAPAPP")
			assert.False(t, ok)
			assert.Empty(t, cat.StepsFor("LAPAPP"))
			_, ok = cat.Evaluator("A_GS_SMITH")
			assert.False(t, ok)
			assert.Len(t, cat.Procedures, 2)
		})
	}
}

func TestEnsureReportsCreation(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			r := models.Resident{Email: "a@x.com", Name: "A", SpecialtyID: "GS", CreatedAt: time.Now().UTC().Truncate(time.Second)}

			created, err := s.EnsureResident(ctx, r)
			require.NoError(t, err)
			assert.True(t, created)

			r.Name = "renamed"
			created, err = s.EnsureResident(ctx, r)
			require.NoError(t, err)
			assert.False(t, created)

			got, err := s.FindResident(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, "A", got.Name)
			assert.Equal(t, "GS", got.SpecialtyID)

			_, err = s.FindResident(ctx, "nobody@x.com")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestEnsureProcedureKeepsExistingSteps(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			p := models.Procedure{ID: "TURP", Name: "TURP", SpecialtyID: "URO"}

			created, err := s.EnsureProcedure(ctx, p, models.NewSteps("TURP", []string{"a", "b"}))
			require.NoError(t, err)
			assert.True(t, created)

			created, err = s.EnsureProcedure(ctx, p, models.NewSteps("TURP", []string{"x", "y", "z"}))
			require.NoError(t, err)
			assert.False(t, created)

			cat, err := s.LoadCatalog(ctx)
			require.NoError(t, err)
			steps := cat.StepsFor("TURP")
			require.Len(t, steps, 2)
			assert.Equal(t, "S_TURP_01", steps[0].ID)
			assert.Equal(t, "b", steps[1].Name)
		})
	}
}

func TestDeletes(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := storetest.Seeded(t, open(t))

			require.NoError(t, s.DeleteProcedure(ctx, "NEPH"))
			assert.ErrorIs(t, s.DeleteProcedure(ctx, "NEPH"), store.ErrNotFound)
			require.NoError(t, s.DeleteEvaluator(ctx, "A_URO_LEE"))
			assert.ErrorIs(t, s.DeleteEvaluator(ctx, "A_URO_LEE"), store.ErrNotFound)
			assert.ErrorIs(t, s.DeleteResident(ctx, "ghost@x.com"), store.ErrNotFound)

			cat, err := s.LoadCatalog(ctx)
			require.NoError(t, err)
			_, ok := cat.Procedure("NEPH")
			assert.False(t, ok)
			assert.Empty(t, cat.StepsFor("NEPH"))
			assert.Empty(t, cat.EvaluatorsFor("URO"))
		})
	}
}

func TestAppendCaseRoundTrip(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			nc := models.NewCase{
				ResidentEmail: "r@x.com",
				Date:          day("2024-03-02"),
				SpecialtyID:   "GS",
				ProcedureID:   "LAPAPP",
				EvaluatorID:   "A_GS_SMITH",
				RatingsByStep: map[string]models.Rating{
					"S_LAPAPP_01": models.RatingAuto,
					"S_LAPAPP_02": models.RatingNotAssessed,
				},
				Notes:              "tidy, with a comma",
				CaseComplexity:     models.ComplexityModerate,
				OverallPerformance: models.OScoreBackup,
			}
			later := models.Case{CaseID: "bbbbbbbbbbbb", ResidentEmail: "r@x.com", Date: day("2024-03-05"), ProcedureID: "LAPAPP"}
			earlier := models.Case{
				CaseID: "aaaaaaaaaaaa", ResidentEmail: nc.ResidentEmail, Date: nc.Date, SpecialtyID: nc.SpecialtyID,
				ProcedureID: nc.ProcedureID, EvaluatorID: nc.EvaluatorID, Notes: nc.Notes,
				CaseComplexity: nc.CaseComplexity, OverallPerformance: nc.OverallPerformance,
			}
			require.NoError(t, s.AppendCase(ctx, later, nil))
			require.NoError(t, s.AppendCase(ctx, earlier, nc.Scores(earlier.CaseID)))
			require.NoError(t, s.AppendCase(ctx, models.Case{CaseID: "cccccccccccc", ResidentEmail: "other@x.com", Date: nc.Date}, nil))

			cases, err := s.ListCases(ctx, "r@x.com")
			require.NoError(t, err)
			require.Len(t, cases, 2)
			assert.Equal(t, "aaaaaaaaaaaa", cases[0].CaseID)
			assert.Equal(t, "tidy, with a comma", cases[0].Notes)
			assert.Equal(t, models.OScoreBackup, cases[0].OverallPerformance)
			assert.Equal(t, "2024-03-02", cases[0].Date.Format(models.DateLayout))

			scores, err := s.ListScores(ctx, []string{"aaaaaaaaaaaa"})
			require.NoError(t, err)
			require.Len(t, scores, 2)
			byStep := map[string]models.Score{}
			for _, sc := range scores {
				byStep[sc.StepID] = sc
			}
			require.NotNil(t, byStep["S_LAPAPP_01"].RatingNum)
			assert.Equal(t, 5, *byStep["S_LAPAPP_01"].RatingNum)
			require.NotNil(t, byStep["S_LAPAPP_02"].RatingNum)
			assert.Equal(t, -1, *byStep["S_LAPAPP_02"].RatingNum)
			assert.Equal(t, models.ComplexityModerate, byStep["S_LAPAPP_01"].CaseComplexity)

			none, err := s.ListScores(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	for name, open := range storetest.Backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			const writers = 8
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("case%08d", i)
					errs <- s.AppendCase(ctx,
						models.Case{CaseID: id, ResidentEmail: "r@x.com", Date: day("2024-01-01")},
						[]models.Score{{CaseID: id, StepID: "S_X_01", Rating: models.RatingAuto}})
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}
			cases, err := s.ListCases(ctx, "r@x.com")
			require.NoError(t, err)
			assert.Len(t, cases, writers)
		})
	}
}
