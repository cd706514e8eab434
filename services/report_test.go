package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
	"github.com/jenkinph/procedure-passport/store/storetest"
)

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixture is a seeded sheet store with the services over it.
type fixture struct {
	store   store.Store
	catalog *CatalogService
	records *RecordService
	reports *ReportService
}

func newFixture(t *testing.T, n Notifier) fixture {
	t.Helper()
	st := storetest.Seeded(t, storetest.Sheet(t))
	log := storetest.Logger(t)
	cfg := config.Config{AdminEmails: []string{"admin@x.com"}}
	return fixture{
		store:   st,
		catalog: NewCatalogService(st, cfg, log),
		records: NewRecordService(st, n, log),
		reports: NewReportService(st, log),
	}
}

func (f fixture) save(t *testing.T, nc models.NewCase) string {
	t.Helper()
	id, err := f.records.SaveCase(context.Background(), nc)
	require.NoError(t, err)
	require.Len(t, id, 12)
	return id
}

func lapapp(email, day string, r models.Rating, cx models.Complexity, o models.OScore) models.NewCase {
	ratings := map[string]models.Rating{}
	for i := 1; i <= 4; i++ {
		ratings[models.StepID("LAPAPP", i)] = r
	}
	return models.NewCase{
		ResidentEmail:      email,
		Date:               date(day),
		SpecialtyID:        "GS",
		ProcedureID:        "LAPAPP",
		EvaluatorID:        "A_GS_SMITH",
		RatingsByStep:      ratings,
		CaseComplexity:     cx,
		OverallPerformance: o,
	}
}

func TestCumulativeAllAuto(t *testing.T) {
	f := newFixture(t, nil)
	id := f.save(t, lapapp("a@x.com", "2024-05-01", models.RatingAuto, models.ComplexityComplex, models.OScoreAuto))

	in, err := f.reports.Load(context.Background(), "a@x.com")
	require.NoError(t, err)
	grid := BuildCumulative(in, "LAPAPP")

	require.Len(t, grid.Rows, 1)
	assert.Equal(t, "Laparoscopic Appendectomy", grid.ProcedureName)
	assert.Equal(t, 4, grid.StepColumns())
	row := grid.Rows[0]
	assert.Equal(t, "2024-05-01", row[0].Value)
	assert.Equal(t, "Dr. Alex Smith", row[1].Value)
	assert.Equal(t, id, row[2].Value)

	green := &Fill{Background: "008000", Font: "FFFFFF"}
	for _, cell := range row[5:] {
		assert.Equal(t, "Auto", cell.Value)
		assert.Equal(t, green, cell.Fill)
	}
	// Top of the complexity ramp, and O-Score 5 on the rating ramp.
	assert.Equal(t, ComplexityFill(models.ComplexityComplex), row[3].Fill)
	assert.Equal(t, "F8CBAD", row[3].Fill.Background)
	assert.Equal(t, green, row[4].Fill)
}

func TestCumulativeStepOrderAndMissingCells(t *testing.T) {
	cat := models.Catalog{
		Procedures: []models.Procedure{{ID: "P", Name: "Proc", SpecialtyID: "S"}},
		Steps: []models.Step{
			{ID: "S_P_03", ProcedureID: "P", Order: 3, Name: "third"},
			{ID: "S_P_01", ProcedureID: "P", Order: 1, Name: "first"},
			{ID: "S_P_02", ProcedureID: "P", Order: 2, Name: "second"},
		},
	}
	in := ReportInput{
		Catalog: cat,
		Cases: []models.Case{
			{CaseID: "late", ProcedureID: "P", Date: date("2024-02-01"), EvaluatorID: "A_GONE"},
			{CaseID: "early", ProcedureID: "P", Date: date("2024-01-01")},
			{CaseID: "other", ProcedureID: "Q", Date: date("2024-01-01")},
		},
		Scores: []models.Score{
			{CaseID: "early", StepID: "S_P_03", Rating: models.RatingSteer},
			{CaseID: "early", StepID: "S_P_01", Rating: models.RatingNotAssessed},
			{CaseID: "orphan", StepID: "S_P_01", Rating: models.RatingAuto},
		},
	}
	grid := BuildCumulative(in, "P")

	want := []string{"Date", "Evaluator", "Case ID", "Complexity", "Overall Performance", "first", "second", "third"}
	if diff := cmp.Diff(want, grid.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	require.Len(t, grid.Rows, 2)
	early, late := grid.Rows[0], grid.Rows[1]
	assert.Equal(t, "early", early[2].Value)
	assert.Equal(t, Cell{Value: "Not Assessed"}, early[5])
	assert.Equal(t, Cell{}, early[6])
	assert.Equal(t, Cell{Value: "Steer", Fill: &Fill{Background: "FFA500"}}, early[7])
	assert.Equal(t, "", late[1].Value, "unknown evaluator is blank")
	for _, c := range late[5:] {
		assert.Equal(t, Cell{}, c)
	}
}

func TestCommentsLatestFirst(t *testing.T) {
	f := newFixture(t, nil)
	first := lapapp("a@x.com", "2024-01-10", models.RatingSteer, models.ComplexityModerate, models.OScoreSteer)
	first.Notes = "needs work"
	second := lapapp("a@x.com", "2024-03-10", models.RatingAuto, models.ComplexityStraightForward, models.OScoreAuto)
	second.Notes = "great"
	f.save(t, first)
	f.save(t, second)

	in, err := f.reports.Load(context.Background(), "a@x.com")
	require.NoError(t, err)
	rows := BuildComments(in)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-10", rows[0].Date)
	assert.Equal(t, "great", rows[0].Notes)
	assert.Equal(t, "2024-01-10", rows[1].Date)
	assert.Equal(t, "Laparoscopic Appendectomy", rows[1].Procedure)
	assert.Equal(t, "Dr. Alex Smith", rows[1].Evaluator)
	assert.Equal(t, "FFF2CC", rows[1].Complexity.Fill.Background)
}

func TestProceduresWithScores(t *testing.T) {
	f := newFixture(t, nil)
	f.save(t, lapapp("a@x.com", "2024-01-10", models.RatingSteer, models.ComplexityModerate, models.OScoreSteer))
	_, err := f.records.SaveCase(context.Background(), models.NewCase{
		ResidentEmail: "a@x.com", Date: date("2024-01-11"), SpecialtyID: "URO", ProcedureID: "NEPH",
		EvaluatorID: "A_URO_LEE", CaseComplexity: models.ComplexityModerate, OverallPerformance: models.OScoreSteer,
	})
	require.NoError(t, err)

	in, err := f.reports.Load(context.Background(), "a@x.com")
	require.NoError(t, err)
	procs := ProceduresWithScores(in)
	require.Len(t, procs, 1)
	assert.Equal(t, "LAPAPP", procs[0].ID)
}

func TestCaseSummary(t *testing.T) {
	f := newFixture(t, nil)
	nc := lapapp("a@x.com", "2024-01-10", models.RatingPrompt, models.ComplexityModerate, models.OScorePrompt)
	delete(nc.RatingsByStep, "S_LAPAPP_02")
	id := f.save(t, nc)

	in, err := f.reports.Load(context.Background(), "a@x.com")
	require.NoError(t, err)
	sum, ok := BuildCaseSummary(in, id)
	require.True(t, ok)
	require.Len(t, sum.Steps, 4)
	assert.Equal(t, "Establish pneumoperitoneum", sum.Steps[0].Name)
	assert.Equal(t, "Prompt", sum.Steps[0].Rating.Value)
	assert.Equal(t, Cell{}, sum.Steps[1].Rating)
	assert.Equal(t, "FFD700", sum.Overall.Fill.Background)

	_, ok = BuildCaseSummary(in, "missing")
	assert.False(t, ok)
}

func TestExportCumulativeFills(t *testing.T) {
	grid := CumulativeGrid{
		Columns: append(append([]string{}, cumulativeMeta...), "step one", "step two"),
		Rows: [][]Cell{{
			{Value: "2024-01-01"}, {Value: "Dr. A"}, {Value: "abc"},
			complexityCell(models.ComplexityComplex), oscoreCell(models.OScoreNotYet),
			{Value: "Auto", Fill: RatingFill(models.RatingAuto)}, {},
		}},
	}
	b, err := ExportCumulative(grid)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{CumulativeSheet}, f.GetSheetList())

	rows, err := f.GetRows(CumulativeSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, grid.Columns, rows[0])
	assert.Equal(t, "Auto", rows[1][5])

	assertFill(t, f, "F2", "008000")
	assertFill(t, f, "D2", "F8CBAD")
	assertFill(t, f, "E2", "FF0000")
}

func assertFill(t *testing.T, f *excelize.File, cell, hex string) {
	t.Helper()
	id, err := f.GetCellStyle(CumulativeSheet, cell)
	require.NoError(t, err)
	st, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotEmpty(t, st.Fill.Color, cell)
	assert.True(t, strings.HasSuffix(strings.ToUpper(st.Fill.Color[0]), hex), "%s fill %v", cell, st.Fill.Color)
}

func TestExportComments(t *testing.T) {
	b, err := ExportComments([]CommentRow{{Date: "2024-01-01", Procedure: "P", Evaluator: "E", Notes: "n",
		Complexity: complexityCell(models.ComplexityModerate), Overall: oscoreCell(models.OScoreBackup)}})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(CommentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, commentColumns, rows[0])
	assert.Equal(t, []string{"2024-01-01", "P", "E", "Moderate", "4 - Backup", "n"}, rows[1])
}

func TestCumulativeFileName(t *testing.T) {
	assert.Equal(t, "a@x.com_LAPAPP_cumulative.xlsx", CumulativeFileName("a@x.com", "LAPAPP"))
	assert.Equal(t, "a_b@x.com_P_Q_cumulative.xlsx", CumulativeFileName("a b@x.com", "P/Q"))
}
