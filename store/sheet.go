package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
)

// Column order of every collection as written to a sheet.
var schemas = map[string][]string{
	Specialties: {"specialty_id", "specialty_name"},
	Procedures:  {"procedure_id", "procedure_name", "specialty_id"},
	Steps:       {"step_id", "procedure_id", "step_order", "step_name"},
	Evaluators:  {"attending_id", "attending_name", "specialty_id", "email"},
	Residents:   {"email", "name", "specialty_id", "created_at"},
	Cases: {
		"case_id", "resident_email", "date", "specialty_id", "procedure_id",
		"attending_id", "notes", "case_complexity", "overall_performance",
	},
	Scores: {"case_id", "step_id", "rating", "rating_num", "case_complexity", "overall_performance"},
}

const defaultMaxAttempts = 5

type sheetStore struct {
	table       Table
	log         *logger.Logger
	maxAttempts int
}

type SheetOption func(*sheetStore)

// WithMaxAttempts bounds how many times a write re-reads and retries after
// losing a revision race.
func WithMaxAttempts(n int) SheetOption {
	return func(s *sheetStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewSheetStore returns a Store over a whole-document Table.
func NewSheetStore(table Table, baseLog *logger.Logger, opts ...SheetOption) Store {
	s := &sheetStore{
		table:       table,
		log:         baseLog.With("store", "SheetStore"),
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// mutate runs read -> fn -> write against the revision that was read. fn
// returns the new rows and whether anything changed; it may run more than
// once.
func (s *sheetStore) mutate(ctx context.Context, name string, fn func(rows []Row) ([]Row, bool, error)) (bool, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sheet, err := s.table.Read(ctx, name)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", name, err)
		}
		rows, changed, err := fn(sheet.Rows)
		if err != nil || !changed {
			return false, err
		}
		_, err = s.table.Write(ctx, name, Sheet{Header: schemas[name], Rows: rows}, sheet.Revision)
		if errors.Is(err, ErrConflict) {
			s.log.Warn("revision conflict, retrying", "collection", name, "attempt", attempt)
			continue
		}
		if err != nil {
			return false, fmt.Errorf("write %s: %w", name, err)
		}
		return true, nil
	}
	return false, fmt.Errorf("%s: %w", name, ErrConflict)
}

func (s *sheetStore) rows(ctx context.Context, name string) ([]Row, error) {
	sheet, err := s.table.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return sheet.Rows, nil
}

// appendIfAbsent appends row unless a row with the same value in keyCol exists.
func (s *sheetStore) appendIfAbsent(ctx context.Context, name, keyCol string, row Row) (bool, error) {
	return s.mutate(ctx, name, func(rows []Row) ([]Row, bool, error) {
		for _, r := range rows {
			if r[keyCol] == row[keyCol] {
				return nil, false, nil
			}
		}
		return append(rows, row), true, nil
	})
}

// removeWhere drops every row that matches. ErrNotFound when
// nothing matched.
func (s *sheetStore) removeWhere(ctx context.Context, name string, match func(Row) bool) error {
	changed, err := s.mutate(ctx, name, func(rows []Row) ([]Row, bool, error) {
		out := rows[:0:0]
		for _, r := range rows {
			if !match(r) {
				out = append(out, r)
			}
		}
		return out, len(out) != len(rows), nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotFound
	}
	return nil
}

func (s *sheetStore) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	var c models.Catalog
	rows, err := s.rows(ctx, Specialties)
	if err != nil {
		return c, err
	}
	for _, r := range rows {
		c.Specialties = append(c.Specialties, models.Specialty{ID: r["specialty_id"], Name: r["specialty_name"]})
	}
	if rows, err = s.rows(ctx, Procedures); err != nil {
		return c, err
	}
	for _, r := range rows {
		c.Procedures = append(c.Procedures, procedureFromRow(r))
	}
	if rows, err = s.rows(ctx, Steps); err != nil {
		return c, err
	}
	for _, r := range rows {
		c.Steps = append(c.Steps, stepFromRow(r))
	}
	sort.SliceStable(c.Steps, func(i, j int) bool {
		if c.Steps[i].ProcedureID != c.Steps[j].ProcedureID {
			return c.Steps[i].ProcedureID < c.Steps[j].ProcedureID
		}
		return c.Steps[i].Order < c.Steps[j].Order
	})
	if rows, err = s.rows(ctx, Evaluators); err != nil {
		return c, err
	}
	for _, r := range rows {
		c.Evaluators = append(c.Evaluators, evaluatorFromRow(r))
	}
	return c, nil
}

func (s *sheetStore) EnsureSpecialty(ctx context.Context, sp models.Specialty) (bool, error) {
	return s.appendIfAbsent(ctx, Specialties, "specialty_id", Row{
		"specialty_id":   sp.ID,
		"specialty_name": sp.Name,
	})
}

func (s *sheetStore) EnsureResident(ctx context.Context, r models.Resident) (bool, error) {
	created, err := s.appendIfAbsent(ctx, Residents, "email", residentToRow(r))
	if created {
		s.log.Info("resident created", "email", r.Email, "specialty_id", r.SpecialtyID)
	}
	return created, err
}

func (s *sheetStore) EnsureEvaluator(ctx context.Context, e models.Evaluator) (bool, error) {
	return s.appendIfAbsent(ctx, Evaluators, "attending_id", Row{
		"attending_id":   e.ID,
		"attending_name": e.Name,
		"specialty_id":   e.SpecialtyID,
		"email":          e.Email,
	})
}

func (s *sheetStore) EnsureProcedure(ctx context.Context, p models.Procedure, steps []models.Step) (bool, error) {
	procCreated, err := s.appendIfAbsent(ctx, Procedures, "procedure_id", Row{
		"procedure_id":   p.ID,
		"procedure_name": p.Name,
		"specialty_id":   p.SpecialtyID,
	})
	if err != nil {
		return false, err
	}
	if len(steps) == 0 {
		return procCreated, nil
	}
	stepsCreated, err := s.mutate(ctx, Steps, func(rows []Row) ([]Row, bool, error) {
		for _, r := range rows {
			if r["procedure_id"] == p.ID {
				return nil, false, nil
			}
		}
		for _, st := range steps {
			rows = append(rows, Row{
				"step_id":      st.ID,
				"procedure_id": st.ProcedureID,
				"step_order":   strconv.Itoa(st.Order),
				"step_name":    st.Name,
			})
		}
		return rows, true, nil
	})
	if err != nil {
		return procCreated, err
	}
	return procCreated || stepsCreated, nil
}

func (s *sheetStore) ListResidents(ctx context.Context) ([]models.Resident, error) {
	rows, err := s.rows(ctx, Residents)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resident, 0, len(rows))
	for _, r := range rows {
		out = append(out, residentFromRow(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *sheetStore) FindResident(ctx context.Context, email string) (models.Resident, error) {
	rows, err := s.rows(ctx, Residents)
	if err != nil {
		return models.Resident{}, err
	}
	for _, r := range rows {
		if r["email"] == email {
			return residentFromRow(r), nil
		}
	}
	return models.Resident{}, ErrNotFound
}

func (s *sheetStore) DeleteResident(ctx context.Context, email string) error {
	return s.removeWhere(ctx, Residents, func(r Row) bool { return r["email"] == email })
}

func (s *sheetStore) DeleteEvaluator(ctx context.Context, id string) error {
	return s.removeWhere(ctx, Evaluators, func(r Row) bool { return r["attending_id"] == id })
}

func (s *sheetStore) DeleteProcedure(ctx context.Context, id string) error {
	if err := s.removeWhere(ctx, Steps, func(r Row) bool { return r["procedure_id"] == id }); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.removeWhere(ctx, Procedures, func(r Row) bool { return r["procedure_id"] == id })
}

// AppendCase appends the case, then its scores. If the scores cannot be
// written the case row is removed again.
func (s *sheetStore) AppendCase(ctx context.Context, c models.Case, scores []models.Score) error {
	if _, err := s.mutate(ctx, Cases, func(rows []Row) ([]Row, bool, error) {
		return append(rows, caseToRow(c)), true, nil
	}); err != nil {
		return fmt.Errorf("append case %s: %w", c.CaseID, err)
	}
	if len(scores) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, Scores, func(rows []Row) ([]Row, bool, error) {
		for _, sc := range scores {
			rows = append(rows, scoreToRow(sc))
		}
		return rows, true, nil
	})
	if err == nil {
		return nil
	}
	if rbErr := s.removeWhere(context.WithoutCancel(ctx), Cases, func(r Row) bool { return r["case_id"] == c.CaseID }); rbErr != nil {
		s.log.Error("case left without scores", "case_id", c.CaseID, "error", rbErr)
	}
	return fmt.Errorf("append scores of %s: %w", c.CaseID, err)
}

func (s *sheetStore) ListCases(ctx context.Context, residentEmail string) ([]models.Case, error) {
	rows, err := s.rows(ctx, Cases)
	if err != nil {
		return nil, err
	}
	var out []models.Case
	for _, r := range rows {
		if r["resident_email"] == residentEmail {
			out = append(out, caseFromRow(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out, nil
}

func (s *sheetStore) ListScores(ctx context.Context, caseIDs []string) ([]models.Score, error) {
	if len(caseIDs) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(caseIDs))
	for _, id := range caseIDs {
		want[id] = true
	}
	rows, err := s.rows(ctx, Scores)
	if err != nil {
		return nil, err
	}
	var out []models.Score
	for _, r := range rows {
		if want[r["case_id"]] {
			out = append(out, scoreFromRow(r))
		}
	}
	return out, nil
}

func procedureFromRow(r Row) models.Procedure {
	return models.Procedure{ID: r["procedure_id"], Name: r["procedure_name"], SpecialtyID: r["specialty_id"]}
}

func stepFromRow(r Row) models.Step {
	order, _ := strconv.Atoi(strings.TrimSpace(r["step_order"]))
	return models.Step{ID: r["step_id"], ProcedureID: r["procedure_id"], Order: order, Name: r["step_name"]}
}

func evaluatorFromRow(r Row) models.Evaluator {
	return models.Evaluator{ID: r["attending_id"], Name: r["attending_name"], SpecialtyID: r["specialty_id"], Email: r["email"]}
}

func residentToRow(r models.Resident) Row {
	return Row{
		"email":        r.Email,
		"name":         r.Name,
		"specialty_id": r.SpecialtyID,
		"created_at":   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func residentFromRow(r Row) models.Resident {
	created, _ := time.Parse(time.RFC3339, r["created_at"])
	return models.Resident{Email: r["email"], Name: r["name"], SpecialtyID: r["specialty_id"], CreatedAt: created}
}

func caseToRow(c models.Case) Row {
	return Row{
		"case_id":             c.CaseID,
		"resident_email":      c.ResidentEmail,
		"date":                c.Date.Format(models.DateLayout),
		"specialty_id":        c.SpecialtyID,
		"procedure_id":        c.ProcedureID,
		"attending_id":        c.EvaluatorID,
		"notes":               c.Notes,
		"case_complexity":     string(c.CaseComplexity),
		"overall_performance": string(c.OverallPerformance),
	}
}

func caseFromRow(r Row) models.Case {
	date, _ := time.Parse(models.DateLayout, r["date"])
	return models.Case{
		CaseID:             r["case_id"],
		ResidentEmail:      r["resident_email"],
		Date:               date,
		SpecialtyID:        r["specialty_id"],
		ProcedureID:        r["procedure_id"],
		EvaluatorID:        r["attending_id"],
		Notes:              r["notes"],
		CaseComplexity:     models.Complexity(r["case_complexity"]),
		OverallPerformance: models.OScore(r["overall_performance"]),
	}
}

func scoreToRow(sc models.Score) Row {
	num := ""
	if sc.RatingNum != nil {
		num = strconv.Itoa(*sc.RatingNum)
	}
	return Row{
		"case_id":             sc.CaseID,
		"step_id":             sc.StepID,
		"rating":              string(sc.Rating),
		"rating_num":          num,
		"case_complexity":     string(sc.CaseComplexity),
		"overall_performance": string(sc.OverallPerformance),
	}
}

func scoreFromRow(r Row) models.Score {
	sc := models.Score{
		CaseID:             r["case_id"],
		StepID:             r["step_id"],
		Rating:             models.Rating(r["rating"]),
		CaseComplexity:     models.Complexity(r["case_complexity"]),
		OverallPerformance: models.OScore(r["overall_performance"]),
	}
	// Older sheets carry float ordinals ("5.0"); unknown labels stay nil.
	if raw := strings.TrimSpace(r["rating_num"]); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			n := int(f)
			sc.RatingNum = &n
		}
	}
	return sc
}
