package services

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
)

// ReportInput is everything the report views are built from.
type ReportInput struct {
	Catalog models.Catalog
	Cases   []models.Case
	Scores  []models.Score
}

// Cell is one rendered value with its optional fill.
type Cell struct {
	Value string `json:"value"`
	Fill  *Fill  `json:"fill,omitempty"`
}

// Metadata columns of the cumulative grid, before the steps.
var cumulativeMeta = []string{"Date", "Evaluator", "Case ID", "Complexity", "Overall Performance"}

// CumulativeGrid is a case-by-step matrix for one resident and procedure.
type CumulativeGrid struct {
	ProcedureID   string   `json:"procedure_id"`
	ProcedureName string   `json:"procedure_name"`
	Columns       []string `json:"columns"`
	Rows          [][]Cell `json:"rows"`
}

// StepColumns is the number of trailing step columns.
func (g CumulativeGrid) StepColumns() int { return len(g.Columns) - len(cumulativeMeta) }

type CommentRow struct {
	CaseID     string `json:"case_id"`
	Date       string `json:"date"`
	Procedure  string `json:"procedure"`
	Evaluator  string `json:"evaluator"`
	Complexity Cell   `json:"complexity"`
	Overall    Cell   `json:"overall"`
	Notes      string `json:"notes"`
}

var commentColumns = []string{"Date", "Procedure", "Evaluator", "Complexity", "Overall Performance", "Notes"}

// StepResult is one row of the case dashboard.
type StepResult struct {
	Order  int    `json:"order"`
	StepID string `json:"step_id"`
	Name   string `json:"name"`
	Rating Cell   `json:"rating"`
}

// CaseSummary is a single case with its steps in catalog order.
type CaseSummary struct {
	Case          models.Case  `json:"case"`
	Date          string       `json:"date"`
	ProcedureName string       `json:"procedure_name"`
	EvaluatorName string       `json:"evaluator_name"`
	Complexity    Cell         `json:"complexity"`
	Overall       Cell         `json:"overall"`
	Steps         []StepResult `json:"steps"`
}

// joinedScores indexes scores by case and step. Scores whose case is not in
// cases are dropped.
func joinedScores(cases []models.Case, scores []models.Score) map[string]map[string]models.Score {
	out := make(map[string]map[string]models.Score, len(cases))
	for _, c := range cases {
		out[c.CaseID] = make(map[string]models.Score)
	}
	for _, sc := range scores {
		if byStep, ok := out[sc.CaseID]; ok {
			byStep[sc.StepID] = sc
		}
	}
	return out
}

func evaluatorName(cat models.Catalog, id string) string {
	if e, ok := cat.Evaluator(id); ok {
		return e.Name
	}
	return ""
}

func formatDate(c models.Case) string {
	if c.Date.IsZero() {
		return ""
	}
	return c.Date.Format(models.DateLayout)
}

func byDateAsc(cases []models.Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		if !cases[i].Date.Equal(cases[j].Date) {
			return cases[i].Date.Before(cases[j].Date)
		}
		return cases[i].CaseID < cases[j].CaseID
	})
}

func ratingCell(sc models.Score, ok bool) Cell {
	if !ok {
		return Cell{}
	}
	return Cell{Value: string(sc.Rating), Fill: RatingFill(sc.Rating)}
}

func complexityCell(c models.Complexity) Cell {
	return Cell{Value: string(c), Fill: ComplexityFill(c)}
}

func oscoreCell(o models.OScore) Cell {
	return Cell{Value: string(o), Fill: OScoreFill(o)}
}

// BuildCumulative pivots the cases of procedureID into rows ordered by date,
// with one column per catalog step. A step without a score row is an empty
// cell, unlike an explicit Not Assessed.
func BuildCumulative(in ReportInput, procedureID string) CumulativeGrid {
	grid := CumulativeGrid{ProcedureID: procedureID}
	if p, ok := in.Catalog.Procedure(procedureID); ok {
		grid.ProcedureName = p.Name
	}
	steps := in.Catalog.StepsFor(procedureID)
	grid.Columns = append(grid.Columns, cumulativeMeta...)
	for _, st := range steps {
		grid.Columns = append(grid.Columns, st.Name)
	}

	var cases []models.Case
	for _, c := range in.Cases {
		if c.ProcedureID == procedureID {
			cases = append(cases, c)
		}
	}
	byDateAsc(cases)
	scores := joinedScores(cases, in.Scores)

	for _, c := range cases {
		row := []Cell{
			{Value: formatDate(c)},
			{Value: evaluatorName(in.Catalog, c.EvaluatorID)},
			{Value: c.CaseID},
			complexityCell(c.CaseComplexity),
			oscoreCell(c.OverallPerformance),
		}
		for _, st := range steps {
			sc, ok := scores[c.CaseID][st.ID]
			row = append(row, ratingCell(sc, ok))
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// BuildComments lists every case, latest first.
func BuildComments(in ReportInput) []CommentRow {
	cases := append([]models.Case(nil), in.Cases...)
	byDateAsc(cases)
	rows := make([]CommentRow, 0, len(cases))
	for i := len(cases) - 1; i >= 0; i-- {
		c := cases[i]
		procName := ""
		if p, ok := in.Catalog.Procedure(c.ProcedureID); ok {
			procName = p.Name
		}
		rows = append(rows, CommentRow{
			CaseID:     c.CaseID,
			Date:       formatDate(c),
			Procedure:  procName,
			Evaluator:  evaluatorName(in.Catalog, c.EvaluatorID),
			Complexity: complexityCell(c.CaseComplexity),
			Overall:    oscoreCell(c.OverallPerformance),
			Notes:      c.Notes,
		})
	}
	return rows
}

// ProceduresWithScores returns the catalog procedures that have at least one
// scored case, in catalog order.
func ProceduresWithScores(in ReportInput) []models.Procedure {
	scored := make(map[string]bool)
	joined := joinedScores(in.Cases, in.Scores)
	for _, c := range in.Cases {
		if len(joined[c.CaseID]) > 0 {
			scored[c.ProcedureID] = true
		}
	}
	var out []models.Procedure
	for _, p := range in.Catalog.Procedures {
		if scored[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// BuildCaseSummary renders one case for the post-submission dashboard.
func BuildCaseSummary(in ReportInput, caseID string) (CaseSummary, bool) {
	var c models.Case
	found := false
	for _, x := range in.Cases {
		if x.CaseID == caseID {
			c, found = x, true
			break
		}
	}
	if !found {
		return CaseSummary{}, false
	}
	sum := CaseSummary{
		Case:          c,
		Date:          formatDate(c),
		EvaluatorName: evaluatorName(in.Catalog, c.EvaluatorID),
		Complexity:    complexityCell(c.CaseComplexity),
		Overall:       oscoreCell(c.OverallPerformance),
	}
	if p, ok := in.Catalog.Procedure(c.ProcedureID); ok {
		sum.ProcedureName = p.Name
	}
	scores := joinedScores([]models.Case{c}, in.Scores)[c.CaseID]
	for _, st := range in.Catalog.StepsFor(c.ProcedureID) {
		sc, ok := scores[st.ID]
		sum.Steps = append(sum.Steps, StepResult{Order: st.Order, StepID: st.ID, Name: st.Name, Rating: ratingCell(sc, ok)})
	}
	return sum, true
}

type ReportService struct {
	store store.Store
	log   *logger.Logger
}

func NewReportService(st store.Store, baseLog *logger.Logger) *ReportService {
	return &ReportService{store: st, log: baseLog.With("service", "ReportService")}
}

// Load reads the catalog and the resident's cases concurrently, then the
// scores of those cases.
func (s *ReportService) Load(ctx context.Context, residentEmail string) (ReportInput, error) {
	var in ReportInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat, err := s.store.LoadCatalog(gctx)
		in.Catalog = cat
		return err
	})
	g.Go(func() error {
		cases, err := s.store.ListCases(gctx, models.NormalizeEmail(residentEmail))
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(cases))
		for _, c := range cases {
			ids = append(ids, c.CaseID)
		}
		scores, err := s.store.ListScores(gctx, ids)
		in.Cases, in.Scores = cases, scores
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("load report input", "email", residentEmail, "error", err)
		return ReportInput{}, err
	}
	return in, nil
}
