package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
)

// Notifier receives an event after a case is stored.
type Notifier interface {
	Notify(room string, ev Event)
}

// EventCaseSaved is pushed to the resident's room and to AdminRoom.
const EventCaseSaved = "case_saved"

type RecordService struct {
	store    store.Store
	notifier Notifier
	log      *logger.Logger
	newID    func() string
}

func NewRecordService(st store.Store, n Notifier, baseLog *logger.Logger) *RecordService {
	return &RecordService{
		store:    st,
		notifier: n,
		log:      baseLog.With("service", "RecordService"),
		newID:    NewCaseID,
	}
}

// NewCaseID returns a random 12-character hex token.
func NewCaseID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CaseForm is the assessment form after the start screen has fixed the
// context of the case.
type CaseForm struct {
	ResidentEmail      string `validate:"required,email"`
	Date               time.Time
	SpecialtyID        string `validate:"required"`
	ProcedureID        string `validate:"required"`
	EvaluatorID        string `validate:"required"`
	RatingsByStep      map[string]string
	Notes              string `validate:"max=5000"`
	CaseComplexity     string `validate:"required"`
	OverallPerformance string `validate:"required"`
}

// Validate checks the form against the catalog and converts it to a NewCase.
// Every rating must be a known label for a step of the procedure.
func (f CaseForm) Validate(cat models.Catalog) (models.NewCase, error) {
	f.ResidentEmail = models.NormalizeEmail(f.ResidentEmail)
	if err := validateStruct(f); err != nil {
		return models.NewCase{}, err
	}
	if f.Date.IsZero() {
		return models.NewCase{}, invalid("date", "is required")
	}
	proc, ok := cat.Procedure(f.ProcedureID)
	if !ok {
		return models.NewCase{}, invalid("procedure_id", "is not a known procedure")
	}
	if proc.SpecialtyID != f.SpecialtyID {
		return models.NewCase{}, invalid("procedure_id", "does not belong to the specialty")
	}
	complexity := models.Complexity(f.CaseComplexity)
	if !complexity.Valid() {
		return models.NewCase{}, invalid("case_complexity", "is not a known complexity")
	}
	oscore := models.OScore(f.OverallPerformance)
	if !oscore.Valid() {
		return models.NewCase{}, invalid("overall_performance", "is not a known O-Score")
	}
	steps := make(map[string]bool)
	for _, st := range cat.StepsFor(proc.ID) {
		steps[st.ID] = true
	}
	ratings := make(map[string]models.Rating, len(f.RatingsByStep))
	for stepID, label := range f.RatingsByStep {
		if !steps[stepID] {
			return models.NewCase{}, invalid("rating "+stepID, "is not a step of "+proc.ID)
		}
		r, ok := models.ParseRating(label)
		if !ok {
			return models.NewCase{}, invalid("rating "+stepID, "is not a known rating")
		}
		ratings[stepID] = r
	}
	return models.NewCase{
		ResidentEmail:      f.ResidentEmail,
		Date:               f.Date,
		SpecialtyID:        f.SpecialtyID,
		ProcedureID:        proc.ID,
		EvaluatorID:        f.EvaluatorID,
		RatingsByStep:      ratings,
		Notes:              strings.TrimSpace(f.Notes),
		CaseComplexity:     complexity,
		OverallPerformance: oscore,
	}, nil
}

// SaveCase stores the case with one score per rated step and returns the new
// case id. Subscribers of the resident's room are told afterwards.
func (s *RecordService) SaveCase(ctx context.Context, nc models.NewCase) (string, error) {
	for stepID, r := range nc.RatingsByStep {
		if !r.Valid() {
			return "", invalid("rating "+stepID, "is not a known rating")
		}
	}
	caseID := s.newID()
	c := models.Case{
		CaseID:             caseID,
		ResidentEmail:      nc.ResidentEmail,
		Date:               nc.Date,
		SpecialtyID:        nc.SpecialtyID,
		ProcedureID:        nc.ProcedureID,
		EvaluatorID:        nc.EvaluatorID,
		Notes:              nc.Notes,
		CaseComplexity:     nc.CaseComplexity,
		OverallPerformance: nc.OverallPerformance,
	}
	if err := s.store.AppendCase(ctx, c, nc.Scores(caseID)); err != nil {
		s.log.Error("save case failed", "case_id", caseID, "email", nc.ResidentEmail, "error", err)
		return "", err
	}
	s.log.Info("case saved", "case_id", caseID, "email", nc.ResidentEmail, "procedure_id", nc.ProcedureID, "steps", len(nc.RatingsByStep))

	if s.notifier != nil {
		ev := Event{Type: EventCaseSaved, Data: CaseSavedData{
			CaseID:        caseID,
			ResidentEmail: nc.ResidentEmail,
			ProcedureID:   nc.ProcedureID,
			Date:          nc.Date.Format(models.DateLayout),
		}}
		s.notifier.Notify(ResidentRoom(nc.ResidentEmail), ev)
		s.notifier.Notify(AdminRoom, ev)
	}
	return caseID, nil
}

// CaseSavedData is the payload of a case_saved event.
type CaseSavedData struct {
	CaseID        string `json:"case_id"`
	ResidentEmail string `json:"resident_email"`
	ProcedureID   string `json:"procedure_id"`
	Date          string `json:"date"`
}
