package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
)

// Roles carried in the access token.
const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
)

// Identity is who is logged in.
type Identity struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	SpecialtyID string `json:"specialty_id,omitempty"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// ResidentInput is the admin "add resident" form.
type ResidentInput struct {
	Email       string `form:"email" validate:"required,email,max=100"`
	Name        string `form:"name" validate:"max=100"`
	SpecialtyID string `form:"specialty_id" validate:"required,max=20"`
}

// EvaluatorInput is the admin "add attending" form.
type EvaluatorInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	SpecialtyID string `form:"specialty_id" validate:"required,max=20"`
	Email       string `form:"email" validate:"omitempty,email,max=100"`
}

// ProcedureInput is the admin "add procedure" form. Steps holds one step
// name per line.
type ProcedureInput struct {
	ID          string `form:"procedure_id" validate:"required,max=20"`
	Name        string `form:"name" validate:"required,max=200"`
	SpecialtyID string `form:"specialty_id" validate:"required,max=20"`
	Steps       string `form:"steps"`
}

type CatalogService struct {
	store store.Store
	cfg   config.Config
	log   *logger.Logger
	now   func() time.Time
}

func NewCatalogService(st store.Store, cfg config.Config, baseLog *logger.Logger) *CatalogService {
	return &CatalogService{
		store: st,
		cfg:   cfg,
		log:   baseLog.With("service", "CatalogService"),
		now:   time.Now,
	}
}

func (s *CatalogService) Catalog(ctx context.Context) (models.Catalog, error) {
	return s.store.LoadCatalog(ctx)
}

// Identify resolves a login email: admins by allow-list, everyone else must
// be on the resident roster.
func (s *CatalogService) Identify(ctx context.Context, email string) (Identity, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return Identity{}, invalid("email", "is required")
	}
	if s.cfg.IsAdmin(email) {
		return Identity{Email: email, Name: email, Role: RoleAdmin}, nil
	}
	r, err := s.store.FindResident(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Info("login rejected", "email", email)
		return Identity{}, ErrUnknownIdentity
	}
	if err != nil {
		return Identity{}, err
	}
	name := r.Name
	if name == "" {
		name = r.Email
	}
	return Identity{Email: r.Email, Name: name, Role: RoleResident, SpecialtyID: r.SpecialtyID}, nil
}

func (s *CatalogService) ListResidents(ctx context.Context) ([]models.Resident, error) {
	return s.store.ListResidents(ctx)
}

func (s *CatalogService) FindResident(ctx context.Context, email string) (models.Resident, error) {
	return s.store.FindResident(ctx, models.NormalizeEmail(email))
}

func (s *CatalogService) requireSpecialty(ctx context.Context, id string) error {
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if _, ok := cat.Specialty(id); !ok {
		return invalid("specialty_id", "is not a known specialty")
	}
	return nil
}

// EnsureResident creates the resident unless the email is already on the
// roster.
func (s *CatalogService) EnsureResident(ctx context.Context, in ResidentInput) (bool, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.SpecialtyID = strings.TrimSpace(in.SpecialtyID)
	if err := validateStruct(in); err != nil {
		return false, err
	}
	if err := s.requireSpecialty(ctx, in.SpecialtyID); err != nil {
		return false, err
	}
	return s.store.EnsureResident(ctx, models.Resident{
		Email:       in.Email,
		Name:        in.Name,
		SpecialtyID: in.SpecialtyID,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	})
}

// EnsureEvaluator returns the attending of the specialty with the same name,
// creating it under the derived id when there is none.
func (s *CatalogService) EnsureEvaluator(ctx context.Context, in EvaluatorInput) (models.Evaluator, bool, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SpecialtyID = strings.TrimSpace(in.SpecialtyID)
	in.Email = models.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return models.Evaluator{}, false, err
	}
	cat, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return models.Evaluator{}, false, err
	}
	if _, ok := cat.Specialty(in.SpecialtyID); !ok {
		return models.Evaluator{}, false, invalid("specialty_id", "is not a known specialty")
	}
	// An attending already on file under the same name is reused.
	for _, e := range cat.EvaluatorsFor(in.SpecialtyID) {
		if strings.EqualFold(e.Name, in.Name) {
			return e, false, nil
		}
	}
	e := models.Evaluator{
		ID:          models.EvaluatorID(in.SpecialtyID, in.Name),
		Name:        in.Name,
		SpecialtyID: in.SpecialtyID,
		Email:       in.Email,
	}
	created, err := s.store.EnsureEvaluator(ctx, e)
	return e, created, err
}

// EnsureProcedure creates the procedure and, when it has none yet, its steps
// numbered in the order given. The id is uppercased.
func (s *CatalogService) EnsureProcedure(ctx context.Context, in ProcedureInput) (bool, error) {
	in.ID = strings.ToUpper(strings.TrimSpace(in.ID))
	in.Name = strings.TrimSpace(in.Name)
	in.SpecialtyID = strings.TrimSpace(in.SpecialtyID)
	if err := validateStruct(in); err != nil {
		return false, err
	}
	if strings.ContainsAny(in.ID, " \t") {
		return false, invalid("procedure_id", "must not contain spaces")
	}
	names := StepLines(in.Steps)
	if len(names) == 0 {
		return false, invalid("steps", "needs at least one step")
	}
	if err := s.requireSpecialty(ctx, in.SpecialtyID); err != nil {
		return false, err
	}
	created, err := s.store.EnsureProcedure(ctx, models.Procedure{
		ID:          in.ID,
		Name:        in.Name,
		SpecialtyID: in.SpecialtyID,
	}, models.NewSteps(in.ID, names))
	if created {
		s.log.Info("procedure added", "procedure_id", in.ID, "steps", len(names))
	}
	return created, err
}

// StepLines splits a textarea into trimmed, non-empty step names.
func StepLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *CatalogService) DeleteResident(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return invalid("email", "is required")
	}
	return s.store.DeleteResident(ctx, email)
}

func (s *CatalogService) DeleteEvaluator(ctx context.Context, id string) error {
	if id = strings.TrimSpace(id); id == "" {
		return invalid("attending_id", "is required")
	}
	return s.store.DeleteEvaluator(ctx, id)
}

func (s *CatalogService) DeleteProcedure(ctx context.Context, id string) error {
	if id = strings.ToUpper(strings.TrimSpace(id)); id == "" {
		return invalid("procedure_id", "is required")
	}
	return s.store.DeleteProcedure(ctx, id)
}
