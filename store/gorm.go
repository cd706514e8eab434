package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
)

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore returns a Store backed by an already migrated gorm database.
func NewGormStore(db *gorm.DB, baseLog *logger.Logger) Store {
	return &gormStore{db: db, log: baseLog.With("store", "GormStore")}
}

func (s *gormStore) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	var c models.Catalog
	db := s.db.WithContext(ctx)
	if err := db.Order("specialty_id").Find(&c.Specialties).Error; err != nil {
		return c, fmt.Errorf("load specialties: %w", err)
	}
	if err := db.Order("procedure_id").Find(&c.Procedures).Error; err != nil {
		return c, fmt.Errorf("load procedures: %w", err)
	}
	if err := db.Order("procedure_id, step_order").Find(&c.Steps).Error; err != nil {
		return c, fmt.Errorf("load steps: %w", err)
	}
	if err := db.Order("specialty_id, attending_name").Find(&c.Evaluators).Error; err != nil {
		return c, fmt.Errorf("load attendings: %w", err)
	}
	return c, nil
}

// insertIfAbsent relies on the primary key as the natural key.
func insertIfAbsent(tx *gorm.DB, row interface{}) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) EnsureSpecialty(ctx context.Context, sp models.Specialty) (bool, error) {
	created, err := insertIfAbsent(s.db.WithContext(ctx), &sp)
	if err != nil {
		return false, fmt.Errorf("ensure specialty %s: %w", sp.ID, err)
	}
	return created, nil
}

func (s *gormStore) EnsureResident(ctx context.Context, r models.Resident) (bool, error) {
	created, err := insertIfAbsent(s.db.WithContext(ctx), &r)
	if err != nil {
		return false, fmt.Errorf("ensure resident: %w", err)
	}
	if created {
		s.log.Info("resident created", "email", r.Email, "specialty_id", r.SpecialtyID)
	}
	return created, nil
}

func (s *gormStore) EnsureEvaluator(ctx context.Context, e models.Evaluator) (bool, error) {
	created, err := insertIfAbsent(s.db.WithContext(ctx), &e)
	if err != nil {
		return false, fmt.Errorf("ensure attending %s: %w", e.ID, err)
	}
	return created, nil
}

func (s *gormStore) EnsureProcedure(ctx context.Context, p models.Procedure, steps []models.Step) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		procCreated, err := insertIfAbsent(tx, &p)
		if err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.Step{}).Where("procedure_id = ?", p.ID).Count(&existing).Error; err != nil {
			return err
		}
		created = procCreated
		if existing > 0 || len(steps) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&steps).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ensure procedure %s: %w", p.ID, err)
	}
	return created, nil
}

func (s *gormStore) ListResidents(ctx context.Context) ([]models.Resident, error) {
	var out []models.Resident
	if err := s.db.WithContext(ctx).Order("email").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	return out, nil
}

func (s *gormStore) FindResident(ctx context.Context, email string) (models.Resident, error) {
	var r models.Resident
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("find resident: %w", err)
	}
	return r, nil
}

func (s *gormStore) DeleteResident(ctx context.Context, email string) error {
	res := s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.Resident{})
	return deleteResult("resident", res)
}

func (s *gormStore) DeleteEvaluator(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("attending_id = ?", id).Delete(&models.Evaluator{})
	return deleteResult("attending", res)
}

func (s *gormStore) DeleteProcedure(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("procedure_id = ?", id).Delete(&models.Step{}).Error; err != nil {
			return fmt.Errorf("delete steps of %s: %w", id, err)
		}
		return deleteResult("procedure", tx.Where("procedure_id = ?", id).Delete(&models.Procedure{}))
	})
}

func deleteResult(what string, res *gorm.DB) error {
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", what, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendCase writes the case and its scores in one transaction, so a case
// never exists without its scores.
func (s *gormStore) AppendCase(ctx context.Context, c models.Case, scores []models.Score) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		if len(scores) == 0 {
			return nil
		}
		return tx.Create(&scores).Error
	})
	if err != nil {
		return fmt.Errorf("append case %s: %w", c.CaseID, err)
	}
	return nil
}

func (s *gormStore) ListCases(ctx context.Context, residentEmail string) ([]models.Case, error) {
	var out []models.Case
	if err := s.db.WithContext(ctx).
		Where("resident_email = ?", residentEmail).
		Order("date ASC, case_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return out, nil
}

func (s *gormStore) ListScores(ctx context.Context, caseIDs []string) ([]models.Score, error) {
	var out []models.Score
	if len(caseIDs) == 0 {
		return out, nil
	}
	if err := s.db.WithContext(ctx).
		Where("case_id IN ?", caseIDs).
		Order("case_id, step_id").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return out, nil
}
