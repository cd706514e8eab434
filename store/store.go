// Package store persists the reference catalog and evaluation records.
//
// Two backends exist: a relational one on gorm (postgres in production,
// sqlite locally) and a tabular one that keeps each collection as a whole
// sheet guarded by a revision token.
package store

import (
	"context"
	"errors"

	"github.com/jenkinph/procedure-passport/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means another writer changed a collection between our read
	// and our write, and retrying did not get through.
	ErrConflict = errors.New("concurrent write conflict")
)

// Collection names, shared by both backends and the cache.
const (
	Specialties = "specialties"
	Procedures  = "procedures"
	Steps       = "steps"
	Evaluators  = "attendings"
	Residents   = "residents"
	Cases       = "cases"
	Scores      = "scores"
)

// CatalogStore holds reference data. Ensure* calls insert only when the
// natural key is absent and report whether a row was created.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (models.Catalog, error)
	EnsureSpecialty(ctx context.Context, s models.Specialty) (bool, error)
	EnsureResident(ctx context.Context, r models.Resident) (bool, error)
	EnsureEvaluator(ctx context.Context, e models.Evaluator) (bool, error)
	// EnsureProcedure creates the procedure if absent and its steps if the
	// procedure has none yet.
	EnsureProcedure(ctx context.Context, p models.Procedure, steps []models.Step) (bool, error)
	ListResidents(ctx context.Context) ([]models.Resident, error)
	FindResident(ctx context.Context, email string) (models.Resident, error)
	DeleteResident(ctx context.Context, email string) error
	DeleteEvaluator(ctx context.Context, id string) error
	DeleteProcedure(ctx context.Context, id string) error
}

// RecordStore holds cases and their step scores. Both are append-only.
type RecordStore interface {
	AppendCase(ctx context.Context, c models.Case, scores []models.Score) error
	ListCases(ctx context.Context, residentEmail string) ([]models.Case, error)
	ListScores(ctx context.Context, caseIDs []string) ([]models.Score, error)
}

type Store interface {
	CatalogStore
	RecordStore
}
