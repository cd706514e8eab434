package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogSeed is the file format of a reference catalog.
type CatalogSeed struct {
	Specialties []models.Specialty `yaml:"specialties"`
	Procedures  []ProcedureSeed    `yaml:"procedures"`
	Attendings  []AttendingSeed    `yaml:"attendings"`
}

type ProcedureSeed struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Specialty string   `yaml:"specialty"`
	Steps     []string `yaml:"steps"`
}

// AttendingSeed.ID is optional; it is derived from name and specialty when empty.
type AttendingSeed struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Specialty string `yaml:"specialty"`
	Email     string `yaml:"email"`
}

// LoadCatalogSeed reads a seed file, or the built-in catalog when path is empty.
func LoadCatalogSeed(path string) (CatalogSeed, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return CatalogSeed{}, fmt.Errorf("read catalog seed: %w", err)
		}
		raw = b
	}
	var seed CatalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return CatalogSeed{}, fmt.Errorf("parse catalog seed: %w", err)
	}
	return seed, nil
}

// Seed ensures every catalog row exists. Rows already present are left
// alone, but rows an admin deleted are created again.
func Seed(ctx context.Context, s store.CatalogStore, seed CatalogSeed, log *logger.Logger) (int, error) {
	created := 0
	count := func(ok bool) {
		if ok {
			created++
		}
	}

	for _, sp := range seed.Specialties {
		ok, err := s.EnsureSpecialty(ctx, sp)
		if err != nil {
			return created, err
		}
		count(ok)
	}
	for _, p := range seed.Procedures {
		ok, err := s.EnsureProcedure(ctx, models.Procedure{
			ID:          p.ID,
			Name:        p.Name,
			SpecialtyID: p.Specialty,
		}, models.NewSteps(p.ID, p.Steps))
		if err != nil {
			return created, err
		}
		count(ok)
	}
	for _, a := range seed.Attendings {
		id := a.ID
		if id == "" {
			id = models.EvaluatorID(a.Specialty, a.Name)
		}
		ok, err := s.EnsureEvaluator(ctx, models.Evaluator{
			ID:          id,
			Name:        a.Name,
			SpecialtyID: a.Specialty,
			Email:       a.Email,
		})
		if err != nil {
			return created, err
		}
		count(ok)
	}
	log.Info("catalog seeded", "created", created)
	return created, nil
}

// Bootstrap seeds an empty store. A store that already has specialties is
// left as it is, so admin deletions survive a restart.
func Bootstrap(ctx context.Context, s store.CatalogStore, seed CatalogSeed, log *logger.Logger) (bool, error) {
	cat, err := s.LoadCatalog(ctx)
	if err != nil {
		return false, fmt.Errorf("load catalog: %w", err)
	}
	if len(cat.Specialties) > 0 {
		log.Debug("catalog present, bootstrap skipped", "specialties", len(cat.Specialties))
		return false, nil
	}
	if _, err := Seed(ctx, s, seed, log); err != nil {
		return false, err
	}
	return true, nil
}
