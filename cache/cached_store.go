package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
)

// CatalogView groups the assembled catalog. It is dropped together with any
// of the collections the catalog is built from.
const CatalogView = "catalog"

// CachedStore memoizes store reads and invalidates, after each write, only
// the collections that write touched. A failing cache never fails a read.
type CachedStore struct {
	next  store.Store
	cache Cache
	log   *logger.Logger
}

var _ store.Store = (*CachedStore)(nil)

func NewCachedStore(next store.Store, c Cache, baseLog *logger.Logger) *CachedStore {
	return &CachedStore{next: next, cache: c, log: baseLog.With("store", "CachedStore")}
}

// Invalidate drops the given collections, logging rather than failing.
func (s *CachedStore) Invalidate(ctx context.Context, collections ...string) {
	if err := s.cache.InvalidateCollection(ctx, collections...); err != nil {
		s.log.Error("cache invalidation failed", "collections", collections, "error", err)
	}
}

func cached[T any](ctx context.Context, s *CachedStore, collection, key string, load func() (T, error)) (T, error) {
	var v T
	ok, err := s.cache.Get(ctx, collection, key, &v)
	if err != nil {
		s.log.Warn("cache read failed", "collection", collection, "error", err)
	}
	if ok {
		return v, nil
	}
	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, collection, key, v); err != nil {
		s.log.Warn("cache write failed", "collection", collection, "error", err)
	}
	return v, nil
}

func (s *CachedStore) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	return cached(ctx, s, CatalogView, "all", func() (models.Catalog, error) {
		return s.next.LoadCatalog(ctx)
	})
}

func (s *CachedStore) ListResidents(ctx context.Context) ([]models.Resident, error) {
	return cached(ctx, s, store.Residents, "all", func() ([]models.Resident, error) {
		return s.next.ListResidents(ctx)
	})
}

func (s *CachedStore) FindResident(ctx context.Context, email string) (models.Resident, error) {
	return cached(ctx, s, store.Residents, "email:"+email, func() (models.Resident, error) {
		return s.next.FindResident(ctx, email)
	})
}

func (s *CachedStore) ListCases(ctx context.Context, residentEmail string) ([]models.Case, error) {
	return cached(ctx, s, store.Cases, "resident:"+residentEmail, func() ([]models.Case, error) {
		return s.next.ListCases(ctx, residentEmail)
	})
}

func (s *CachedStore) ListScores(ctx context.Context, caseIDs []string) ([]models.Score, error) {
	ids := append([]string(nil), caseIDs...)
	sort.Strings(ids)
	return cached(ctx, s, store.Scores, "cases:"+strings.Join(ids, ","), func() ([]models.Score, error) {
		return s.next.ListScores(ctx, caseIDs)
	})
}

func (s *CachedStore) EnsureSpecialty(ctx context.Context, sp models.Specialty) (bool, error) {
	created, err := s.next.EnsureSpecialty(ctx, sp)
	if created {
		s.Invalidate(ctx, store.Specialties, CatalogView)
	}
	return created, err
}

func (s *CachedStore) EnsureResident(ctx context.Context, r models.Resident) (bool, error) {
	created, err := s.next.EnsureResident(ctx, r)
	if created {
		s.Invalidate(ctx, store.Residents)
	}
	return created, err
}

func (s *CachedStore) EnsureEvaluator(ctx context.Context, e models.Evaluator) (bool, error) {
	created, err := s.next.EnsureEvaluator(ctx, e)
	if created {
		s.Invalidate(ctx, store.Evaluators, CatalogView)
	}
	return created, err
}

func (s *CachedStore) EnsureProcedure(ctx context.Context, p models.Procedure, steps []models.Step) (bool, error) {
	created, err := s.next.EnsureProcedure(ctx, p, steps)
	if created {
		s.Invalidate(ctx, store.Procedures, store.Steps, CatalogView)
	}
	return created, err
}

func (s *CachedStore) DeleteResident(ctx context.Context, email string) error {
	if err := s.next.DeleteResident(ctx, email); err != nil {
		return err
	}
	s.Invalidate(ctx, store.Residents)
	return nil
}

func (s *CachedStore) DeleteEvaluator(ctx context.Context, id string) error {
	if err := s.next.DeleteEvaluator(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, store.Evaluators, CatalogView)
	return nil
}

func (s *CachedStore) DeleteProcedure(ctx context.Context, id string) error {
	if err := s.next.DeleteProcedure(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx, store.Procedures, store.Steps, CatalogView)
	return nil
}

// AppendCase invalidates cases and scores even when the write fails: the
// sheet backend may have kept part of the record.
func (s *CachedStore) AppendCase(ctx context.Context, c models.Case, scores []models.Score) error {
	err := s.next.AppendCase(ctx, c, scores)
	s.Invalidate(ctx, store.Cases, store.Scores)
	return err
}
