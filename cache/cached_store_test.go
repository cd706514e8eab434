package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinph/procedure-passport/cache"
	"github.com/jenkinph/procedure-passport/models"
	"github.com/jenkinph/procedure-passport/store"
	"github.com/jenkinph/procedure-passport/store/storetest"
)

// countingStore counts reads that reach the backend.
type countingStore struct {
	store.Store
	catalogLoads int
	caseLists    int
}

func (c *countingStore) LoadCatalog(ctx context.Context) (models.Catalog, error) {
	c.catalogLoads++
	return c.Store.LoadCatalog(ctx)
}

func (c *countingStore) ListCases(ctx context.Context, email string) ([]models.Case, error) {
	c.caseLists++
	return c.Store.ListCases(ctx, email)
}

func setup(t *testing.T) (*cache.CachedStore, *countingStore) {
	backend := &countingStore{Store: storetest.Seeded(t, storetest.Sheet(t))}
	return cache.NewCachedStore(backend, cache.NewMemory(time.Minute), storetest.Logger(t)), backend
}

func TestCachedStoreReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	s, backend := setup(t)

	cases, err := s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, cases)
	_, err = s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.caseLists)

	require.NoError(t, s.AppendCase(ctx, models.Case{CaseID: "c1", ResidentEmail: "a@x.com"}, nil))
	cases, err = s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, 2, backend.caseLists)
}

func TestCachedStoreStaleWithoutInvalidation(t *testing.T) {
	ctx := context.Background()
	s, backend := setup(t)

	_, err := s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	// Write straight to the backend, past the cache.
	require.NoError(t, backend.Store.AppendCase(ctx, models.Case{CaseID: "c1", ResidentEmail: "a@x.com"}, nil))

	cases, err := s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, cases)

	s.Invalidate(ctx, store.Cases)
	cases, err = s.ListCases(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestCachedStoreKeepsUnrelatedCollections(t *testing.T) {
	ctx := context.Background()
	s, backend := setup(t)

	_, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AppendCase(ctx, models.Case{CaseID: "c1", ResidentEmail: "a@x.com"}, nil))
	_, err = s.EnsureResident(ctx, models.Resident{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.catalogLoads)

	_, err = s.EnsureEvaluator(ctx, models.Evaluator{ID: "A_GS_NEW", Name: "New", SpecialtyID: "GS"})
	require.NoError(t, err)
	cat, err := s.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.catalogLoads)
	assert.Len(t, cat.EvaluatorsFor("GS"), 2)
}
