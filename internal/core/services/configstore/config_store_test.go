package configstore

import (
	"context"
	"testing"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byAgency map[domain.Agency]domain.AgencyStorageConfig
	lookups  int
}

func newFakeRepo(cfgs ...domain.AgencyStorageConfig) *fakeRepo {
	r := &fakeRepo{byAgency: map[domain.Agency]domain.AgencyStorageConfig{}}
	for _, c := range cfgs {
		r.byAgency[c.Agency] = c
	}
	return r
}

func (r *fakeRepo) FindByAgency(ctx context.Context, agency domain.Agency) (*domain.AgencyStorageConfig, error) {
	r.lookups++
	c, ok := r.byAgency[agency]
	if !ok {
		return nil, domain.ErrConfigMissing
	}
	return &c, nil
}

func (r *fakeRepo) Save(ctx context.Context, cfg domain.AgencyStorageConfig) error {
	r.byAgency[cfg.Agency] = cfg
	return nil
}

func (r *fakeRepo) ListEnabled(ctx context.Context) ([]domain.AgencyStorageConfig, error) {
	var out []domain.AgencyStorageConfig
	for _, c := range r.byAgency {
		out = append(out, c)
	}
	return out, nil
}

func TestStore_CachesWithinTTL(t *testing.T) {
	cfg, err := domain.NewAgencyStorageConfig(domain.AgencyBLM, "/BLM", []string{"Runsheet"})
	require.NoError(t, err)
	repo := newFakeRepo(*cfg)
	store := New(repo, cache.NewMemoryCache())
	ctx := context.Background()

	_, err = store.Get(ctx, domain.AgencyBLM)
	require.NoError(t, err)
	_, err = store.Get(ctx, domain.AgencyBLM)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.lookups)
}

func TestStore_SaveInvalidatesCache(t *testing.T) {
	cfg, err := domain.NewAgencyStorageConfig(domain.AgencyBLM, "/BLM", []string{"Runsheet"})
	require.NoError(t, err)
	repo := newFakeRepo(*cfg)
	store := New(repo, cache.NewMemoryCache())
	ctx := context.Background()

	_, err = store.Get(ctx, domain.AgencyBLM)
	require.NoError(t, err)

	updated := *cfg
	updated.Enabled = false
	require.NoError(t, store.Save(ctx, updated))

	got, err := store.Get(ctx, domain.AgencyBLM)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, 2, repo.lookups)
}
