// Package configstore wraps ports.ConfigRepository with a short TTL
// cache so the hot per-workflow config lookup doesn't hit the database
// on every job, while still picking up operator edits to agency config
// within a bounded window instead of caching it for the process
// lifetime.
package configstore

import (
	"context"
	"fmt"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
)

// DefaultTTL is short enough that an operator's config edit is visible
// to the next workflow execution within a few seconds.
const DefaultTTL = 5 * time.Second

// Store is the read path every LADE component uses for
// AgencyStorageConfig; writes go straight to the repository and
// invalidate the cache entry.
type Store struct {
	repo  ports.ConfigRepository
	cache ports.TTLCache
	ttl   time.Duration
}

// New builds a Store backed by repo, cached through cache.
func New(repo ports.ConfigRepository, cache ports.TTLCache) *Store {
	return &Store{repo: repo, cache: cache, ttl: DefaultTTL}
}

func cacheKey(agency domain.Agency) string {
	return "config:" + string(agency)
}

// Get returns the AgencyStorageConfig for agency, serving from cache
// when fresh.
func (s *Store) Get(ctx context.Context, agency domain.Agency) (*domain.AgencyStorageConfig, error) {
	key := cacheKey(agency)
	if cached, ok := s.cache.Get(ctx, key); ok {
		cfg, ok := cached.(*domain.AgencyStorageConfig)
		if ok {
			return cfg, nil
		}
	}

	cfg, err := s.repo.FindByAgency(ctx, agency)
	if err != nil {
		return nil, fmt.Errorf("configstore.get: %w", err)
	}
	s.cache.Set(ctx, key, cfg, s.ttl)
	return cfg, nil
}

// Save persists cfg and invalidates the cache entry so the next Get
// observes the change immediately.
func (s *Store) Save(ctx context.Context, cfg domain.AgencyStorageConfig) error {
	if err := s.repo.Save(ctx, cfg); err != nil {
		return fmt.Errorf("configstore.save: %w", err)
	}
	s.cache.Delete(ctx, cacheKey(cfg.Agency))
	return nil
}

// ListEnabled delegates directly to the repository; it is used only by
// infrequent operator/reporting paths, not the per-workflow hot path, so
// it is never cached.
func (s *Store) ListEnabled(ctx context.Context) ([]domain.AgencyStorageConfig, error) {
	cfgs, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("configstore.list_enabled: %w", err)
	}
	return cfgs, nil
}
