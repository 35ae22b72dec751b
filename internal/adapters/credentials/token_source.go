// Package credentials implements ports.CredentialsProvider. Persisted
// OAuth state (the Dropbox app's client id/secret and each user's
// refresh token) is expected to live behind a durable persistence layer
// in production; this adapter is the documented extension point for
// that — an in-memory store good enough for tests and single-process
// deployments, with the refresh plumbing a real store would need
// already wired.
package credentials

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// Record is one user's stored Dropbox OAuth grant. RefreshToken is what
// makes the grant durable; AccessToken/Expiry are the last token this
// process minted, cached so a TokenSource doesn't force a refresh round
// trip on every call.
type Record struct {
	RefreshToken string
	AccessToken  string
	HasToken     bool
}

// Store is an in-memory ports.CredentialsProvider. Each user's live
// token is held behind an atomic.Pointer so concurrent TokenSource
// callers never observe a partially-updated token during a refresh,
// copy-on-refresh rather than locking readers behind the same mutex
// that guards the refresh call.
type Store struct {
	config oauth2.Config

	mu      sync.RWMutex
	records map[string]*Record
	tokens  map[string]*atomic.Pointer[oauth2.Token]
}

// NewStore builds a Store that mints tokens through cfg (the Dropbox app's
// OAuth2 config; cfg.Endpoint points at Dropbox's token endpoint).
func NewStore(cfg oauth2.Config) *Store {
	return &Store{
		config:  cfg,
		records: make(map[string]*Record),
		tokens:  make(map[string]*atomic.Pointer[oauth2.Token]),
	}
}

// Put registers (or replaces) a user's stored grant, e.g. right after
// the out-of-scope OAuth callback completes.
func (s *Store) Put(userID string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = &rec

	ptr := &atomic.Pointer[oauth2.Token]{}
	if rec.AccessToken != "" {
		ptr.Store(&oauth2.Token{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken})
	}
	s.tokens[userID] = ptr
}

// TokenSource implements ports.CredentialsProvider, returning an
// oauth2.TokenSource scoped to userID that refreshes itself through the
// store's oauth2.Config when the cached token expires.
func (s *Store) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	s.mu.RLock()
	rec, ok := s.records[userID]
	ptr := s.tokens[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("credentials: no stored grant for user %q", userID)
	}

	base := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})
	return &cachingSource{ctx: ctx, base: base, cache: ptr}, nil
}

// RawStatus implements ports.CredentialsProvider's signal inputs to
// credentials.Assessor. A stored record with a refresh token is
// "connected"; "authenticated" additionally requires the last-minted
// access token to still be present (a cleared AccessToken models a
// revoked grant).
func (s *Store) RawStatus(ctx context.Context, userID string) (connected, authenticated, hasRefreshToken bool, err error) {
	s.mu.RLock()
	rec, ok := s.records[userID]
	s.mu.RUnlock()

	if !ok {
		return false, false, false, nil
	}
	hasRefreshToken = rec.RefreshToken != ""
	connected = hasRefreshToken
	authenticated = connected && rec.HasToken
	return connected, authenticated, hasRefreshToken, nil
}

// cachingSource wraps an oauth2.TokenSource, serving a cached token from
// cache while it is valid and storing the refreshed token back for the
// next caller, so concurrent discovery-workflow executions for the same
// user share one refresh instead of racing the provider's token endpoint.
type cachingSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	cache *atomic.Pointer[oauth2.Token]
}

func (c *cachingSource) Token() (*oauth2.Token, error) {
	if cached := c.cache.Load(); cached != nil && cached.Valid() {
		return cached, nil
	}

	tok, err := c.base.Token()
	if err != nil {
		return nil, fmt.Errorf("credentials: token refresh: %w", err)
	}
	c.cache.Store(tok)
	return tok, nil
}
