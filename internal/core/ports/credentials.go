package ports

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// CredentialsProvider is a thin interface over the (out-of-scope) OAuth
// persistence layer. Implementations resolve a user's stored refresh
// token into a live oauth2.TokenSource; this repo ships an in-memory
// double plus a documented extension point for the real persistence
// layer.
type CredentialsProvider interface {
	TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error)
	// RawStatus reports the connection signals AssessStatus maps into an
	// IntegrationStatus verdict.
	RawStatus(ctx context.Context, userID string) (connected, authenticated, hasRefreshToken bool, err error)
}

// TTLCache is the small cache abstraction used by the namespace cache,
// the config store, and the integration-status cache. Get reports
// ok=false on miss or expiry.
type TTLCache interface {
	Get(ctx context.Context, key string) (value any, ok bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
