package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
)

// DefaultStatusTTL bounds how long an assessed IntegrationStatus is
// served from cache before the raw signals are re-checked.
const DefaultStatusTTL = 60 * time.Second

// Assessor maps a CredentialsProvider's raw connection signals into a
// blocking/non-blocking verdict, cached per user.
type Assessor struct {
	provider ports.CredentialsProvider
	cache    ports.TTLCache
	ttl      time.Duration
}

// NewAssessor builds an Assessor backed by provider, cached through cache.
func NewAssessor(provider ports.CredentialsProvider, cache ports.TTLCache) *Assessor {
	return &Assessor{provider: provider, cache: cache, ttl: DefaultStatusTTL}
}

// AssessStatus returns the cached verdict when fresh, otherwise queries
// provider.RawStatus and applies domain.MapRawStatus. JobRunner consults
// this before dispatching a job's cloud calls so a job with unusable
// credentials fails fast as CloudAuth instead of burning a cloud
// round-trip.
func (a *Assessor) AssessStatus(ctx context.Context, providerName, userID string) (domain.IntegrationStatus, error) {
	key := "integration-status:" + providerName + ":" + userID
	if cached, ok := a.cache.Get(ctx, key); ok {
		if status, ok := cached.(domain.IntegrationStatus); ok && !status.Expired(time.Now()) {
			return status, nil
		}
	}

	connected, authenticated, hasRefresh, err := a.provider.RawStatus(ctx, userID)
	if err != nil {
		return domain.IntegrationStatus{}, fmt.Errorf("credentials.assess_status: %w", err)
	}

	raw := domain.RawCredentialSignals{Connected: connected, Authenticated: authenticated, HasRefreshToken: hasRefresh}
	status := domain.MapRawStatus(providerName, raw, time.Now(), a.ttl)
	a.cache.Set(ctx, key, status, a.ttl)
	return status, nil
}
