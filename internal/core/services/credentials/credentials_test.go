package credentials

import (
	"context"
	"testing"

	"github.com/caliber-data/lade/internal/core/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"chris@example.com": "ch***@ex***.com",
		"a@b.com":            "a***@b***.com",
		"":                   "***@***.***",
		"not-an-email":       "***@***.***",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), "input %q", in)
	}
}

type fakeProvider struct {
	connected, authenticated, hasRefresh bool
	calls                                int
}

func (f *fakeProvider) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	return nil, nil
}

func (f *fakeProvider) RawStatus(ctx context.Context, userID string) (bool, bool, bool, error) {
	f.calls++
	return f.connected, f.authenticated, f.hasRefresh, nil
}

func TestAssessor_BlockingWhenNotConnected(t *testing.T) {
	provider := &fakeProvider{}
	assessor := NewAssessor(provider, cache.NewMemoryCache())

	status, err := assessor.AssessStatus(context.Background(), "dropbox", "user-1")
	require.NoError(t, err)
	assert.True(t, status.BlockingProblem)
	assert.Equal(t, "not connected", status.Reason)
}

func TestAssessor_NonBlockingWhenFullyAuthenticated(t *testing.T) {
	provider := &fakeProvider{connected: true, authenticated: true, hasRefresh: true}
	assessor := NewAssessor(provider, cache.NewMemoryCache())

	status, err := assessor.AssessStatus(context.Background(), "dropbox", "user-1")
	require.NoError(t, err)
	assert.False(t, status.BlockingProblem)
}

func TestAssessor_CachesAcrossCalls(t *testing.T) {
	provider := &fakeProvider{connected: true, authenticated: true, hasRefresh: true}
	assessor := NewAssessor(provider, cache.NewMemoryCache())
	ctx := context.Background()

	_, err := assessor.AssessStatus(ctx, "dropbox", "user-1")
	require.NoError(t, err)
	_, err = assessor.AssessStatus(ctx, "dropbox", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}
