package credentials

import (
	"context"
	"testing"

	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestStore_TokenSourceUnknownUser(t *testing.T) {
	s := NewStore(oauth2.Config{})

	_, err := s.TokenSource(context.Background(), "nobody")
	assert.Error(t, err)
}

func TestStore_TokenSourceServesCachedAccessToken(t *testing.T) {
	s := NewStore(oauth2.Config{})
	s.Put("u1", Record{RefreshToken: "r1", AccessToken: "a1", HasToken: true})

	src, err := s.TokenSource(context.Background(), "u1")
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)
}

func TestStore_RawStatusReflectsStoredRecord(t *testing.T) {
	s := NewStore(oauth2.Config{})
	s.Put("u1", Record{RefreshToken: "r1", AccessToken: "a1", HasToken: true})

	connected, authenticated, hasRefresh, err := s.RawStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, connected)
	assert.True(t, authenticated)
	assert.True(t, hasRefresh)
}

func TestStore_RawStatusUnknownUserIsAllFalse(t *testing.T) {
	s := NewStore(oauth2.Config{})

	connected, authenticated, hasRefresh, err := s.RawStatus(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, connected)
	assert.False(t, authenticated)
	assert.False(t, hasRefresh)
}

var _ ports.CredentialsProvider = (*Store)(nil)
