package dropbox

import (
	"context"
	"testing"

	"github.com/caliber-data/lade/internal/core/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkspaceResolver struct {
	calls      int
	workspaces map[string]string
}

func (f *fakeWorkspaceResolver) listWorkspaces(ctx context.Context) (map[string]string, error) {
	f.calls++
	return f.workspaces, nil
}

func TestPathRouter_PersonalPathHasNoHeader(t *testing.T) {
	resolver := &fakeWorkspaceResolver{workspaces: map[string]string{"State Workspace": "ns-1"}}
	router := newPathRouter(cache.NewMemoryCache(), resolver)

	rt, err := router.Resolve(context.Background(), "user-1", "/BLM Archives/LE-12345")
	require.NoError(t, err)
	assert.Equal(t, "", rt.pathRootHdr)
	assert.False(t, rt.workspace)
	assert.Equal(t, "/BLM Archives/LE-12345", rt.submitPath)
}

func TestPathRouter_WorkspacePathStripsLeadingSegmentAndSetsHeader(t *testing.T) {
	resolver := &fakeWorkspaceResolver{workspaces: map[string]string{"State Workspace": "ns-team-1"}}
	router := newPathRouter(cache.NewMemoryCache(), resolver)

	rt, err := router.Resolve(context.Background(), "user-1", "/State Workspace/BLM/LE-12345")
	require.NoError(t, err)
	require.True(t, rt.workspace)
	assert.Equal(t, "/BLM/LE-12345", rt.submitPath)
	assert.Contains(t, rt.pathRootHdr, "ns-team-1")
	assert.Equal(t, "State Workspace", rt.workspaceName)
}

func TestPathRouter_ReattachRestoresOriginalAbsolutePath(t *testing.T) {
	resolver := &fakeWorkspaceResolver{workspaces: map[string]string{"State Workspace": "ns-team-1"}}
	router := newPathRouter(cache.NewMemoryCache(), resolver)

	rt, err := router.Resolve(context.Background(), "user-1", "/State Workspace/BLM/LE-12345")
	require.NoError(t, err)
	assert.Equal(t, "/State Workspace/BLM/LE-12345", rt.reattach("/BLM/LE-12345"))
}

func TestPathRouter_CachesWorkspaceResolution(t *testing.T) {
	resolver := &fakeWorkspaceResolver{workspaces: map[string]string{"State Workspace": "ns-1"}}
	router := newPathRouter(cache.NewMemoryCache(), resolver)

	_, err := router.Resolve(context.Background(), "user-1", "/State Workspace/BLM")
	require.NoError(t, err)
	_, err = router.Resolve(context.Background(), "user-1", "/State Workspace/BLM-2")
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls)
}

func TestPathRouter_InvalidateForcesReResolve(t *testing.T) {
	resolver := &fakeWorkspaceResolver{workspaces: map[string]string{"State Workspace": "ns-1"}}
	router := newPathRouter(cache.NewMemoryCache(), resolver)

	_, _ = router.Resolve(context.Background(), "user-1", "/State Workspace/BLM")
	router.Invalidate(context.Background(), "user-1")
	_, _ = router.Resolve(context.Background(), "user-1", "/State Workspace/BLM")

	assert.Equal(t, 2, resolver.calls)
}

func TestSplitLeadingSegment(t *testing.T) {
	cases := []struct {
		path, segment, remainder string
	}{
		{"/State Workspace/BLM/LE-1", "State Workspace", "/BLM/LE-1"},
		{"/State Workspace", "State Workspace", "/"},
		{"/", "", "/"},
	}
	for _, c := range cases {
		segment, remainder := splitLeadingSegment(c.path)
		assert.Equal(t, c.segment, segment, c.path)
		assert.Equal(t, c.remainder, remainder, c.path)
	}
}
