package dropbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caliber-data/lade/internal/core/ports"
)

// workspaceMapCacheTTL bounds how long a resolved workspace-name →
// namespace-id map is trusted before being re-resolved.
const workspaceMapCacheTTL = 10 * time.Minute

// pathRouter resolves a user-facing absolute path against the set of
// team workspaces visible to the account. The provider exposes a
// personal root and zero or more named workspaces, each addressed by a
// distinct namespace id: a path whose leading segment names a known
// workspace must have that segment stripped before being submitted,
// with the namespace communicated via a separate request header; any
// other path is submitted unchanged against the personal root.
type pathRouter struct {
	cache    ports.TTLCache
	resolver workspaceResolver
}

// workspaceResolver performs the live "list shared folders" round trip
// that enumerates the team workspaces visible to an account. Small
// interface so pathRouter can be unit tested without a live account.
type workspaceResolver interface {
	listWorkspaces(ctx context.Context) (map[string]string, error)
}

func newPathRouter(cache ports.TTLCache, resolver workspaceResolver) *pathRouter {
	return &pathRouter{cache: cache, resolver: resolver}
}

// route carries the outcome of resolving one path: the form to submit
// to the provider, the path-root header to send alongside it (empty for
// the personal root), and whether a workspace segment was stripped.
type route struct {
	submitPath    string
	pathRootHdr   string
	workspace     bool
	workspaceName string
}

// Resolve splits path into its leading segment and remainder. When the
// leading segment names a known team workspace it returns the
// remainder, rebuilt as an absolute path, to submit in place of path,
// along with the Dropbox-API-Path-Root header naming that workspace's
// namespace id. Any path whose leading segment does not match a known
// workspace is returned unchanged with no header.
func (r *pathRouter) Resolve(ctx context.Context, userID, path string) (route, error) {
	segment, remainder := splitLeadingSegment(path)
	if segment == "" {
		return route{submitPath: path}, nil
	}

	workspaces, err := r.workspaceMap(ctx, userID)
	if err != nil {
		return route{}, err
	}
	nsID, ok := workspaces[segment]
	if !ok {
		return route{submitPath: path}, nil
	}

	header := fmt.Sprintf(`{".tag": "namespace_id", "namespace_id": "%s"}`, nsID)
	return route{submitPath: remainder, pathRootHdr: header, workspace: true, workspaceName: segment}, nil
}

// workspaceMap returns the cached workspace-name -> namespace-id map,
// resolving it from the provider on a cache miss. The resolution is a
// one-time cost per cache TTL, not a per-call lookup.
func (r *pathRouter) workspaceMap(ctx context.Context, userID string) (map[string]string, error) {
	key := workspaceCacheKey(userID)
	if cached, ok := r.cache.Get(ctx, key); ok {
		if m, ok := cached.(map[string]string); ok {
			return m, nil
		}
	}

	m, err := r.resolver.listWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, m, workspaceMapCacheTTL)
	return m, nil
}

// Invalidate drops the cached workspace map, used when the provider
// reports a routing error so the next call re-resolves instead of
// repeating a stale mapping.
func (r *pathRouter) Invalidate(ctx context.Context, userID string) {
	r.cache.Delete(ctx, workspaceCacheKey(userID))
}

func workspaceCacheKey(userID string) string {
	return "dropbox:workspaces:" + userID
}

// reattach rebuilds an absolute display path after workspace routing
// stripped the leading segment: the provider only sees, and corrects
// the case of, the remainder, so the workspace segment must be
// re-prefixed before the path reaches the rest of the system.
func (rt route) reattach(providerPath string) string {
	if !rt.workspace {
		return providerPath
	}
	return "/" + rt.workspaceName + providerPath
}

// splitLeadingSegment splits an absolute path ("/Name/rest...") into
// its first segment ("Name") and the remainder rebuilt as an absolute
// path ("/rest..."). A root-level path with no further segment returns
// a remainder of "/"; an empty or root path returns no segment at all.
func splitLeadingSegment(path string) (segment, remainder string) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "/"
	}
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, "/"
	}
	return trimmed[:idx], "/" + trimmed[idx+1:]
}
