package dropbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeCredentials struct{}

func (fakeCredentials) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}), nil
}

func (fakeCredentials) RawStatus(ctx context.Context, userID string) (bool, bool, bool, error) {
	return true, true, true, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(fakeCredentials{}, "user-1", cache.NewMemoryCache(), srv.Client()).WithBaseURL(srv.URL)
}

// noWorkspaces answers "sharing/list_folders" with an empty page, for
// tests whose paths never cross a team workspace boundary.
func noWorkspaces(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path == "/sharing/list_folders" {
		json.NewEncoder(w).Encode(map[string]any{"entries": []map[string]any{}})
		return true
	}
	return false
}

func TestClient_MetadataNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if noWorkspaces(w, r) {
			return
		}
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error_summary": "path/not_found/..."})
	})

	entry, err := c.Metadata(context.Background(), "/BLM/BLM-001")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestClient_MetadataFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if noWorkspaces(w, r) {
			return
		}
		switch r.URL.Path {
		case "/files/get_metadata":
			json.NewEncoder(w).Encode(map[string]any{".tag": "folder", "id": "id:1", "name": "BLM-001", "path_display": "/BLM/BLM-001"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	entry, err := c.Metadata(context.Background(), "/BLM/BLM-001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.EntryFolder, entry.Kind)
	assert.Equal(t, "BLM-001", entry.Name)
	assert.Equal(t, "/BLM/BLM-001", entry.PathDisplay)
}

func TestClient_CreateDirectoryAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if noWorkspaces(w, r) {
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error_summary": "expired_access_token/"})
	})

	_, err := c.CreateDirectory(context.Background(), "/BLM/BLM-001", true)
	require.Error(t, err)
	var ladeErr *domain.LadeError
	require.ErrorAs(t, err, &ladeErr)
	assert.Equal(t, domain.KindDirectoryCreationFailed, ladeErr.Kind)
}

func TestClient_CreateShareLinkReusesExisting(t *testing.T) {
	createCalled := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if noWorkspaces(w, r) {
			return
		}
		switch r.URL.Path {
		case "/sharing/list_shared_links":
			json.NewEncoder(w).Encode(map[string]any{"links": []map[string]any{{"url": "https://dropbox.com/existing"}}})
		case "/sharing/create_shared_link_with_settings":
			createCalled = true
			json.NewEncoder(w).Encode(map[string]any{"url": "https://dropbox.com/new"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	link, err := c.CreateShareLink(context.Background(), "/BLM/BLM-001", true)
	require.NoError(t, err)
	assert.Equal(t, "https://dropbox.com/existing", link.URL)
	assert.False(t, createCalled)
}

func TestClient_SearchFallbackPaginates(t *testing.T) {
	pages := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if noWorkspaces(w, r) {
			return
		}
		switch r.URL.Path {
		case "/files/search_v2", "/files/search/continue_v2":
			pages++
			json.NewEncoder(w).Encode(map[string]any{
				"matches": []map[string]any{
					{"metadata": map[string]any{"metadata": map[string]any{".tag": "file", "id": "id:x", "name": "report.pdf", "path_display": "/BLM/BLM-001/report.pdf"}}},
				},
				"has_more": false,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	entries, err := c.SearchFallback(context.Background(), "/BLM", "report.pdf")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, pages)
}

func TestClient_WorkspaceRootedPathStripsSegmentAndSetsPathRootHeader(t *testing.T) {
	var gotPath string
	var gotHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/list_folders":
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{{"name": "State Workspace", "shared_folder_id": "ns-team-1"}},
			})
		case "/files/get_metadata":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			gotPath, _ = body["path"].(string)
			gotHeader = r.Header.Get("Dropbox-API-Path-Root")
			json.NewEncoder(w).Encode(map[string]any{".tag": "folder", "id": "id:1", "name": "BLM-001", "path_display": "/BLM/BLM-001"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	entry, err := c.Metadata(context.Background(), "/State Workspace/BLM/BLM-001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "/BLM/BLM-001", gotPath)
	assert.Contains(t, gotHeader, "ns-team-1")
	assert.Equal(t, "/State Workspace/BLM/BLM-001", entry.PathDisplay)
}

func TestClient_IsWorkspaceRooted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sharing/list_folders" {
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{{"name": "State Workspace", "shared_folder_id": "ns-team-1"}},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	rooted, err := c.IsWorkspaceRooted(context.Background(), "/State Workspace/BLM/BLM-001")
	require.NoError(t, err)
	assert.True(t, rooted)

	rooted, err = c.IsWorkspaceRooted(context.Background(), "/BLM/BLM-001")
	require.NoError(t, err)
	assert.False(t, rooted)
}

func TestClient_CreateShareLinkOnWorkspacePathResolvesEntryIDFirst(t *testing.T) {
	var sharePath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/list_folders":
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{{"name": "State Workspace", "shared_folder_id": "ns-team-1"}},
			})
		case "/files/get_metadata":
			json.NewEncoder(w).Encode(map[string]any{".tag": "folder", "id": "id:entry-1", "name": "BLM-001", "path_display": "/BLM/BLM-001"})
		case "/sharing/list_shared_links":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			sharePath, _ = body["path"].(string)
			json.NewEncoder(w).Encode(map[string]any{"links": []map[string]any{}})
		case "/sharing/create_shared_link_with_settings":
			json.NewEncoder(w).Encode(map[string]any{"url": "https://dropbox.com/new"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	link, err := c.CreateShareLink(context.Background(), "/State Workspace/BLM/BLM-001", true)
	require.NoError(t, err)
	assert.Equal(t, "https://dropbox.com/new", link.URL)
	assert.Equal(t, "id:entry-1", sharePath)
}
