// Package dropbox implements ports.CloudPort against the Dropbox API v2:
// a small hand-rolled client over net/http (plain http.Client,
// constructor injection, typed sentinel errors, no vendored SDK) plus
// golang.org/x/oauth2 for the bearer token.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/caliber-data/lade/internal/telemetry"
)

const (
	apiBaseURL = "https://api.dropboxapi.com/2"

	callTimeout = 10 * time.Second

	// searchFallbackMaxPages bounds SearchFallback's pagination: truncation
	// beyond this is logged, not retried forever against a provider
	// search index.
	searchFallbackMaxPages = 3
)

// Client implements ports.CloudPort against a single Dropbox account,
// scoped to one userID whose credentials are resolved per call (never
// cached beyond the oauth2.TokenSource's own refresh lifetime).
type Client struct {
	httpClient  *http.Client
	credentials ports.CredentialsProvider
	userID      string
	router      *pathRouter
	baseURL     string
}

// NewClient builds a Dropbox CloudPort adapter. cache backs the path
// router's workspace-map TTL cache (production: Redis-backed; tests:
// the in-memory fake).
func NewClient(credentials ports.CredentialsProvider, userID string, cache ports.TTLCache, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: callTimeout}
	}
	c := &Client{
		httpClient:  httpClient,
		credentials: credentials,
		userID:      userID,
		baseURL:     apiBaseURL,
	}
	c.router = newPathRouter(cache, &apiWorkspaceResolver{client: c})
	return c
}

// WithBaseURL overrides the API base URL, for pointing the client at a
// test server.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

var _ ports.CloudPort = (*Client)(nil)

// Metadata resolves a path to its entry. Not-found is reported as
// (nil, nil), matching ports.CloudPort's documented convention.
func (c *Client) Metadata(ctx context.Context, p string) (*domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, p)
	if err != nil {
		return nil, err
	}
	return c.metadataAt(ctx, rt)
}

func (c *Client) metadataAt(ctx context.Context, rt route) (*domain.Entry, error) {
	var resp struct {
		Tag         string `json:".tag"`
		ID          string `json:"id"`
		Name        string `json:"name"`
		PathDisplay string `json:"path_display"`
	}
	apiErr, err := c.rpc(ctx, "files/get_metadata", rt.pathRootHdr, map[string]any{"path": rt.submitPath}, &resp)
	if err != nil {
		telemetry.RecordCloudRequest("metadata", "error")
		return nil, err
	}
	if apiErr != nil {
		if isNotFound(apiErr) {
			telemetry.RecordCloudRequest("metadata", "not_found")
			return nil, nil
		}
		telemetry.RecordCloudRequest("metadata", "error")
		return nil, classify("cloud.metadata", apiErr.StatusCode, nil, apiErr)
	}

	telemetry.RecordCloudRequest("metadata", "ok")
	return &domain.Entry{
		ID:          resp.ID,
		Kind:        entryKind(resp.Tag),
		Name:        resp.Name,
		PathDisplay: rt.reattach(resp.PathDisplay),
	}, nil
}

// ListFiles lists the immediate children of a folder path.
func (c *Client) ListFiles(ctx context.Context, p string) ([]domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, p)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Entries []struct {
			Tag         string `json:".tag"`
			ID          string `json:"id"`
			Name        string `json:"name"`
			PathDisplay string `json:"path_display"`
		} `json:"entries"`
		HasMore bool   `json:"has_more"`
		Cursor  string `json:"cursor"`
	}
	apiErr, err := c.rpc(ctx, "files/list_folder", rt.pathRootHdr, map[string]any{"path": rt.submitPath}, &resp)
	if err != nil {
		telemetry.RecordCloudRequest("list_files", "error")
		return nil, err
	}
	if apiErr != nil {
		if isNotFound(apiErr) {
			// A missing folder lists as empty; callers that care about
			// the distinction disambiguate via Metadata.
			telemetry.RecordCloudRequest("list_files", "not_found")
			return nil, nil
		}
		telemetry.RecordCloudRequest("list_files", "error")
		return nil, classify("cloud.list_files", apiErr.StatusCode, nil, apiErr)
	}

	entries := make([]domain.Entry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entries = append(entries, domain.Entry{
			ID:          e.ID,
			Kind:        entryKind(e.Tag),
			Name:        e.Name,
			PathDisplay: rt.reattach(e.PathDisplay),
		})
	}
	telemetry.RecordCloudRequest("list_files", "ok")
	return entries, nil
}

// CreateDirectory creates path, optionally creating missing parents.
func (c *Client) CreateDirectory(ctx context.Context, p string, parents bool) (*domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, p)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Metadata struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			PathDisplay string `json:"path_display"`
		} `json:"metadata"`
	}
	apiErr, err := c.rpc(ctx, "files/create_folder_v2", rt.pathRootHdr, map[string]any{
		"path":       rt.submitPath,
		"autorename": false,
	}, &resp)
	_ = parents // Dropbox always creates missing parent folders server-side
	if err != nil {
		telemetry.RecordCloudRequest("create_directory", "error")
		return nil, err
	}
	if apiErr != nil {
		telemetry.RecordCloudRequest("create_directory", "error")
		return nil, domain.NewLadeError(domain.KindDirectoryCreationFailed, "cloud.create_directory", apiErr)
	}

	telemetry.RecordCloudRequest("create_directory", "ok")
	return &domain.Entry{
		ID:          resp.Metadata.ID,
		Kind:        domain.EntryFolder,
		Name:        resp.Metadata.Name,
		PathDisplay: rt.reattach(resp.Metadata.PathDisplay),
	}, nil
}

// CreateDirectoryTree creates root and each of subfolders beneath it. When
// existsOK is true an already-existing folder is treated as success.
func (c *Client) CreateDirectoryTree(ctx context.Context, root string, subfolders []string, existsOK bool) ([]domain.Entry, error) {
	paths := make([]string, 0, len(subfolders)+1)
	paths = append(paths, root)
	for _, sub := range subfolders {
		paths = append(paths, root+"/"+sub)
	}

	created := make([]domain.Entry, 0, len(paths))
	for _, p := range paths {
		entry, err := c.CreateDirectory(ctx, p, true)
		if err != nil {
			var ladeErr *domain.LadeError
			if existsOK && isAlreadyExists(err, &ladeErr) {
				existing, metaErr := c.Metadata(ctx, p)
				if metaErr != nil {
					return nil, metaErr
				}
				if existing != nil {
					created = append(created, *existing)
					continue
				}
			}
			return nil, err
		}
		created = append(created, *entry)
	}
	return created, nil
}

// CreateShareLink returns an existing share link for path if one exists,
// and only creates a new one when none does; links are never
// force-refreshed. For a workspace-rooted path the sharing endpoints
// require the file identifier rather than the path, so the entry is
// resolved via Metadata first.
func (c *Client) CreateShareLink(ctx context.Context, p string, isPublic bool) (*domain.ShareLink, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, p)
	if err != nil {
		return nil, err
	}

	target := rt.submitPath
	if rt.workspace {
		entry, err := c.metadataAt(ctx, rt)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			telemetry.RecordCloudRequest("create_share_link", "error")
			return nil, domain.NewLadeError(domain.KindCloudTransient, "cloud.create_share_link", fmt.Errorf("path not found: %s", p))
		}
		target = entry.ID
	}

	var listResp struct {
		Links []struct {
			URL       string `json:"url"`
			ExpiresAt string `json:"expires"`
		} `json:"links"`
	}
	apiErr, err := c.rpc(ctx, "sharing/list_shared_links", rt.pathRootHdr, map[string]any{"path": target, "direct_only": true}, &listResp)
	if err != nil {
		telemetry.RecordCloudRequest("create_share_link", "error")
		return nil, err
	}
	if apiErr != nil {
		telemetry.RecordCloudRequest("create_share_link", "error")
		return nil, classify("cloud.create_share_link", apiErr.StatusCode, nil, apiErr)
	}
	if len(listResp.Links) > 0 {
		telemetry.RecordCloudRequest("create_share_link", "existing")
		return &domain.ShareLink{URL: listResp.Links[0].URL, IsPublic: isPublic}, nil
	}

	visibility := "team_only"
	if isPublic {
		visibility = "public"
	}
	var createResp struct {
		URL string `json:"url"`
	}
	apiErr, err = c.rpc(ctx, "sharing/create_shared_link_with_settings", rt.pathRootHdr, map[string]any{
		"path":     target,
		"settings": map[string]any{"requested_visibility": visibility},
	}, &createResp)
	if err != nil {
		telemetry.RecordCloudRequest("create_share_link", "error")
		return nil, err
	}
	if apiErr != nil {
		telemetry.RecordCloudRequest("create_share_link", "error")
		return nil, classify("cloud.create_share_link", apiErr.StatusCode, nil, apiErr)
	}

	telemetry.RecordCloudRequest("create_share_link", "created")
	return &domain.ShareLink{URL: createResp.URL, IsPublic: isPublic}, nil
}

// SearchFallback searches the provider's full-account index for entries
// matching name under root, used only when Metadata reports not-found
// for a non-workspace-rooted path.
func (c *Client) SearchFallback(ctx context.Context, root, name string) ([]domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, root)
	if err != nil {
		return nil, err
	}

	var found []domain.Entry
	cursor := ""
	for page := 0; page < searchFallbackMaxPages; page++ {
		endpoint := "files/search_v2"
		body := map[string]any{
			"query": name,
			"options": map[string]any{
				"path":          rt.submitPath,
				"filename_only": true,
				"max_results":   100,
			},
		}
		if cursor != "" {
			endpoint = "files/search/continue_v2"
			body = map[string]any{"cursor": cursor}
		}

		var resp struct {
			Matches []struct {
				Metadata struct {
					Metadata struct {
						Tag         string `json:".tag"`
						ID          string `json:"id"`
						Name        string `json:"name"`
						PathDisplay string `json:"path_display"`
					} `json:"metadata"`
				} `json:"metadata"`
			} `json:"matches"`
			HasMore bool   `json:"has_more"`
			Cursor  string `json:"cursor"`
		}
		apiErr, err := c.rpc(ctx, endpoint, rt.pathRootHdr, body, &resp)
		if err != nil {
			telemetry.RecordCloudRequest("search_fallback", "error")
			return nil, err
		}
		if apiErr != nil {
			telemetry.RecordCloudRequest("search_fallback", "error")
			return nil, classify("cloud.search_fallback", apiErr.StatusCode, nil, apiErr)
		}

		for _, m := range resp.Matches {
			found = append(found, domain.Entry{
				ID:          m.Metadata.Metadata.ID,
				Kind:        entryKind(m.Metadata.Metadata.Tag),
				Name:        m.Metadata.Metadata.Name,
				PathDisplay: rt.reattach(m.Metadata.Metadata.PathDisplay),
			})
		}
		if !resp.HasMore {
			telemetry.RecordCloudRequest("search_fallback", "ok")
			return found, nil
		}
		cursor = resp.Cursor
	}

	telemetry.RecordCloudRequest("search_fallback", "truncated")
	return found, nil
}

// IsWorkspaceRooted reports whether path's leading segment names a
// known team workspace.
func (c *Client) IsWorkspaceRooted(ctx context.Context, p string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rt, err := c.router.Resolve(ctx, c.userID, p)
	if err != nil {
		return false, err
	}
	return rt.workspace, nil
}

// rpc performs one Dropbox API v2 JSON RPC call, returning a decoded
// *apiError for any non-2xx response instead of a Go error, so callers can
// distinguish "not found" from transport failure. pathRoot, when
// non-empty, is sent as the Dropbox-API-Path-Root header to address a
// team workspace namespace instead of the personal root.
func (c *Client) rpc(ctx context.Context, endpoint, pathRoot string, body any, out any) (*apiError, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, domain.NewLadeError(domain.KindCloudAuth, "cloud."+endpoint, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewLadeError(domain.KindLocalProgrammingError, "cloud."+endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewLadeError(domain.KindLocalProgrammingError, "cloud."+endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if pathRoot != "" {
		req.Header.Set("Dropbox-API-Path-Root", pathRoot)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewLadeError(domain.KindCloudTransient, "cloud."+endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewLadeError(domain.KindCloudTransient, "cloud."+endpoint, err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr, nil
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, domain.NewLadeError(domain.KindLocalProgrammingError, "cloud."+endpoint, err)
		}
	}
	return nil, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	src, err := c.credentials.TokenSource(ctx, c.userID)
	if err != nil {
		return "", err
	}
	tok, err := src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func entryKind(tag string) domain.EntryKind {
	if tag == "folder" {
		return domain.EntryFolder
	}
	return domain.EntryFile
}

// isAlreadyExists reports whether err represents a Dropbox
// folder-already-exists conflict, and if so assigns the underlying
// *domain.LadeError to target.
func isAlreadyExists(err error, target **domain.LadeError) bool {
	var ladeErr *domain.LadeError
	if !asLadeError(err, &ladeErr) {
		return false
	}
	apiErr, ok := ladeErr.Err.(*apiError)
	if !ok {
		return false
	}
	*target = ladeErr
	return apiErr.StatusCode == http.StatusConflict
}

func asLadeError(err error, target **domain.LadeError) bool {
	le, ok := err.(*domain.LadeError)
	if !ok {
		return false
	}
	*target = le
	return true
}

// apiWorkspaceResolver implements workspaceResolver against the live
// Dropbox "sharing/list_folders" endpoint, paginating through every
// shared folder the account can see and keying the result by folder
// name: for a team account, a top-level shared folder's name is the
// workspace segment users see in an absolute path, and its shared
// folder id doubles as the namespace id addressed by
// Dropbox-API-Path-Root.
type apiWorkspaceResolver struct {
	client *Client
}

func (r *apiWorkspaceResolver) listWorkspaces(ctx context.Context) (map[string]string, error) {
	workspaces := make(map[string]string)
	cursor := ""
	for {
		endpoint := "sharing/list_folders"
		body := map[string]any{"limit": 100}
		if cursor != "" {
			endpoint = "sharing/list_folders/continue"
			body = map[string]any{"cursor": cursor}
		}

		var resp struct {
			Entries []struct {
				Name           string `json:"name"`
				SharedFolderID string `json:"shared_folder_id"`
			} `json:"entries"`
			Cursor string `json:"cursor"`
		}
		apiErr, err := r.client.rpc(ctx, endpoint, "", body, &resp)
		if err != nil {
			return nil, err
		}
		if apiErr != nil {
			return nil, fmt.Errorf("%w: %s", errNamespaceUnresolved, apiErr.Error())
		}

		for _, e := range resp.Entries {
			workspaces[e.Name] = e.SharedFolderID
		}
		if resp.Cursor == "" {
			return workspaces, nil
		}
		cursor = resp.Cursor
	}
}
