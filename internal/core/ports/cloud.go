package ports

import (
	"context"

	"github.com/caliber-data/lade/internal/core/domain"
)

// CloudPort is the single seam between the discovery domain and a cloud
// storage provider. Implementations (internal/adapters/cloud/dropbox) own
// workspace routing, auth refresh, and raw-error-to-domain-error mapping;
// callers above this interface never see provider SDK types.
type CloudPort interface {
	// Metadata resolves a path to its entry. A not-found result is
	// reported as (nil, nil), never as an error, so callers can branch on
	// absence without an errors.Is check.
	Metadata(ctx context.Context, path string) (*domain.Entry, error)
	// ListFiles lists the immediate children of a folder path.
	ListFiles(ctx context.Context, path string) ([]domain.Entry, error)
	// CreateDirectory creates path, optionally creating missing parents.
	CreateDirectory(ctx context.Context, path string, parents bool) (*domain.Entry, error)
	// CreateDirectoryTree creates root and each of subfolders beneath it.
	// When existsOK is true, an already-existing folder is treated as
	// success rather than a conflict error.
	CreateDirectoryTree(ctx context.Context, root string, subfolders []string, existsOK bool) ([]domain.Entry, error)
	// CreateShareLink returns an existing share link for path if one is
	// present, and only creates a new one when none exists; share links
	// are never force-refreshed.
	CreateShareLink(ctx context.Context, path string, isPublic bool) (*domain.ShareLink, error)
	// SearchFallback searches the provider's full-account index for
	// entries matching name under root. Used only when Metadata reports
	// not-found for a path that is not workspace-rooted.
	SearchFallback(ctx context.Context, root, name string) ([]domain.Entry, error)
	// IsWorkspaceRooted reports whether path's leading segment names a
	// known team workspace, so callers can gate provider-specific
	// fallbacks (full-account search has no meaning inside a workspace
	// namespace) without depending on the concrete adapter.
	IsWorkspaceRooted(ctx context.Context, path string) (bool, error)
}
