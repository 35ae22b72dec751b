package discovery

import (
	"context"
	"fmt"
	"path"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
)

const cloudProviderDropbox = "dropbox"

// ArchiveSearchResult is the outcome of ArchiveFinder.Find.
type ArchiveSearchResult struct {
	Found          bool
	Path           string
	ShareURL       string
	CloudLocation  *domain.CloudLocation
}

// ArchiveFinder locates a lease's canonical archive directory without
// ever creating one. Constructed with its collaborators, mirroring the
// narrow constructor-injection style common to this codebase's services.
type ArchiveFinder struct {
	cloud ports.CloudPort
	locs  ports.CloudLocationRepository
}

func NewArchiveFinder(cloud ports.CloudPort, locs ports.CloudLocationRepository) *ArchiveFinder {
	return &ArchiveFinder{cloud: cloud, locs: locs}
}

// Find lists the canonical directory, and on a non-empty listing upserts
// the CloudLocation and fetches a public share link. An empty listing
// falls back to a direct metadata lookup and, for a path outside any
// team workspace, a filename search before being treated as not-found;
// no writes occur on the not-found branch.
func (f *ArchiveFinder) Find(ctx context.Context, lease *domain.Lease, cfg *domain.AgencyStorageConfig) (ArchiveSearchResult, error) {
	dir := cfg.ArchiveDir(lease.LeaseNumber)

	entries, err := f.cloud.ListFiles(ctx, dir)
	if err != nil {
		return ArchiveSearchResult{}, fmt.Errorf("archive_finder.list_files: %w", err)
	}
	if len(entries) > 0 {
		return f.materialize(ctx, dir)
	}

	exists, err := f.existsByFallback(ctx, dir)
	if err != nil {
		return ArchiveSearchResult{}, err
	}
	if !exists {
		return ArchiveSearchResult{Found: false, Path: dir}, nil
	}
	return f.materialize(ctx, dir)
}

// existsByFallback re-examines an empty directory listing through a
// direct metadata lookup and, when the path is not workspace-rooted, the
// provider's filename search API — some accounts report an empty
// listing for a directory a direct lookup can still resolve.
func (f *ArchiveFinder) existsByFallback(ctx context.Context, dir string) (bool, error) {
	entry, err := f.cloud.Metadata(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("archive_finder.metadata: %w", err)
	}
	if entry != nil {
		return true, nil
	}

	workspaceRooted, err := f.cloud.IsWorkspaceRooted(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("archive_finder.is_workspace_rooted: %w", err)
	}
	if workspaceRooted {
		return false, nil
	}

	matches, err := f.cloud.SearchFallback(ctx, path.Dir(dir), path.Base(dir))
	if err != nil {
		return false, fmt.Errorf("archive_finder.search_fallback: %w", err)
	}
	return len(matches) > 0, nil
}

func (f *ArchiveFinder) materialize(ctx context.Context, dir string) (ArchiveSearchResult, error) {
	link, err := f.cloud.CreateShareLink(ctx, dir, true)
	if err != nil {
		return ArchiveSearchResult{}, fmt.Errorf("archive_finder.create_share_link: %w", err)
	}

	loc := domain.NewCloudLocation(cloudProviderDropbox, dir, path.Base(dir), link)
	id, err := f.locs.Upsert(ctx, loc)
	if err != nil {
		return ArchiveSearchResult{}, fmt.Errorf("archive_finder.upsert_location: %w", err)
	}
	loc.ID = id

	result := ArchiveSearchResult{Found: true, Path: dir, CloudLocation: &loc}
	if link != nil {
		result.ShareURL = link.URL
	}
	return result, nil
}
