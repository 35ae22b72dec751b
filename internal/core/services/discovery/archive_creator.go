package discovery

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/caliber-data/lade/internal/telemetry"
)

// ArchiveCreationResult is the outcome of ArchiveCreator.Create.
type ArchiveCreationResult struct {
	Success       bool
	Path          string
	ShareURL      string
	CloudLocation *domain.CloudLocation
}

// ArchiveCreator materializes a lease's archive directory and subfolder
// tree. Unlike ArchiveFinder it has side effects on the provider.
type ArchiveCreator struct {
	cloud ports.CloudPort
	locs  ports.CloudLocationRepository
}

func NewArchiveCreator(cloud ports.CloudPort, locs ports.CloudLocationRepository) *ArchiveCreator {
	return &ArchiveCreator{cloud: cloud, locs: locs}
}

// Create materializes the archive directory and its subfolder tree. The
// base-path precondition is checked first and is non-retryable; an empty
// subfolder list is a soft failure, never a panic.
func (c *ArchiveCreator) Create(ctx context.Context, lease *domain.Lease, cfg *domain.AgencyStorageConfig) (ArchiveCreationResult, error) {
	dir := cfg.ArchiveDir(lease.LeaseNumber)

	base, err := c.cloud.Metadata(ctx, cfg.BasePath)
	if err != nil {
		return ArchiveCreationResult{}, fmt.Errorf("archive_creator.metadata: %w", err)
	}
	if base == nil || !base.IsFolder() {
		return ArchiveCreationResult{}, domain.NewLadeError(domain.KindBasePathMissing, "archive_creator.base_path", domain.ErrBasePathMissing)
	}

	if len(cfg.Subfolders) == 0 {
		return ArchiveCreationResult{Success: false, Path: dir}, nil
	}

	entry, err := c.cloud.CreateDirectory(ctx, dir, true)
	if err != nil {
		return ArchiveCreationResult{}, fmt.Errorf("archive_creator.create_directory: %w", err)
	}
	if entry == nil {
		return ArchiveCreationResult{}, domain.NewLadeError(domain.KindDirectoryCreationFailed, "archive_creator.create_directory", errors.New("provider returned no entry"))
	}

	if _, err := c.cloud.CreateDirectoryTree(ctx, dir, cfg.Subfolders, true); err != nil {
		return ArchiveCreationResult{}, fmt.Errorf("archive_creator.create_directory_tree: %w", err)
	}

	link, err := c.cloud.CreateShareLink(ctx, dir, true)
	if err != nil {
		return ArchiveCreationResult{}, fmt.Errorf("archive_creator.create_share_link: %w", err)
	}

	loc := domain.NewCloudLocation(cloudProviderDropbox, dir, path.Base(dir), link)
	id, err := c.locs.Upsert(ctx, loc)
	if err != nil {
		return ArchiveCreationResult{}, fmt.Errorf("archive_creator.upsert_location: %w", err)
	}
	loc.ID = id

	telemetry.ArchiveCreated.WithLabelValues(string(cfg.Agency)).Inc()

	result := ArchiveCreationResult{Success: true, Path: dir, CloudLocation: &loc}
	if link != nil {
		result.ShareURL = link.URL
	}
	return result, nil
}
