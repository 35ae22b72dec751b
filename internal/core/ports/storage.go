package ports

import (
	"context"

	"github.com/caliber-data/lade/internal/core/domain"
)

// LeaseRepository persists Lease entities. Implementations must restrict
// write-back from the discovery workflow to domain.TaskManagedFields so a
// concurrent human edit to unrelated columns is never clobbered by a
// task's result, and each persistence step must be a single atomic
// update of that bounded field set.
type LeaseRepository interface {
	// FindByKey looks up a lease by (agency, lease_number). Returns
	// domain.ErrLeaseNotFound (via errors.Is) when absent.
	FindByKey(ctx context.Context, agency domain.Agency, leaseNumber string) (*domain.Lease, error)
	// FindByID looks up a lease by its primary key.
	FindByID(ctx context.Context, id uint) (*domain.Lease, error)
	// UpdateTaskFields writes only the task-managed columns
	// (runsheet_archive/runsheet_link/runsheet_report_found), never
	// touching any other column on the row.
	UpdateTaskFields(ctx context.Context, id uint, cloudLocationID *uint, runsheetLink *string, reportFound bool) error
}

// CloudLocationRepository persists CloudLocation entities, upserted by
// the (provider, path) natural key.
type CloudLocationRepository interface {
	// Upsert inserts or updates a CloudLocation keyed on (provider, path)
	// and returns the row's ID.
	Upsert(ctx context.Context, loc domain.CloudLocation) (uint, error)
	FindByID(ctx context.Context, id uint) (*domain.CloudLocation, error)
}

// ConfigRepository persists AgencyStorageConfig entities, one row per
// agency.
type ConfigRepository interface {
	FindByAgency(ctx context.Context, agency domain.Agency) (*domain.AgencyStorageConfig, error)
	Save(ctx context.Context, cfg domain.AgencyStorageConfig) error
	ListEnabled(ctx context.Context) ([]domain.AgencyStorageConfig, error)
}
