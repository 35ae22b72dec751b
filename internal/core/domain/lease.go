package domain

import (
	"errors"
	"fmt"
)

// Agency identifies the regulatory authority that governs a lease and
// determines which AgencyStorageConfig applies to it.
type Agency string

const (
	AgencyBLM   Agency = "BLM"
	AgencyNMSLO Agency = "NMSLO"
)

// IsValid reports whether the agency is a recognized system agency.
func (a Agency) IsValid() bool {
	switch a {
	case AgencyBLM, AgencyNMSLO:
		return true
	}
	return false
}

var (
	ErrEmptyLeaseNumber = errors.New("lease number cannot be empty")
	ErrInvalidAgency    = errors.New("invalid agency")
	ErrLeaseNotFound    = errors.New("lease not found")
)

// Lease is the unit of archival: an (agency, lease_number) identity that
// carries a reference to its CloudLocation archive and two scalar flags
// populated by the discovery workflow. LADE never creates or deletes
// leases; it only mutates the three task-managed fields below.
type Lease struct {
	ID       uint
	Agency   Agency
	LeaseNumber string

	CloudLocationID     *uint
	RunsheetLink        *string
	RunsheetReportFound bool
}

// NewLease is the designated factory for a Lease identity. LADE does not
// construct leases itself (they originate upstream); this factory exists
// for test fixtures and for documenting the identity invariant.
func NewLease(agency Agency, leaseNumber string) (*Lease, error) {
	if leaseNumber == "" {
		return nil, ErrEmptyLeaseNumber
	}
	if !agency.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAgency, agency)
	}
	return &Lease{Agency: agency, LeaseNumber: leaseNumber}, nil
}

// Key returns the stable (task, lease) dedup identity used by the job
// runner's dedup store.
func (l Lease) Key() string {
	return fmt.Sprintf("%s:%s", l.Agency, l.LeaseNumber)
}

// TaskManagedFields is the bounded field set a successful workflow
// execution is permitted to persist. Any persistence step touching a
// field outside this set is a programming error.
var TaskManagedFields = []string{"runsheet_archive", "runsheet_link", "runsheet_report_found"}

// IsTaskManagedFieldSet reports whether changedFields contains only names
// drawn from TaskManagedFields. Used by the write-hook gate to suppress
// self-retriggering loops: a write whose changed fields are exactly the
// task-managed set is the workflow's own write-back, not a fresh edit.
func IsTaskManagedFieldSet(changedFields []string) bool {
	if len(changedFields) == 0 {
		return false
	}
	managed := make(map[string]bool, len(TaskManagedFields))
	for _, f := range TaskManagedFields {
		managed[f] = true
	}
	for _, f := range changedFields {
		if !managed[f] {
			return false
		}
	}
	return true
}
