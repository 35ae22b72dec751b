package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
	"github.com/caliber-data/lade/internal/telemetry"
)

// Result is the shape returned by DiscoveryWorkflow.Execute.
type Result struct {
	Found         bool
	Path          string
	ShareURL      string
	LocationID    *uint
}

// FullResult additionally carries the ReportDetector outcome when Result
// reported found=true.
type FullResult struct {
	Search    Result
	Detection *ReportDetectionResult
}

// Workflow orchestrates ArchiveFinder -> (ArchiveCreator) -> persistence,
// the search-or-create step of the discovery pipeline. It is composed by
// storage struct fields, not embedding.
type Workflow struct {
	finder  *ArchiveFinder
	creator *ArchiveCreator
	leases  ports.LeaseRepository
}

func NewWorkflow(finder *ArchiveFinder, creator *ArchiveCreator, leases ports.LeaseRepository) *Workflow {
	return &Workflow{finder: finder, creator: creator, leases: leases}
}

// Execute runs the search-or-create sequence. strict controls how a
// BasePathMissing failure from ArchiveCreator is surfaced: when strict is
// true it propagates as an error (used by FullDiscoveryWorkflow, which
// lets the job runner apply retry policy); when false it is shaped into
// a not-found Result for best-effort secondary callers.
func (w *Workflow) Execute(ctx context.Context, lease *domain.Lease, cfg *domain.AgencyStorageConfig, strict bool) (Result, error) {
	if !cfg.Enabled {
		return Result{}, domain.NewLadeError(domain.KindConfigDisabled, "workflow.execute", domain.ErrConfigDisabled)
	}

	search, err := w.finder.Find(ctx, lease, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("workflow.find: %w", err)
	}

	if search.Found {
		if err := w.persistFound(ctx, lease, &search, nil); err != nil {
			return Result{}, err
		}
		return toResult(search), nil
	}

	if !cfg.AutoCreateRunsheetArchives {
		return Result{Found: false, Path: search.Path}, nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	created, err := w.creator.Create(ctx, lease, cfg)
	if err != nil {
		var lerr *domain.LadeError
		if !strict && errors.As(err, &lerr) && lerr.Kind == domain.KindBasePathMissing {
			return Result{Found: false, Path: search.Path}, nil
		}
		return Result{}, fmt.Errorf("workflow.create: %w", err)
	}
	if !created.Success {
		return Result{Found: false, Path: created.Path}, nil
	}

	if err := w.persistFound(ctx, lease, nil, &created); err != nil {
		return Result{}, err
	}
	return toCreatedResult(created), nil
}

func (w *Workflow) persistFound(ctx context.Context, lease *domain.Lease, search *ArchiveSearchResult, created *ArchiveCreationResult) error {
	var locationID *uint
	var link string

	switch {
	case search != nil:
		if search.CloudLocation != nil {
			id := search.CloudLocation.ID
			locationID = &id
		}
		link = search.ShareURL
	case created != nil:
		if created.CloudLocation != nil {
			id := created.CloudLocation.ID
			locationID = &id
		}
		link = created.ShareURL
	}

	var linkPtr *string
	if link != "" {
		linkPtr = &link
	}

	if err := w.leases.UpdateTaskFields(ctx, lease.ID, locationID, linkPtr, lease.RunsheetReportFound); err != nil {
		return fmt.Errorf("workflow.persist: %w", err)
	}
	return nil
}

func toResult(s ArchiveSearchResult) Result {
	var id *uint
	if s.CloudLocation != nil {
		v := s.CloudLocation.ID
		id = &v
	}
	return Result{Found: true, Path: s.Path, ShareURL: s.ShareURL, LocationID: id}
}

func toCreatedResult(c ArchiveCreationResult) Result {
	var id *uint
	if c.CloudLocation != nil {
		v := c.CloudLocation.ID
		id = &v
	}
	return Result{Found: true, Path: c.Path, ShareURL: c.ShareURL, LocationID: id}
}

// FullWorkflow runs Workflow and, when the search succeeded, additionally
// runs ReportDetector against the resolved path. Detection is skipped,
// and runsheet_report_found left unchanged, when the search did not find
// an archive.
type FullWorkflow struct {
	workflow *Workflow
	detector *ReportDetector
	leases   ports.LeaseRepository
	configs  ports.ConfigRepository
}

func NewFullWorkflow(workflow *Workflow, detector *ReportDetector, leases ports.LeaseRepository, configs ports.ConfigRepository) *FullWorkflow {
	return &FullWorkflow{workflow: workflow, detector: detector, leases: leases, configs: configs}
}

// Execute resolves the lease's AgencyStorageConfig and runs the full
// search-or-create-then-detect pipeline, always in strict mode (job-level
// retries are the job runner's responsibility, not this workflow's).
func (f *FullWorkflow) Execute(ctx context.Context, leaseID uint) (FullResult, error) {
	lease, err := f.leases.FindByID(ctx, leaseID)
	if err != nil {
		return FullResult{}, fmt.Errorf("full_workflow.find_lease: %w", err)
	}

	cfg, err := f.configs.FindByAgency(ctx, lease.Agency)
	if err != nil {
		return FullResult{}, domain.NewLadeError(domain.KindConfigMissing, "full_workflow.find_config", domain.ErrConfigMissing)
	}

	search, err := f.workflow.Execute(ctx, lease, cfg, true)
	if err != nil {
		return FullResult{}, err
	}

	if !search.Found {
		return FullResult{Search: search}, nil
	}

	if err := ctx.Err(); err != nil {
		return FullResult{}, err
	}

	pattern, err := cfg.CompiledPattern()
	if err != nil {
		return FullResult{}, domain.NewLadeError(domain.KindLocalProgrammingError, "full_workflow.compile_pattern", err)
	}

	detection, err := f.detector.Detect(ctx, search.Path, pattern)
	if err != nil {
		return FullResult{}, fmt.Errorf("full_workflow.detect: %w", err)
	}
	telemetry.ReportDetected.WithLabelValues(string(lease.Agency), strconv.FormatBool(detection.Found)).Inc()

	if err := f.leases.UpdateTaskFields(ctx, lease.ID, search.LocationID, nonEmptyPtr(search.ShareURL), detection.Found); err != nil {
		return FullResult{}, fmt.Errorf("full_workflow.persist_detection: %w", err)
	}

	return FullResult{Search: search, Detection: &detection}, nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
