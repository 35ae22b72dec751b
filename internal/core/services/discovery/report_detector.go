package discovery

import (
	"context"
	"fmt"
	"regexp"

	"github.com/caliber-data/lade/internal/core/ports"
)

// ReportDetectionResult is the outcome of ReportDetector.Detect.
type ReportDetectionResult struct {
	Found         bool
	MatchingFiles []string
	DirectoryPath string
}

// ReportDetector is a pure query: it never writes to the database.
type ReportDetector struct {
	cloud ports.CloudPort
}

func NewReportDetector(cloud ports.CloudPort) *ReportDetector {
	return &ReportDetector{cloud: cloud}
}

// Detect lists dir and returns every entry name matching pattern.
// pattern is expected pre-compiled case-insensitive via
// domain.AgencyStorageConfig.CompiledPattern.
func (d *ReportDetector) Detect(ctx context.Context, dir string, pattern *regexp.Regexp) (ReportDetectionResult, error) {
	entries, err := d.cloud.ListFiles(ctx, dir)
	if err != nil {
		return ReportDetectionResult{}, fmt.Errorf("report_detector.list_files: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if pattern.MatchString(e.Name) {
			matches = append(matches, e.Name)
		}
	}

	return ReportDetectionResult{
		Found:         len(matches) > 0,
		MatchingFiles: matches,
		DirectoryPath: dir,
	}, nil
}
