package domain

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultReportDetectionPattern is applied whenever an AgencyStorageConfig
// is created without an explicit pattern.
const DefaultReportDetectionPattern = `(?i).*master documents.*`

var ErrEmptyBasePath = errors.New("runsheet_archive_base_path cannot be empty")

// AgencyStorageConfig is the per-agency configuration consulted by every
// LADE component. It is read-mostly and hot-reloadable: operators can
// change it without redeploying, so every field is re-read per workflow
// execution rather than cached for the process lifetime (the ConfigStore
// service applies its own short TTL in front of the repository).
type AgencyStorageConfig struct {
	Agency Agency

	// BasePath is normalized: one leading slash, no trailing slash.
	BasePath string

	// Subfolders is the ordered list of subfolder names materialized under
	// the per-lease directory. Each entry is normalized (leading/trailing
	// slashes stripped, blanks dropped). An empty list disables creation.
	Subfolders []string

	AutoCreateRunsheetArchives bool
	Enabled                    bool

	// ReportDetectionPattern is compiled lazily by ReportDetector; stored
	// here as source text so the config remains a plain, serializable
	// value (and because gorm models can't hold a *regexp.Regexp).
	ReportDetectionPattern string
}

// NewAgencyStorageConfig builds a config with agency defaults applied:
// auto-create and enabled both default true, and an empty pattern falls
// back to DefaultReportDetectionPattern.
func NewAgencyStorageConfig(agency Agency, basePath string, subfolders []string) (*AgencyStorageConfig, error) {
	normalizedBase := NormalizeBasePath(basePath)
	if normalizedBase == "" {
		return nil, ErrEmptyBasePath
	}
	return &AgencyStorageConfig{
		Agency:                     agency,
		BasePath:                   normalizedBase,
		Subfolders:                 NormalizeSubfolders(subfolders),
		AutoCreateRunsheetArchives: true,
		Enabled:                    true,
		ReportDetectionPattern:     DefaultReportDetectionPattern,
	}, nil
}

// Pattern returns the configured detection pattern, or the default when
// unset.
func (c AgencyStorageConfig) Pattern() string {
	if c.ReportDetectionPattern == "" {
		return DefaultReportDetectionPattern
	}
	return c.ReportDetectionPattern
}

// CompiledPattern compiles the agency's report detection regex.
// Case-insensitivity is enforced even if the operator forgets the
// `(?i)` prefix, since the detection pattern is documented as always
// case-insensitive.
func (c AgencyStorageConfig) CompiledPattern() (*regexp.Regexp, error) {
	pattern := c.Pattern()
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// ArchiveDir returns the normalized, lease-specific archive directory path
// this config resolves to: {base_path}/{lease_number}.
func (c AgencyStorageConfig) ArchiveDir(leaseNumber string) string {
	return NormalizePath(c.BasePath + "/" + leaseNumber)
}

// NormalizeBasePath enforces "one leading slash, no trailing slash".
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// NormalizePath collapses duplicate slashes and strips a trailing slash,
// preserving the leading slash. Used anywhere two path fragments are
// joined (base path + lease number, root + subfolder, ...).
func NormalizePath(p string) string {
	parts := strings.Split(p, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/")
}

// NormalizeSubfolders strips leading/trailing slashes from each subfolder
// name and drops blanks, preserving configured order.
func NormalizeSubfolders(subfolders []string) []string {
	out := make([]string, 0, len(subfolders))
	for _, s := range subfolders {
		s = strings.Trim(strings.TrimSpace(s), "/")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
