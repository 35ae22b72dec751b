package domain

import "errors"

// ErrorKind classifies a failure for the job runner's retry policy. It
// is not a type hierarchy — a single CloudError wraps whichever kind
// applies so callers use errors.As, not type switches.
type ErrorKind int

const (
	// KindCloudTransient covers network errors, rate limiting, and 5xx
	// provider responses. Retryable with backoff.
	KindCloudTransient ErrorKind = iota
	// KindCloudAuth covers 401/403 responses. Retried once after a token
	// refresh; terminal on a second auth failure.
	KindCloudAuth
	// KindBasePathMissing means the agency's configured base path does not
	// exist in the provider. Not retryable; requires operator action.
	KindBasePathMissing
	// KindConfigDisabled means the agency's config has enabled=false.
	KindConfigDisabled
	// KindConfigMissing means no AgencyStorageConfig exists for the agency.
	KindConfigMissing
	// KindDirectoryCreationFailed covers provider rejection or partial
	// creation during ArchiveCreator materialization. Retryable, then
	// terminal once retries are exhausted.
	KindDirectoryCreationFailed
	// KindLocalProgrammingError covers schema drift or unexpected nulls.
	// Never retried, never silently swallowed.
	KindLocalProgrammingError
)

func (k ErrorKind) String() string {
	switch k {
	case KindCloudTransient:
		return "CloudTransient"
	case KindCloudAuth:
		return "CloudAuth"
	case KindBasePathMissing:
		return "BasePathMissing"
	case KindConfigDisabled:
		return "ConfigDisabled"
	case KindConfigMissing:
		return "ConfigMissing"
	case KindDirectoryCreationFailed:
		return "DirectoryCreationFailed"
	case KindLocalProgrammingError:
		return "LocalProgrammingError"
	default:
		return "Unknown"
	}
}

// Retryable reports whether the job runner's retry policy should schedule
// another attempt for this kind of failure.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindCloudTransient, KindCloudAuth, KindDirectoryCreationFailed:
		return true
	default:
		return false
	}
}

// LadeError is the single structured error type LADE's domain and
// services raise. Op names the failing operation (e.g. "cloud.list_files",
// "archive_creator.create_directory") for structured log fields.
type LadeError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *LadeError) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Op
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *LadeError) Unwrap() error { return e.Err }

// Retryable reports whether the retry policy should reschedule this error.
func (e *LadeError) Retryable() bool { return e.Kind.Retryable() }

// NewLadeError wraps err with a kind and an operation label.
func NewLadeError(kind ErrorKind, op string, err error) *LadeError {
	return &LadeError{Kind: kind, Op: op, Err: err}
}

// Sentinel errors for conditions that do not need a wrapped cause.
var (
	ErrBasePathMissing = errors.New("configured base path does not exist")
	ErrConfigDisabled  = errors.New("agency storage config is disabled")
	ErrConfigMissing   = errors.New("no storage config for agency")
)
