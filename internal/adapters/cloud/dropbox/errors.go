package dropbox

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/caliber-data/lade/internal/core/domain"
)

// apiError carries the decoded body of a non-2xx Dropbox API response,
// wrapping the raw failure in a typed value rather than surfacing the
// raw HTTP status to callers above the adapter boundary.
type apiError struct {
	StatusCode   int
	ErrorSummary string `json:"error_summary"`
}

func (e *apiError) Error() string {
	if e.ErrorSummary != "" {
		return e.ErrorSummary
	}
	return fmt.Sprintf("dropbox api error (status %d)", e.StatusCode)
}

// classify maps a raw non-2xx HTTP response into a *domain.LadeError
// for op. Callers handle "not found" via isNotFound before classifying,
// so every response reaching here is a genuine failure.
func classify(op string, statusCode int, decodeErr error, apiErr *apiError) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.NewLadeError(domain.KindCloudAuth, op, apiErr)
	case statusCode == http.StatusTooManyRequests:
		return domain.NewLadeError(domain.KindCloudTransient, op, apiErr)
	case statusCode >= 500:
		return domain.NewLadeError(domain.KindCloudTransient, op, apiErr)
	case statusCode == http.StatusConflict:
		// Dropbox returns 409 for both "not found" and genuine
		// conflicts; isNotFound distinguishes the two from the decoded
		// error_summary text before classify runs.
		return domain.NewLadeError(domain.KindCloudTransient, op, apiErr)
	case decodeErr != nil:
		return domain.NewLadeError(domain.KindLocalProgrammingError, op, decodeErr)
	default:
		// Remaining 4xx responses (400 malformed argument, 422) mean the
		// request itself was built wrong. Never retried.
		return domain.NewLadeError(domain.KindLocalProgrammingError, op, apiErr)
	}
}

// isNotFound reports whether a 409 conflict response describes a missing
// path rather than a real conflict (directory already exists, etc).
func isNotFound(apiErr *apiError) bool {
	if apiErr == nil {
		return false
	}
	return strings.Contains(apiErr.ErrorSummary, "path/not_found") || strings.Contains(apiErr.ErrorSummary, "not_found/")
}

var errNamespaceUnresolved = errors.New("dropbox: could not resolve team workspaces")
