// Package audit records notable discovery-pipeline events. The acting
// user is always read from context, never passed as a parameter, so
// every call site carries the same context-derived identity — a plain
// userID string carried by LADE's background jobs, since login/session
// identity is out of scope here.
package audit

import (
	"context"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
)

type contextKey struct{}

var userContextKey = contextKey{}

// WithUser returns a context carrying userID for the audit log and for
// JobRunner.Enqueue's user-identity requirement.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserFromContext returns the user identity carried by ctx, or "" if
// none was set.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userContextKey).(string)
	return u
}

// AuditService logs events with the system identity "system" when no
// user is present in context (a background worker acting on its own
// behalf, e.g. a supervisor restart).
type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	userID := UserFromContext(ctx)
	if userID == "" {
		userID = "system"
	}

	entry, err := domain.NewAuditLog(userID, action, target, details)
	if err != nil {
		return err
	}

	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
