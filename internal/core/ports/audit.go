package ports

import (
	"context"

	"github.com/caliber-data/lade/internal/core/domain"
)

// AuditService defines the interface for logging audit events.
type AuditService interface {
	// Log records an action. userID comes from ctx (see services/audit),
	// never from a parameter, so every call site carries the same
	// context-derived identity.
	Log(ctx context.Context, action domain.AuditAction, target, details string) error
	// GetLogs retrieves the most recent logs, newest first.
	GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// AuditRepository defines the persistence for audit logs.
type AuditRepository interface {
	SaveAuditLog(ctx context.Context, log domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
