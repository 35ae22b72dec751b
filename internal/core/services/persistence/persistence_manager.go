// Package persistence provides a buffered, best-effort writer for
// AuditLog entries: a channel plus a ticker decouples audit writes from
// the request/job path so a slow audit store never blocks a discovery
// workflow. Task-managed lease fields are never buffered here — those
// go through ports.LeaseRepository.UpdateTaskFields synchronously, since
// a concurrent workflow execution must never leave partial state.
package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/ports"
)

// AuditWriter batches AuditLog writes behind a bounded channel.
type AuditWriter struct {
	repo      ports.AuditRepository
	logChan   chan domain.AuditLog
	batchSize int
	interval  time.Duration
	enabled   bool
	mu        sync.RWMutex
}

// NewAuditWriter creates a writer with the given channel buffer size.
func NewAuditWriter(repo ports.AuditRepository, bufferSize int) *AuditWriter {
	return &AuditWriter{
		repo:      repo,
		logChan:   make(chan domain.AuditLog, bufferSize),
		batchSize: 50,
		interval:  2 * time.Second,
		enabled:   true,
	}
}

// Enqueue queues log for persistence if the writer is enabled. A full
// channel drops the entry rather than blocking the caller — audit
// durability is best-effort, never load-bearing for job correctness.
func (w *AuditWriter) Enqueue(log domain.AuditLog) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.enabled {
		return
	}
	select {
	case w.logChan <- log:
	default:
		slog.Warn("lade: audit writer buffer full, dropping entry", "action", log.Action, "target", log.Target)
	}
}

// SetEnabled toggles whether Enqueue accepts new entries.
func (w *AuditWriter) SetEnabled(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = enabled
}

// Start begins the flush loop; it returns once ctx is cancelled, after a
// final flush of whatever remains buffered.
func (w *AuditWriter) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	var buffer []domain.AuditLog

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.flush(buffer)
				return
			case entry := <-w.logChan:
				buffer = append(buffer, entry)
				if len(buffer) >= w.batchSize {
					w.flush(buffer)
					buffer = nil
				}
			case <-ticker.C:
				if len(buffer) > 0 {
					w.flush(buffer)
					buffer = nil
				}
			}
		}
	}()
}

func (w *AuditWriter) flush(buffer []domain.AuditLog) {
	if len(buffer) == 0 || w.repo == nil {
		return
	}
	for _, entry := range buffer {
		if err := w.repo.SaveAuditLog(context.Background(), entry); err != nil {
			slog.Error("lade: failed to persist audit log", "action", entry.Action, "error", err)
		}
	}
}
