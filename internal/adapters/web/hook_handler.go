package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/caliber-data/lade/internal/core/domain"
	"github.com/caliber-data/lade/internal/core/services/audit"
)

// RunnerPort is the subset of *jobs.Runner the hook and status handlers
// depend on, narrowed to an interface so tests can substitute a fake
// without constructing a real queue/dedup store/workflow chain.
type RunnerPort interface {
	Enqueue(ctx context.Context, task domain.TaskName, leaseID uint, userID string) (bool, error)
	Status(id string) (domain.WorkflowJob, bool)
	List() []domain.WorkflowJob
}

// hookRequest is the wire shape of POST /internal/hooks/lease-write.
type hookRequest struct {
	LeaseID       uint     `json:"lease_id"`
	Agency        string   `json:"agency"`
	LeaseNumber   string   `json:"lease_number"`
	UserID        string   `json:"user_id"`
	ChangedFields []string `json:"changed_fields"`
}

// HookHandler implements POST /internal/hooks/lease-write, the write-hook
// trigger fired after a lease row commits. It performs the field-set
// gate (domain.IsTaskManagedFieldSet) before calling JobRunner.Enqueue,
// which is what suppresses a workflow's own write-back from
// re-triggering itself.
type HookHandler struct {
	Runner RunnerPort
	Audit  *audit.AuditService
}

// NewHookHandler builds a HookHandler.
func NewHookHandler(runner RunnerPort, auditSvc *audit.AuditService) *HookHandler {
	return &HookHandler{Runner: runner, Audit: auditSvc}
}

func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req hookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.LeaseID == 0 {
		http.Error(w, "lease_id is required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ctx := audit.WithUser(r.Context(), req.UserID)

	// Self-retrigger gate: a write whose changed fields are exactly the
	// task-managed set is the workflow's own write-back, not a fresh
	// human edit, and must not re-enqueue.
	if domain.IsTaskManagedFieldSet(req.ChangedFields) {
		slog.Info("lade: hook skipped, task-managed field set", "lease_id", req.LeaseID, "changed_fields", req.ChangedFields)
		writeJSON(w, http.StatusOK, map[string]any{"enqueued": false, "reason": "task_managed_fields_only"})
		return
	}

	target := fmt.Sprintf("%s:%s", req.Agency, req.LeaseNumber)
	enqueued, err := h.Runner.Enqueue(ctx, domain.TaskFullRunsheetDiscovery, req.LeaseID, req.UserID)
	if err != nil {
		slog.Error("lade: hook enqueue failed", "lease_id", req.LeaseID, "error", err)
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	action := domain.ActionJobDeduped
	if enqueued {
		action = domain.ActionJobEnqueued
	}
	if h.Audit != nil {
		if err := h.Audit.Log(ctx, action, target, string(domain.TaskFullRunsheetDiscovery)); err != nil {
			slog.Warn("lade: audit log write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"enqueued": enqueued})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
