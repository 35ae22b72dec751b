package web

import (
	"net/http"
	"strings"
)

// StatusHandler implements the read-only job-visibility endpoints:
// GET /internal/jobs/{id} and GET /internal/jobs, reading jobs.Runner's
// in-memory status ring.
type StatusHandler struct {
	Runner RunnerPort
}

// NewStatusHandler builds a StatusHandler.
func NewStatusHandler(runner RunnerPort) *StatusHandler {
	return &StatusHandler{Runner: runner}
}

// ServeGet handles GET /internal/jobs/{id}.
func (h *StatusHandler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/internal/jobs/")
	if id == "" {
		http.Error(w, "job id is required", http.StatusBadRequest)
		return
	}

	job, ok := h.Runner.Status(id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ServeList handles GET /internal/jobs.
func (h *StatusHandler) ServeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.Runner.List())
}
