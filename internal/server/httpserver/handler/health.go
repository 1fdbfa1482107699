package handler

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/tuamail-go/internal/infra/buildinfo"
)

// Readiness tracks whether the server may take traffic.
//
// A server is not ready until reminders are re-armed after restore. A
// degraded server is ready but started from reset state.
type Readiness struct {
	ready atomic.Bool

	mu       sync.RWMutex
	degraded string
}

// NewReadiness returns a Readiness that is not ready yet.
func NewReadiness() *Readiness {
	return &Readiness{}
}

// MarkReady flags the server as ready.
func (r *Readiness) MarkReady() {
	r.ready.Store(true)
}

// Ready reports whether MarkReady was called.
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// SetDegraded records why the server runs degraded.
func (r *Readiness) SetDegraded(reason string) {
	r.mu.Lock()
	r.degraded = reason
	r.mu.Unlock()
}

// Degraded returns the degraded reason, if any.
func (r *Readiness) Degraded() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded, r.degraded != ""
}

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Get().Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.readiness.Ready() {
		h.writeError(w, r, http.StatusServiceUnavailable, "TM-SYS-5030", "not ready", nil)
		return
	}
	if h.loop == nil || h.loop.Closed() {
		h.writeError(w, r, http.StatusServiceUnavailable, "TM-SYS-5030", "shutting down", nil)
		return
	}

	body := map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if reason, ok := h.readiness.Degraded(); ok {
		body["status"] = "degraded"
		body["reason"] = reason
	}
	h.writeJSON(w, r, http.StatusOK, body)
}
