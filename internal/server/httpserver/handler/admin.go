package handler

import (
	"net/http"
)

// handleSnapshotStatus handles GET /admin/v1/snapshot.
func (h *Handler) handleSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "TM-SYS-5030", "snapshot storage not configured", nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.snapshots.Status())
}
