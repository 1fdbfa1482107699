package handler

import (
	"net/http"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// handleSetReminder handles PUT /v1/reminders/{sender}/{timestamp}.
func (h *Handler) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var req SetReminderRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		rem domain.Reminder
		err error
	)
	if !h.run(w, r, func() {
		rem, err = h.svc.SetReminder(caller(r), key.Sender, key.Timestamp, req.RemindAt)
	}) {
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, rem)
}

// handleCancelReminder handles DELETE /v1/reminders/{sender}/{timestamp}.
func (h *Handler) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var removed bool
	if !h.run(w, r, func() {
		removed = h.svc.CancelReminder(caller(r), key.Sender, key.Timestamp)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, RemovedResponse{Removed: removed})
}

// handleDismissReminder handles POST /v1/reminders/{sender}/{timestamp}/dismiss.
// Only fired reminders can be dismissed.
func (h *Handler) handleDismissReminder(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var removed bool
	if !h.run(w, r, func() {
		removed = h.svc.DismissReminder(caller(r), key.Sender, key.Timestamp)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, RemovedResponse{Removed: removed})
}

// handleMyReminders handles GET /v1/reminders.
func (h *Handler) handleMyReminders(w http.ResponseWriter, r *http.Request) {
	var list []domain.Reminder
	if !h.run(w, r, func() {
		list = h.svc.MyReminders(caller(r))
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, reminderList(list))
}

// handleDueReminders handles GET /v1/reminders/due.
func (h *Handler) handleDueReminders(w http.ResponseWriter, r *http.Request) {
	var list []domain.Reminder
	if !h.run(w, r, func() {
		list = h.svc.DueReminders(caller(r))
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, reminderList(list))
}

func reminderList(list []domain.Reminder) ReminderListResponse {
	if list == nil {
		list = []domain.Reminder{}
	}
	return ReminderListResponse{Reminders: list, Total: len(list)}
}
