package handler

import (
	"net/http"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// handleGetOrCreateUser handles POST /v1/users/me.
func (h *Handler) handleGetOrCreateUser(w http.ResponseWriter, r *http.Request) {
	var (
		user    domain.User
		created bool
		err     error
	)
	if !h.run(w, r, func() {
		user, created, err = h.svc.GetOrCreateUser(caller(r))
	}) {
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, r, status, UserResponse{User: user, Created: created})
}

// handleSendMail handles POST /v1/mail.
func (h *Handler) handleSendMail(w http.ResponseWriter, r *http.Request) {
	var req SendMailRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		email domain.Email
		err   error
	)
	if !h.run(w, r, func() {
		email, err = h.svc.SendMail(caller(r), domain.Principal(req.Receiver), req.Subject, req.Body)
	}) {
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, email)
}

// handleInbox handles GET /v1/mail/inbox.
func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	var emails []domain.Email
	if !h.run(w, r, func() {
		emails = h.svc.Inbox(caller(r))
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, emailList(emails))
}

// handleSent handles GET /v1/mail/sent.
func (h *Handler) handleSent(w http.ResponseWriter, r *http.Request) {
	var emails []domain.Email
	if !h.run(w, r, func() {
		emails = h.svc.SentMail(caller(r))
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, emailList(emails))
}

// handleStarredEmails handles GET /v1/mail/starred.
func (h *Handler) handleStarredEmails(w http.ResponseWriter, r *http.Request) {
	var emails []domain.Email
	if !h.run(w, r, func() {
		emails = h.svc.StarredEmails(caller(r))
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, emailList(emails))
}

// handleStarredKeys handles GET /v1/mail/starred/keys.
func (h *Handler) handleStarredKeys(w http.ResponseWriter, r *http.Request) {
	var keys []domain.EmailKey
	if !h.run(w, r, func() {
		keys = h.svc.StarredKeys(caller(r))
	}) {
		return
	}
	if keys == nil {
		keys = []domain.EmailKey{}
	}
	h.writeJSON(w, r, http.StatusOK, StarredKeysResponse{Keys: keys, Total: len(keys)})
}

// handleMarkRead handles POST /v1/mail/{sender}/{timestamp}/read.
func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var updated bool
	if !h.run(w, r, func() {
		updated = h.svc.MarkRead(caller(r), key.Sender, key.Timestamp)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, MarkReadResponse{Updated: updated})
}

// handleToggleStar handles PUT /v1/mail/{sender}/{timestamp}/star.
func (h *Handler) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var req StarRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Starred == nil {
		h.writeError(w, r, http.StatusBadRequest, "TM-ARG-1002", "starred is required", nil)
		return
	}

	var starred bool
	if !h.run(w, r, func() {
		starred = h.svc.ToggleStar(caller(r), key.Sender, key.Timestamp, *req.Starred)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, StarResponse{Sender: key.Sender, Timestamp: key.Timestamp, Starred: starred})
}

// handleIsStarred handles GET /v1/mail/{sender}/{timestamp}/star.
func (h *Handler) handleIsStarred(w http.ResponseWriter, r *http.Request) {
	key, ok := h.emailKey(w, r)
	if !ok {
		return
	}

	var starred bool
	if !h.run(w, r, func() {
		starred = h.svc.IsStarred(caller(r), key.Sender, key.Timestamp)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, StarResponse{Sender: key.Sender, Timestamp: key.Timestamp, Starred: starred})
}

func emailList(emails []domain.Email) EmailListResponse {
	if emails == nil {
		emails = []domain.Email{}
	}
	return EmailListResponse{Emails: emails, Total: len(emails)}
}
