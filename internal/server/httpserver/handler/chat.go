package handler

import (
	"net/http"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// handleSendChat handles POST /v1/chats/{other}/messages.
func (h *Handler) handleSendChat(w http.ResponseWriter, r *http.Request) {
	other := domain.Principal(r.PathValue("other"))

	var req SendChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		msg domain.ChatMessage
		err error
	)
	if !h.run(w, r, func() {
		msg, err = h.svc.SendChat(caller(r), other, req.Content)
	}) {
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, msg)
}

// handleChatMessages handles GET /v1/chats/{other}/messages.
func (h *Handler) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	other := domain.Principal(r.PathValue("other"))

	var msgs []domain.ChatMessage
	if !h.run(w, r, func() {
		msgs = h.svc.ChatMessages(caller(r), other)
	}) {
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	h.writeJSON(w, r, http.StatusOK, ChatMessagesResponse{Messages: msgs, Total: len(msgs)})
}

// handleMarkChatRead handles POST /v1/chats/{other}/read.
func (h *Handler) handleMarkChatRead(w http.ResponseWriter, r *http.Request) {
	other := domain.Principal(r.PathValue("other"))

	if !h.run(w, r, func() {
		h.svc.MarkChatRead(caller(r), other)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, MarkChatReadResponse{OtherUser: other})
}

// handleChatList handles GET /v1/chats.
func (h *Handler) handleChatList(w http.ResponseWriter, r *http.Request) {
	var resp ChatListResponse
	if !h.run(w, r, func() {
		p := caller(r)
		resp.Chats = h.svc.ChatList(p)
		resp.TotalUnread = h.svc.Chat.TotalUnread(p)
	}) {
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
