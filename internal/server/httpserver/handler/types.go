package handler

import (
	"time"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// UserResponse is the response body for POST /v1/users/me.
type UserResponse struct {
	User    domain.User `json:"user"`
	Created bool        `json:"created"`
}

// SendMailRequest is the request body for POST /v1/mail.
type SendMailRequest struct {
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// EmailListResponse is the response body of the mailbox listings.
type EmailListResponse struct {
	Emails []domain.Email `json:"emails"`
	Total  int            `json:"total"`
}

// StarredKeysResponse is the response body for GET /v1/mail/starred/keys.
type StarredKeysResponse struct {
	Keys  []domain.EmailKey `json:"keys"`
	Total int               `json:"total"`
}

// MarkReadResponse is the response body for POST /v1/mail/{sender}/{timestamp}/read.
type MarkReadResponse struct {
	Updated bool `json:"updated"`
}

// StarRequest is the request body for PUT /v1/mail/{sender}/{timestamp}/star.
type StarRequest struct {
	Starred *bool `json:"starred"`
}

// StarResponse reports the star state of one email.
type StarResponse struct {
	Sender    domain.Principal `json:"sender"`
	Timestamp uint64           `json:"timestamp"`
	Starred   bool             `json:"starred"`
}

// SendChatRequest is the request body for POST /v1/chats/{other}/messages.
type SendChatRequest struct {
	Content string `json:"content"`
}

// ChatMessagesResponse is the response body for GET /v1/chats/{other}/messages.
type ChatMessagesResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	Total    int                  `json:"total"`
}

// ChatListResponse is the response body for GET /v1/chats.
type ChatListResponse struct {
	Chats       []domain.ChatPreview `json:"chats"`
	TotalUnread uint64               `json:"total_unread"`
}

// MarkChatReadResponse is the response body for POST /v1/chats/{other}/read.
type MarkChatReadResponse struct {
	OtherUser domain.Principal `json:"other_user"`
}

// SetReminderRequest is the request body for PUT /v1/reminders/{sender}/{timestamp}.
type SetReminderRequest struct {
	RemindAt uint64 `json:"remind_at"`
}

// ReminderListResponse is the response body of the reminder listings.
type ReminderListResponse struct {
	Reminders []domain.Reminder `json:"reminders"`
	Total     int               `json:"total"`
}

// RemovedResponse reports whether a delete-style operation removed a record.
type RemovedResponse struct {
	Removed bool `json:"removed"`
}
