// Package handler provides HTTP request handlers for tuamail.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/core/service"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage"
	"github.com/yndnr/tuamail-go/internal/telemetry/logger"
)

// Executor runs closures on the single execution thread that owns the stores.
// *runloop.Loop implements it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
	Closed() bool
}

// StatusSource reports the last snapshot save and restore.
// *storage.Engine implements it.
type StatusSource interface {
	Status() storage.Status
}

// Config holds the collaborators of a Handler.
type Config struct {
	Service *service.Service
	Loop    Executor

	// Snapshots is optional; /admin/v1/snapshot answers 503 without it.
	Snapshots StatusSource

	// Metrics is optional; /metrics is not registered without it.
	Metrics http.Handler

	// Readiness is optional; a nil value is created ready.
	Readiness *Readiness

	Logger *slog.Logger
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	svc       *service.Service
	loop      Executor
	snapshots StatusSource
	metrics   http.Handler
	readiness *Readiness
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Readiness == nil {
		cfg.Readiness = NewReadiness()
		cfg.Readiness.MarkReady()
	}

	h := &Handler{
		svc:       cfg.Service,
		loop:      cfg.Loop,
		snapshots: cfg.Snapshots,
		metrics:   cfg.Metrics,
		readiness: cfg.Readiness,
		logger:    cfg.Logger,
		mux:       http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Readiness returns the readiness state served by /ready.
func (h *Handler) Readiness() *Readiness {
	return h.readiness
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}

	// Users
	h.mux.HandleFunc("POST /v1/users/me", h.handleGetOrCreateUser)

	// Mail
	h.mux.HandleFunc("POST /v1/mail", h.handleSendMail)
	h.mux.HandleFunc("GET /v1/mail/inbox", h.handleInbox)
	h.mux.HandleFunc("GET /v1/mail/sent", h.handleSent)
	h.mux.HandleFunc("GET /v1/mail/starred", h.handleStarredEmails)
	h.mux.HandleFunc("GET /v1/mail/starred/keys", h.handleStarredKeys)
	h.mux.HandleFunc("POST /v1/mail/{sender}/{timestamp}/read", h.handleMarkRead)
	h.mux.HandleFunc("PUT /v1/mail/{sender}/{timestamp}/star", h.handleToggleStar)
	h.mux.HandleFunc("GET /v1/mail/{sender}/{timestamp}/star", h.handleIsStarred)

	// Chat
	h.mux.HandleFunc("POST /v1/chats/{other}/messages", h.handleSendChat)
	h.mux.HandleFunc("GET /v1/chats/{other}/messages", h.handleChatMessages)
	h.mux.HandleFunc("POST /v1/chats/{other}/read", h.handleMarkChatRead)
	h.mux.HandleFunc("GET /v1/chats", h.handleChatList)

	// Reminders
	h.mux.HandleFunc("PUT /v1/reminders/{sender}/{timestamp}", h.handleSetReminder)
	h.mux.HandleFunc("DELETE /v1/reminders/{sender}/{timestamp}", h.handleCancelReminder)
	h.mux.HandleFunc("POST /v1/reminders/{sender}/{timestamp}/dismiss", h.handleDismissReminder)
	h.mux.HandleFunc("GET /v1/reminders", h.handleMyReminders)
	h.mux.HandleFunc("GET /v1/reminders/due", h.handleDueReminders)

	// Admin
	h.mux.HandleFunc("GET /admin/v1/snapshot", h.handleSnapshotStatus)
}

// run executes fn on the execution loop. It writes the error response and
// returns false when the loop did not run fn.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if h.loop == nil {
		h.handleServiceError(w, r, domain.ErrServiceUnavailable)
		return false
	}
	if err := h.loop.Do(r.Context(), fn); err != nil {
		h.handleServiceError(w, r, loopError(err))
		return false
	}
	return true
}

func loopError(err error) error {
	switch {
	case errors.Is(err, runloop.ErrTaskPanicked):
		return domain.ErrInternalServer.WithCause(err)
	case errors.Is(err, runloop.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return domain.ErrServiceUnavailable.WithCause(err)
	default:
		return err
	}
}

// caller returns the principal set by the caller middleware.
func caller(r *http.Request) domain.Principal {
	return domain.Principal(logger.CallerFromContext(r.Context()))
}

// emailKey parses the {sender}/{timestamp} path segments.
func (h *Handler) emailKey(w http.ResponseWriter, r *http.Request) (domain.EmailKey, bool) {
	sender := r.PathValue("sender")
	if sender == "" {
		h.writeError(w, r, http.StatusBadRequest, "TM-ARG-1002", "sender is required", nil)
		return domain.EmailKey{}, false
	}
	ts, err := strconv.ParseUint(r.PathValue("timestamp"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TM-ARG-1001", "timestamp must be an unsigned integer",
			map[string]string{"timestamp": r.PathValue("timestamp")})
		return domain.EmailKey{}, false
	}
	return domain.EmailKey{Sender: domain.Principal(sender), Timestamp: ts}, true
}

// decode reads a JSON request body into v.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "TM-SYS-4000", "invalid request body", nil)
		return false
	}
	return true
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	encodeResponse(w, r, status, NewResponse(getRequestID(r), data), h.logger)
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	w.Header().Set("X-Error-Code", code)
	encodeResponse(w, r, status, NewErrorResponse(getRequestID(r), code, message, details), h.logger)
}

// WriteError writes an error envelope. Middlewares use it so that every
// error body has the same shape; encoding failures go to slog.Default.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	w.Header().Set("X-Error-Code", code)
	encodeResponse(w, r, status, NewErrorResponse(getRequestID(r), code, message, details), slog.Default())
}

// encodeResponse writes the envelope. The status line is already sent when
// encoding fails, so the failure can only be logged.
func encodeResponse(w http.ResponseWriter, r *http.Request, status int, response *Response, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", response.RequestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.ErrorContext(r.Context(), "failed to encode response", "status", status, "error", err)
	}
}

// getRequestID extracts request ID from context or header.
func getRequestID(r *http.Request) string {
	if reqID := logger.RequestIDFromContext(r.Context()); reqID != "" {
		return reqID
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := de.Status()
		if status >= http.StatusInternalServerError {
			logger.L(r.Context()).Error("request failed", "code", de.Code, "error", err)
		}
		h.writeError(w, r, status, de.Code, de.Message, nil)
		return
	}

	// Generic internal error
	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "TM-SYS-5000", "internal server error", nil)
}

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	return domain.StatusForCode(code)
}
