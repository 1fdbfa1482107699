package domain

import (
	"errors"
	"strconv"
	"strings"
)

// DomainError is a failure with a stable, client-visible code.
//
// Codes read TM-<AREA>-<NNNN>. The first three digits of NNNN are the HTTP
// status the error maps to, so TM-MAIL-4001 is a 400 and TM-SYS-5030 a 503.
// Argument errors (TM-ARG-*) are always 400.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString("[" + e.Code + "] " + e.Message)
	if e.Details != "" {
		b.WriteString(": " + e.Details)
	}
	if e.Cause != nil {
		b.WriteString(" (" + e.Cause.Error() + ")")
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Status returns the HTTP status encoded in the code.
func (e *DomainError) Status() int { return StatusForCode(e.Code) }

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying details; the receiver is unchanged.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause; the receiver is unchanged.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// StatusForCode derives the HTTP status from an error code, falling back to
// 500 for codes outside the convention.
func StatusForCode(code string) int {
	if strings.HasPrefix(code, "TM-ARG-") {
		return 400
	}
	i := strings.LastIndexByte(code, '-')
	if i < 0 || len(code)-i-1 != 4 {
		return 500
	}
	n, err := strconv.Atoi(code[i+1:])
	if err != nil || n/10 < 400 || n/10 > 599 {
		return 500
	}
	return n / 10
}

func asDomain(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// IsDomainError reports whether err wraps a DomainError with the given code,
// or any DomainError when code is empty.
func IsDomainError(err error, code string) bool {
	de, ok := asDomain(err)
	return ok && (code == "" || de.Code == code)
}

// GetErrorCode returns the code of the DomainError in err's chain, or "".
func GetErrorCode(err error) string {
	if de, ok := asDomain(err); ok {
		return de.Code
	}
	return ""
}

// IsValidation reports whether err is a client error (4xx). Operations that
// fail validation leave no partial state behind.
func IsValidation(err error) bool {
	de, ok := asDomain(err)
	if !ok {
		return false
	}
	s := de.Status()
	return s >= 400 && s < 500
}

// Mail.
var (
	ErrEmptySubject    = NewDomainError("TM-MAIL-4001", "subject cannot be empty")
	ErrEmptyBody       = NewDomainError("TM-MAIL-4002", "body cannot be empty")
	ErrInvalidReceiver = NewDomainError("TM-MAIL-4003", "invalid receiver")
)

// Chat.
var (
	ErrEmptyContent        = NewDomainError("TM-CHAT-4001", "message cannot be empty")
	ErrSelfChat            = NewDomainError("TM-CHAT-4002", "cannot chat with yourself")
	ErrInvalidChatReceiver = NewDomainError("TM-CHAT-4003", "invalid receiver")
)

// ErrInvalidTime rejects a reminder that is not strictly in the future.
var ErrInvalidTime = NewDomainError("TM-RMD-4001", "reminder time must be in the future")

// ErrAnonymousCaller rejects calls without an authenticated principal.
var ErrAnonymousCaller = NewDomainError("TM-USER-4010", "anonymous caller not allowed")

// Snapshot faults.
var (
	// ErrRestoreFault: the snapshot matched neither the current nor the
	// legacy shape, and every store was reset to empty.
	ErrRestoreFault = NewDomainError("TM-SNAP-5001", "snapshot restore failed, state reset to empty")

	// ErrSaveFault: the pre-shutdown snapshot was not persisted, so the
	// upgrade transition is aborted.
	ErrSaveFault = NewDomainError("TM-SNAP-5002", "snapshot save failed")
)

// System.
var (
	ErrBadRequest         = NewDomainError("TM-SYS-4000", "bad request")
	ErrRateLimited        = NewDomainError("TM-SYS-4290", "too many requests")
	ErrInternalServer     = NewDomainError("TM-SYS-5000", "internal server error")
	ErrServiceUnavailable = NewDomainError("TM-SYS-5030", "service unavailable")
)

// Arguments.
var (
	ErrInvalidArgument = NewDomainError("TM-ARG-1001", "invalid argument")
	ErrMissingArgument = NewDomainError("TM-ARG-1002", "missing required argument")
)
