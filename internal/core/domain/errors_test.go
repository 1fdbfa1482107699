package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	base := NewDomainError("TM-MAIL-4001", "subject cannot be empty")
	require.Equal(t, "[TM-MAIL-4001] subject cannot be empty", base.Error())
	require.Equal(t, "[TM-MAIL-4001] subject cannot be empty: trimmed",
		base.WithDetails("trimmed").Error())
	require.Equal(t, "[TM-MAIL-4001] subject cannot be empty (disk full)",
		base.WithCause(errors.New("disk full")).Error())
}

func TestDomainError_IsMatchesCode(t *testing.T) {
	a := NewDomainError("TM-CHAT-4002", "one")
	require.ErrorIs(t, a, NewDomainError("TM-CHAT-4002", "two"))
	require.NotErrorIs(t, a, NewDomainError("TM-CHAT-4001", "one"))
	require.NotErrorIs(t, a, errors.New("one"))

	wrapped := fmt.Errorf("restore: %w", ErrRestoreFault.WithDetails("bad header"))
	require.ErrorIs(t, wrapped, ErrRestoreFault)
}

func TestDomainError_CopiesDoNotMutate(t *testing.T) {
	cause := errors.New("root")
	withCause := ErrSaveFault.WithCause(cause)
	withBoth := withCause.WithDetails("fsync")

	require.Nil(t, ErrSaveFault.Cause)
	require.Empty(t, withCause.Details)
	require.Same(t, cause, errors.Unwrap(withBoth))
	require.Equal(t, "fsync", withBoth.Details)
	require.Equal(t, ErrSaveFault.Code, withBoth.Code)
	require.Nil(t, errors.Unwrap(ErrSaveFault))
}

func TestStatusForCode(t *testing.T) {
	tests := map[string]int{
		"TM-MAIL-4001":  400,
		"TM-USER-4010":  401,
		"TM-ADMIN-4031": 403,
		"TM-SYS-4290":   429,
		"TM-SNAP-5002":  500,
		"TM-SYS-5030":   503,
		"TM-ARG-1002":   400,
		"TM-X-9999":     500,
		"TM-X-401":      500,
		"TM-X-40a1":     500,
		"nodash":        500,
	}
	for code, want := range tests {
		require.Equal(t, want, StatusForCode(code), code)
	}
	require.Equal(t, 503, ErrServiceUnavailable.Status())
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrRestoreFault)
	require.True(t, IsDomainError(wrapped, "TM-SNAP-5001"))
	require.True(t, IsDomainError(wrapped, ""))
	require.False(t, IsDomainError(wrapped, "TM-SNAP-5002"))
	require.False(t, IsDomainError(errors.New("plain"), ""))
}

func TestGetErrorCode(t *testing.T) {
	require.Equal(t, "TM-CHAT-4002", GetErrorCode(ErrSelfChat))
	require.Equal(t, "TM-RMD-4001", GetErrorCode(fmt.Errorf("x: %w", ErrInvalidTime)))
	require.Empty(t, GetErrorCode(errors.New("plain")))
	require.Empty(t, GetErrorCode(nil))
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrEmptySubject, true},
		{ErrEmptyBody.WithDetails("x"), true},
		{ErrInvalidReceiver, true},
		{ErrEmptyContent, true},
		{ErrSelfChat, true},
		{ErrInvalidChatReceiver, true},
		{ErrInvalidTime, true},
		{ErrAnonymousCaller, true},
		{ErrMissingArgument, true},
		{ErrRestoreFault, false},
		{ErrSaveFault, false},
		{ErrInternalServer, false},
		{ErrServiceUnavailable, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsValidation(tt.err), "%v", tt.err)
	}
}
