package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

func TestSendMail(t *testing.T) {
	f := newFixture(t)

	sent, err := f.svc.SendMail(alice, bob, "hello", "first mail")
	require.NoError(t, err)
	require.False(t, sent.Read)
	require.Equal(t, uint64(1_000), sent.Timestamp)

	inbox := f.svc.Inbox(bob)
	require.Len(t, inbox, 1)
	require.Equal(t, sent, inbox[0])

	outbox := f.svc.SentMail(alice)
	require.Len(t, outbox, 1)
	require.Equal(t, sent, outbox[0])

	require.Empty(t, f.svc.Inbox(alice))
	require.Empty(t, f.svc.SentMail(bob))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MailSent))
}

func TestSendMail_Validation(t *testing.T) {
	tests := []struct {
		name     string
		receiver domain.Principal
		subject  string
		body     string
		want     error
	}{
		{"empty subject", bob, "", "body", domain.ErrEmptySubject},
		{"blank subject", bob, "  \t", "body", domain.ErrEmptySubject},
		{"empty body", bob, "subject", "", domain.ErrEmptyBody},
		{"anonymous receiver", domain.AnonymousPrincipal, "subject", "body", domain.ErrInvalidReceiver},
		{"missing receiver", "", "subject", "body", domain.ErrInvalidReceiver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.SendMail(alice, tt.receiver, tt.subject, tt.body)
			require.ErrorIs(t, err, tt.want)
			require.True(t, domain.IsValidation(err))
			require.True(t, f.svc.Stores().Empty())
		})
	}
}

func TestSendMail_SelfAllowed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendMail(alice, alice, "note", "to self")
	require.NoError(t, err)
	require.Len(t, f.svc.Inbox(alice), 1)
	require.Len(t, f.svc.SentMail(alice), 1)
}

func TestInbox_AppendOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendMail(alice, carol, "one", "1")
	require.NoError(t, err)
	f.sched.Tick()
	_, err = f.svc.SendMail(bob, carol, "two", "2")
	require.NoError(t, err)

	inbox := f.svc.Inbox(carol)
	require.Len(t, inbox, 2)
	require.Equal(t, "one", inbox[0].Subject)
	require.Equal(t, "two", inbox[1].Subject)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)

	email, err := f.svc.SendMail(alice, bob, "hello", "body")
	require.NoError(t, err)

	require.False(t, f.svc.MarkRead(bob, alice, email.Timestamp+1))
	require.False(t, f.svc.MarkRead(alice, alice, email.Timestamp))
	require.True(t, f.svc.MarkRead(bob, alice, email.Timestamp))
	require.True(t, f.svc.Inbox(bob)[0].Read)

	// The sender's copy is independent.
	require.False(t, f.svc.SentMail(alice)[0].Read)
}

func TestInbox_ReturnsCopy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendMail(alice, bob, "hello", "body")
	require.NoError(t, err)

	inbox := f.svc.Inbox(bob)
	inbox[0].Subject = "changed"
	require.Equal(t, "hello", f.svc.Inbox(bob)[0].Subject)
}

func TestToggleStar_Idempotent(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.svc.ToggleStar(bob, alice, 7, true))
	require.True(t, f.svc.ToggleStar(bob, alice, 7, true))
	require.Equal(t, []domain.EmailKey{{Sender: alice, Timestamp: 7}}, f.svc.StarredKeys(bob))
	require.True(t, f.svc.IsStarred(bob, alice, 7))

	require.False(t, f.svc.ToggleStar(bob, alice, 7, false))
	require.False(t, f.svc.IsStarred(bob, alice, 7))
	require.Empty(t, f.svc.StarredKeys(bob))

	// Clearing a star that never existed is a no-op.
	require.False(t, f.svc.ToggleStar(carol, alice, 9, false))
	require.Empty(t, f.svc.StarredKeys(carol))
}

func TestStarredEmails(t *testing.T) {
	f := newFixture(t)

	received, err := f.svc.SendMail(alice, bob, "received", "r")
	require.NoError(t, err)
	f.sched.Tick()
	sent, err := f.svc.SendMail(bob, carol, "sent", "s")
	require.NoError(t, err)

	f.svc.ToggleStar(bob, sent.Sender, sent.Timestamp, true)
	f.svc.ToggleStar(bob, carol, 12345, true)
	f.svc.ToggleStar(bob, received.Sender, received.Timestamp, true)

	got := f.svc.StarredEmails(bob)
	require.Equal(t, []domain.Email{sent, received}, got)
	require.Len(t, f.svc.StarredKeys(bob), 3)
}
