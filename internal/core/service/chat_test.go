package service

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

func TestCanonicalKey(t *testing.T) {
	require.Equal(t, CanonicalKey(alice, bob), CanonicalKey(bob, alice))
	require.Equal(t, alice, CanonicalKey(bob, alice).Low)
	require.NotEqual(t, CanonicalKey(alice, bob), CanonicalKey(alice, carol))
}

func TestSendChat_EitherOrder(t *testing.T) {
	f := newFixture(t)

	msg, err := f.svc.SendChat(alice, bob, "hi bob")
	require.NoError(t, err)

	require.Equal(t, []domain.ChatMessage{msg}, f.svc.ChatMessages(bob, alice))
	require.Equal(t, []domain.ChatMessage{msg}, f.svc.ChatMessages(alice, bob))
	require.Empty(t, f.svc.ChatMessages(alice, carol))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ChatMessagesSent))
}

func TestSendChat_Validation(t *testing.T) {
	tests := []struct {
		name     string
		receiver domain.Principal
		content  string
		want     error
	}{
		{"empty content", bob, "", domain.ErrEmptyContent},
		{"blank content", bob, "   ", domain.ErrEmptyContent},
		{"self chat", alice, "hi me", domain.ErrSelfChat},
		{"anonymous receiver", domain.AnonymousPrincipal, "hi", domain.ErrInvalidChatReceiver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.SendChat(alice, tt.receiver, tt.content)
			require.ErrorIs(t, err, tt.want)
			require.True(t, f.svc.Stores().Empty())
		})
	}
}

func TestChatList_UnreadCount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendChat(bob, alice, "t1")
	require.NoError(t, err)
	f.sched.Advance(10)
	_, err = f.svc.SendChat(bob, alice, "t2")
	require.NoError(t, err)

	// Marker lands at the timestamp of t2.
	f.svc.MarkChatRead(alice, bob)

	f.sched.Advance(10)
	last, err := f.svc.SendChat(bob, alice, "t3")
	require.NoError(t, err)
	f.sched.Tick()
	_, err = f.svc.SendChat(alice, bob, "own reply")
	require.NoError(t, err)

	previews := f.svc.ChatList(alice)
	require.Len(t, previews, 1)
	require.Equal(t, bob, previews[0].OtherUser)
	require.Equal(t, "own reply", previews[0].LastMessage)
	require.Equal(t, last.Timestamp+1, previews[0].LastTimestamp)
	require.Equal(t, uint64(1), previews[0].UnreadCount)
	require.Equal(t, uint64(1), f.svc.Chat.TotalUnread(alice))

	// Bob never marked anything read; only alice's message counts for him.
	require.Equal(t, uint64(1), f.svc.ChatList(bob)[0].UnreadCount)
}

func TestChatList_Ordering(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendChat(alice, bob, "old")
	require.NoError(t, err)
	f.sched.Advance(5)
	_, err = f.svc.SendChat(carol, alice, "new")
	require.NoError(t, err)

	previews := f.svc.ChatList(alice)
	require.Len(t, previews, 2)
	require.Equal(t, carol, previews[0].OtherUser)
	require.Equal(t, bob, previews[1].OtherUser)

	require.Empty(t, f.svc.ChatList("zzzzz-zz"))
}

func TestChatList_TieBreakByKey(t *testing.T) {
	f := newFixture(t)

	// Same virtual instant for both threads.
	_, err := f.svc.SendChat(carol, alice, "from carol")
	require.NoError(t, err)
	_, err = f.svc.SendChat(bob, alice, "from bob")
	require.NoError(t, err)

	previews := f.svc.ChatList(alice)
	require.Len(t, previews, 2)
	require.Equal(t, bob, previews[0].OtherUser)
	require.Equal(t, carol, previews[1].OtherUser)
}

func TestChatList_Truncation(t *testing.T) {
	f := newFixture(t)

	long := strings.Repeat("é", domain.PreviewLength+20)
	_, err := f.svc.SendChat(alice, bob, long)
	require.NoError(t, err)

	preview := f.svc.ChatList(bob)[0].LastMessage
	require.Equal(t, strings.Repeat("é", domain.PreviewLength)+"...", preview)
}

func TestMarkChatRead_NoThread(t *testing.T) {
	f := newFixture(t)

	f.svc.MarkChatRead(alice, carol)

	marker, ok := f.svc.Stores().ReadMarkers.Get(domain.ReadMarkerKey{Reader: alice, Other: carol})
	require.True(t, ok)
	require.Equal(t, uint64(1_000), marker)
	require.Empty(t, f.svc.ChatList(alice))
}
