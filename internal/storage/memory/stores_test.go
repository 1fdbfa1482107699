package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
)

func populated() *Stores {
	s := New()
	alice, bob, carol := domain.Principal("alice"), domain.Principal("bob"), domain.Principal("carol")

	s.Users.Upsert(carol, domain.NewUser(carol, 3))
	s.Users.Upsert(alice, domain.NewUser(alice, 1))
	s.Users.Upsert(bob, domain.NewUser(bob, 2))

	mail := domain.Email{Sender: alice, Receiver: bob, Subject: "s", Body: "b", Timestamp: 10}
	s.Inbox.Upsert(bob, []domain.Email{mail})
	s.Sent.Upsert(alice, []domain.Email{mail})
	s.Stars.Upsert(bob, []domain.EmailKey{mail.Key()})
	s.Threads.Upsert(domain.NewThreadKey(alice, bob), []domain.ChatMessage{
		{Sender: alice, Receiver: bob, Content: "hey", Timestamp: 11},
	})
	s.ReadMarkers.Upsert(domain.ReadMarkerKey{Reader: bob, Other: alice}, 12)
	s.Reminders.Upsert(bob, []domain.Reminder{
		{User: bob, EmailSender: alice, EmailTimestamp: 10, RemindAt: 50},
	})
	return s
}

func TestStores_ExportOrdered(t *testing.T) {
	st := populated().Export()

	require.Len(t, st.Users, 3)
	require.Equal(t, domain.Principal("alice"), st.Users[0].ID)
	require.Equal(t, domain.Principal("bob"), st.Users[1].ID)
	require.Equal(t, domain.Principal("carol"), st.Users[2].ID)

	require.Equal(t, []snapshot.ReadMarker{{Reader: "bob", Other: "alice", Timestamp: 12}}, st.ReadMarkers)
	require.Len(t, st.Threads, 1)
	require.Equal(t, domain.ThreadKey{Low: "alice", High: "bob"}, st.Threads[0].Key)
}

func TestStores_ExportIsACopy(t *testing.T) {
	s := populated()
	st := s.Export()

	st.Inbox[0].Emails[0].Read = true

	inbox, _ := s.Inbox.Get("bob")
	require.False(t, inbox[0].Read)
}

func TestStores_ImportRoundTrip(t *testing.T) {
	src := populated()
	st := src.Export()

	dst := New()
	dst.Users.Upsert("stale", domain.NewUser("stale", 99))
	dst.Import(st)

	require.False(t, dst.Users.Has("stale"))
	require.Equal(t, st, dst.Export())
}

func TestStores_ImportNilResets(t *testing.T) {
	s := populated()
	s.Import(nil)
	require.True(t, s.Empty())
}

func TestStores_ImportMergesDuplicateOwners(t *testing.T) {
	s := New()
	s.Import(&snapshot.State{
		Inbox: []snapshot.Mailbox{
			{Owner: "bob", Emails: []domain.Email{{Sender: "a", Timestamp: 1}}},
			{Owner: "bob", Emails: []domain.Email{{Sender: "a", Timestamp: 2}}},
		},
	})

	inbox, ok := s.Inbox.Get("bob")
	require.True(t, ok)
	require.Len(t, inbox, 2)
	require.Equal(t, uint64(2), inbox[1].Timestamp)
}

func TestStores_EmptyCollectionsExportAsEmpty(t *testing.T) {
	s := New()
	s.Stars.Upsert("bob", nil)

	st := s.Export()
	require.NotNil(t, st.Stars[0].Keys)
	require.Empty(t, st.Stars[0].Keys)
}

func TestStores_Reset(t *testing.T) {
	s := populated()
	require.False(t, s.Empty())
	s.Reset()
	require.True(t, s.Empty())
}
