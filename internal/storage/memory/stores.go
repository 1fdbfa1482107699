package memory

import (
	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
	"github.com/yndnr/tuamail-go/pkg/keyed"
)

// Stores is the root of all application state.
type Stores struct {
	Users       *keyed.Store[domain.Principal, domain.User]
	Inbox       *keyed.Store[domain.Principal, []domain.Email]
	Sent        *keyed.Store[domain.Principal, []domain.Email]
	Stars       *keyed.Store[domain.Principal, []domain.EmailKey]
	Threads     *keyed.Store[domain.ThreadKey, []domain.ChatMessage]
	ReadMarkers *keyed.Store[domain.ReadMarkerKey, uint64]
	Reminders   *keyed.Store[domain.Principal, []domain.Reminder]
}

// New creates empty stores.
func New() *Stores {
	return &Stores{
		Users:       keyed.New[domain.Principal, domain.User](),
		Inbox:       keyed.New[domain.Principal, []domain.Email](),
		Sent:        keyed.New[domain.Principal, []domain.Email](),
		Stars:       keyed.New[domain.Principal, []domain.EmailKey](),
		Threads:     keyed.New[domain.ThreadKey, []domain.ChatMessage](),
		ReadMarkers: keyed.New[domain.ReadMarkerKey, uint64](),
		Reminders:   keyed.New[domain.Principal, []domain.Reminder](),
	}
}

// Reset empties every store.
func (s *Stores) Reset() {
	s.Users.Clear()
	s.Inbox.Clear()
	s.Sent.Clear()
	s.Stars.Clear()
	s.Threads.Clear()
	s.ReadMarkers.Clear()
	s.Reminders.Clear()
}

// Empty reports whether no store holds any entry.
func (s *Stores) Empty() bool {
	return s.Users.Len() == 0 &&
		s.Inbox.Len() == 0 &&
		s.Sent.Len() == 0 &&
		s.Stars.Len() == 0 &&
		s.Threads.Len() == 0 &&
		s.ReadMarkers.Len() == 0 &&
		s.Reminders.Len() == 0
}

// Export copies the stores into a snapshot state. Entries are ordered by key
// so identical stores always export identical states.
func (s *Stores) Export() *snapshot.State {
	st := &snapshot.State{
		Users:       make([]domain.User, 0, s.Users.Len()),
		Inbox:       exportMailboxes(s.Inbox),
		Sent:        exportMailboxes(s.Sent),
		Stars:       make([]snapshot.StarSet, 0, s.Stars.Len()),
		Threads:     make([]snapshot.Thread, 0, s.Threads.Len()),
		ReadMarkers: make([]snapshot.ReadMarker, 0, s.ReadMarkers.Len()),
		Reminders:   make([]snapshot.ReminderList, 0, s.Reminders.Len()),
	}

	for _, e := range s.Users.Sorted(domain.ComparePrincipals) {
		st.Users = append(st.Users, e.Value)
	}
	for _, e := range s.Stars.Sorted(domain.ComparePrincipals) {
		st.Stars = append(st.Stars, snapshot.StarSet{Owner: e.Key, Keys: clone(e.Value)})
	}
	for _, e := range s.Threads.Sorted(domain.CompareThreadKeys) {
		st.Threads = append(st.Threads, snapshot.Thread{Key: e.Key, Messages: clone(e.Value)})
	}
	for _, e := range s.ReadMarkers.Sorted(domain.CompareReadMarkerKeys) {
		st.ReadMarkers = append(st.ReadMarkers, snapshot.ReadMarker{
			Reader:    e.Key.Reader,
			Other:     e.Key.Other,
			Timestamp: e.Value,
		})
	}
	for _, e := range s.Reminders.Sorted(domain.ComparePrincipals) {
		st.Reminders = append(st.Reminders, snapshot.ReminderList{Owner: e.Key, Reminders: clone(e.Value)})
	}
	return st
}

func exportMailboxes(store *keyed.Store[domain.Principal, []domain.Email]) []snapshot.Mailbox {
	out := make([]snapshot.Mailbox, 0, store.Len())
	for _, e := range store.Sorted(domain.ComparePrincipals) {
		out = append(out, snapshot.Mailbox{Owner: e.Key, Emails: clone(e.Value)})
	}
	return out
}

// Import replaces the content of every store with st. Collections sharing an
// owner or key are concatenated in order.
func (s *Stores) Import(st *snapshot.State) {
	s.Reset()
	if st == nil {
		return
	}

	for _, u := range st.Users {
		s.Users.Upsert(u.ID, u)
	}
	importMailboxes(s.Inbox, st.Inbox)
	importMailboxes(s.Sent, st.Sent)
	for _, set := range st.Stars {
		appendAll(s.Stars, set.Owner, set.Keys)
	}
	for _, th := range st.Threads {
		appendAll(s.Threads, th.Key, th.Messages)
	}
	for _, m := range st.ReadMarkers {
		s.ReadMarkers.Upsert(domain.ReadMarkerKey{Reader: m.Reader, Other: m.Other}, m.Timestamp)
	}
	for _, rl := range st.Reminders {
		appendAll(s.Reminders, rl.Owner, rl.Reminders)
	}
}

func importMailboxes(store *keyed.Store[domain.Principal, []domain.Email], boxes []snapshot.Mailbox) {
	for _, mb := range boxes {
		appendAll(store, mb.Owner, mb.Emails)
	}
}

func appendAll[K comparable, V any](store *keyed.Store[K, []V], key K, values []V) {
	store.Mutate(key, func() []V { return nil }, func(list *[]V) {
		*list = append(*list, values...)
	})
}

// clone copies s into a new, never nil, slice.
func clone[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}
