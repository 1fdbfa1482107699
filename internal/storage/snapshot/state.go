package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/yndnr/tuamail-go/internal/core/domain"
)

// Mailbox is the list of emails owned by one principal, in append order.
type Mailbox struct {
	Owner  domain.Principal `json:"owner"`
	Emails []domain.Email   `json:"emails"`
}

// StarSet is the set of starred email keys of one principal.
type StarSet struct {
	Owner domain.Principal  `json:"owner"`
	Keys  []domain.EmailKey `json:"keys"`
}

// Thread is one two-party conversation, in append order.
type Thread struct {
	Key      domain.ThreadKey     `json:"key"`
	Messages []domain.ChatMessage `json:"messages"`
}

// ReadMarker is the last-read timestamp of Reader for the thread with Other.
type ReadMarker struct {
	Reader    domain.Principal `json:"reader"`
	Other     domain.Principal `json:"other"`
	Timestamp uint64           `json:"timestamp"`
}

// ReminderList is the list of reminders owned by one principal.
type ReminderList struct {
	Owner     domain.Principal  `json:"owner"`
	Reminders []domain.Reminder `json:"reminders"`
}

// State is the ordered aggregate of every collection.
//
// It serializes as a JSON array of seven collections in the fixed order
// users, inbox, sent, stars, threads, read markers, reminders.
type State struct {
	Users       []domain.User
	Inbox       []Mailbox
	Sent        []Mailbox
	Stars       []StarSet
	Threads     []Thread
	ReadMarkers []ReadMarker
	Reminders   []ReminderList
}

// collections returns the state as the current seven-tuple, with nil
// collections normalized to empty ones.
func (s *State) collections() [7]any {
	return [7]any{
		orEmpty(s.Users),
		orEmpty(s.Inbox),
		orEmpty(s.Sent),
		orEmpty(s.Stars),
		orEmpty(s.Threads),
		orEmpty(s.ReadMarkers),
		orEmpty(s.Reminders),
	}
}

// MarshalJSON encodes the state in the current shape.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.collections())
}

// UnmarshalJSON decodes the current shape.
func (s *State) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != currentArity {
		return fmt.Errorf("snapshot: want %d collections, got %d", currentArity, len(parts))
	}

	var out State
	targets := []any{
		&out.Users,
		&out.Inbox,
		&out.Sent,
		&out.Stars,
		&out.Threads,
		&out.ReadMarkers,
		&out.Reminders,
	}
	if err := unmarshalParts(parts, targets); err != nil {
		return err
	}

	*s = out
	return nil
}

// legacyState is the three-collection shape written before chat, stars and
// reminders existed.
type legacyState struct {
	Users []domain.User
	Inbox []Mailbox
	Sent  []Mailbox
}

func (l *legacyState) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{orEmpty(l.Users), orEmpty(l.Inbox), orEmpty(l.Sent)})
}

func (l *legacyState) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != legacyArity {
		return fmt.Errorf("snapshot: want %d collections, got %d", legacyArity, len(parts))
	}

	var out legacyState
	if err := unmarshalParts(parts, []any{&out.Users, &out.Inbox, &out.Sent}); err != nil {
		return err
	}

	*l = out
	return nil
}

// upgrade lifts a legacy state into the current shape. Collections the
// legacy shape lacks start empty.
func (l *legacyState) upgrade() *State {
	return &State{
		Users: l.Users,
		Inbox: l.Inbox,
		Sent:  l.Sent,
	}
}

const (
	currentArity = 7
	legacyArity  = 3
)

var collectionNames = [currentArity]string{
	"users", "inbox", "sent", "stars", "threads", "read_markers", "reminders",
}

func unmarshalParts(parts []json.RawMessage, targets []any) error {
	for i, target := range targets {
		if err := json.Unmarshal(parts[i], target); err != nil {
			return fmt.Errorf("snapshot: decode %s: %w", collectionNames[i], err)
		}
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Counts summarizes the size of a state.
type Counts struct {
	Users       int `json:"users"`
	Emails      int `json:"emails"`
	SentEmails  int `json:"sent_emails"`
	Stars       int `json:"stars"`
	Threads     int `json:"threads"`
	Messages    int `json:"messages"`
	ReadMarkers int `json:"read_markers"`
	Reminders   int `json:"reminders"`
}

// Count computes the counts of s.
func (s *State) Count() Counts {
	c := Counts{
		Users:       len(s.Users),
		Threads:     len(s.Threads),
		ReadMarkers: len(s.ReadMarkers),
	}
	for _, mb := range s.Inbox {
		c.Emails += len(mb.Emails)
	}
	for _, mb := range s.Sent {
		c.SentEmails += len(mb.Emails)
	}
	for _, st := range s.Stars {
		c.Stars += len(st.Keys)
	}
	for _, th := range s.Threads {
		c.Messages += len(th.Messages)
	}
	for _, rl := range s.Reminders {
		c.Reminders += len(rl.Reminders)
	}
	return c
}
