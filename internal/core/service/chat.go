package service

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// CanonicalKey returns the thread key shared by a and b, independent of
// argument order.
func CanonicalKey(a, b domain.Principal) domain.ThreadKey {
	return domain.NewThreadKey(a, b)
}

// ChatService manages two-party threads and read markers.
type ChatService struct {
	stores  *memory.Stores
	clock   runloop.Clock
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewChatService creates a new ChatService.
func NewChatService(stores *memory.Stores, clock runloop.Clock, opts ...Option) *ChatService {
	o := buildOptions(opts)
	return &ChatService{
		stores:  stores,
		clock:   clock,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Send appends a message to the thread between sender and receiver.
func (s *ChatService) Send(sender, receiver domain.Principal, content string) (domain.ChatMessage, error) {
	if err := domain.ValidateChat(sender, receiver, content); err != nil {
		return domain.ChatMessage{}, err
	}

	msg := domain.ChatMessage{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: s.clock.Now(),
	}
	appendTo(s.stores.Threads, CanonicalKey(sender, receiver), msg)

	s.metrics.ChatSent()
	s.logger.Debug("chat message appended",
		"sender", sender,
		"receiver", receiver,
		"timestamp", msg.Timestamp,
		"content", content)

	return msg, nil
}

// Thread returns the messages exchanged by caller and other, oldest first.
func (s *ChatService) Thread(caller, other domain.Principal) []domain.ChatMessage {
	return listOf(s.stores.Threads, CanonicalKey(caller, other))
}

// MarkRead moves caller's read marker for the thread with other to now.
// The thread does not have to exist.
func (s *ChatService) MarkRead(caller, other domain.Principal) uint64 {
	now := s.clock.Now()
	s.stores.ReadMarkers.Upsert(domain.ReadMarkerKey{Reader: caller, Other: other}, now)
	return now
}

// Previews summarizes every non-empty thread caller participates in, most
// recent conversation first. Threads with equal last timestamps keep
// canonical key order.
func (s *ChatService) Previews(caller domain.Principal) []domain.ChatPreview {
	var previews []domain.ChatPreview

	for _, e := range s.stores.Threads.Sorted(domain.CompareThreadKeys) {
		if !e.Key.Has(caller) || len(e.Value) == 0 {
			continue
		}

		other := e.Key.Other(caller)
		last := e.Value[len(e.Value)-1]
		previews = append(previews, domain.ChatPreview{
			OtherUser:     other,
			LastMessage:   domain.Truncate(last.Content),
			LastTimestamp: last.Timestamp,
			UnreadCount:   s.unread(caller, other, e.Value),
		})
	}

	slices.SortStableFunc(previews, func(a, b domain.ChatPreview) int {
		return cmp.Compare(b.LastTimestamp, a.LastTimestamp)
	})

	if previews == nil {
		return []domain.ChatPreview{}
	}
	return previews
}

// TotalUnread sums the unread counts over every thread of caller.
func (s *ChatService) TotalUnread(caller domain.Principal) uint64 {
	var total uint64
	for _, p := range s.Previews(caller) {
		total += p.UnreadCount
	}
	return total
}

// unread counts messages from other newer than caller's read marker.
func (s *ChatService) unread(caller, other domain.Principal, msgs []domain.ChatMessage) uint64 {
	marker, _ := s.stores.ReadMarkers.Get(domain.ReadMarkerKey{Reader: caller, Other: other})

	var n uint64
	for _, m := range msgs {
		if m.Sender == other && m.Timestamp > marker {
			n++
		}
	}
	return n
}
