package domain

import "strings"

// PreviewLength is the number of runes kept in a chat preview.
const PreviewLength = 100

// previewMarker is appended to truncated previews.
const previewMarker = "..."

// ChatMessage is a single immutable message in a two-party thread.
type ChatMessage struct {
	Sender    Principal `json:"sender"`
	Receiver  Principal `json:"receiver"`
	Content   string    `json:"content"`
	Timestamp uint64    `json:"timestamp"`
}

// ThreadKey is the canonical key of a two-party conversation.
// Low always sorts before (or equal to) High.
type ThreadKey struct {
	Low  Principal `json:"low"`
	High Principal `json:"high"`
}

// NewThreadKey returns the canonical key for the pair, so that (a, b) and
// (b, a) resolve to the same thread.
func NewThreadKey(a, b Principal) ThreadKey {
	if ComparePrincipals(a, b) <= 0 {
		return ThreadKey{Low: a, High: b}
	}
	return ThreadKey{Low: b, High: a}
}

// Has reports whether p participates in the thread.
func (k ThreadKey) Has(p Principal) bool {
	return k.Low == p || k.High == p
}

// Other returns the participant that is not p.
func (k ThreadKey) Other(p Principal) Principal {
	if k.Low == p {
		return k.High
	}
	return k.Low
}

// CompareThreadKeys orders thread keys lexicographically.
func CompareThreadKeys(a, b ThreadKey) int {
	if c := ComparePrincipals(a.Low, b.Low); c != 0 {
		return c
	}
	return ComparePrincipals(a.High, b.High)
}

// ReadMarkerKey identifies the last-read timestamp of Reader for the thread
// shared with Other.
type ReadMarkerKey struct {
	Reader Principal `json:"reader"`
	Other  Principal `json:"other"`
}

// CompareReadMarkerKeys orders marker keys by reader, then other party.
func CompareReadMarkerKeys(a, b ReadMarkerKey) int {
	if c := ComparePrincipals(a.Reader, b.Reader); c != 0 {
		return c
	}
	return ComparePrincipals(a.Other, b.Other)
}

// ChatPreview summarizes one conversation from the caller's point of view.
type ChatPreview struct {
	OtherUser     Principal `json:"other_user"`
	LastMessage   string    `json:"last_message"`
	LastTimestamp uint64    `json:"last_timestamp"`
	UnreadCount   uint64    `json:"unread_count"`
}

// ValidateChat checks an outgoing chat message.
func ValidateChat(sender, receiver Principal, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if receiver.IsAnonymous() {
		return ErrInvalidChatReceiver
	}
	if sender == receiver {
		return ErrSelfChat
	}
	return nil
}

// Truncate shortens content to PreviewLength runes, appending a marker when
// anything was cut.
func Truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + previewMarker
}
