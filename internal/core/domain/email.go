package domain

import (
	"cmp"
	"strings"
)

// Email is a mail message. Only Read changes after creation.
//
// An email is addressed by its sender and timestamp; the pair is unique
// within a receiver's inbox.
type Email struct {
	Sender    Principal `json:"sender"`
	Receiver  Principal `json:"receiver"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp uint64    `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Key returns the address of the email.
func (e Email) Key() EmailKey {
	return EmailKey{Sender: e.Sender, Timestamp: e.Timestamp}
}

// EmailKey addresses an email by value.
type EmailKey struct {
	Sender    Principal `json:"sender"`
	Timestamp uint64    `json:"timestamp"`
}

// CompareEmailKeys orders keys by sender, then timestamp.
func CompareEmailKeys(a, b EmailKey) int {
	if c := ComparePrincipals(a.Sender, b.Sender); c != 0 {
		return c
	}
	return cmp.Compare(a.Timestamp, b.Timestamp)
}

// ValidateEmail checks the human-facing fields of an outgoing email.
func ValidateEmail(receiver Principal, subject, body string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if receiver.IsAnonymous() {
		return ErrInvalidReceiver.WithDetails("receiver must be a known principal")
	}
	return nil
}
