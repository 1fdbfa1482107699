package service

import (
	"log/slog"
	"slices"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// MailService handles email delivery, read flags and stars.
type MailService struct {
	stores  *memory.Stores
	clock   runloop.Clock
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewMailService creates a new MailService.
func NewMailService(stores *memory.Stores, clock runloop.Clock, opts ...Option) *MailService {
	o := buildOptions(opts)
	return &MailService{
		stores:  stores,
		clock:   clock,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Send delivers a new email to the receiver's inbox and records an identical
// copy in the sender's sent list. Nothing is stored when validation fails.
func (s *MailService) Send(sender, receiver domain.Principal, subject, body string) (domain.Email, error) {
	if err := domain.ValidateEmail(receiver, subject, body); err != nil {
		return domain.Email{}, err
	}

	email := domain.Email{
		Sender:    sender,
		Receiver:  receiver,
		Subject:   subject,
		Body:      body,
		Timestamp: s.clock.Now(),
	}

	appendTo(s.stores.Inbox, receiver, email)
	appendTo(s.stores.Sent, sender, email)

	s.metrics.MailDelivered()
	s.logger.Debug("mail delivered",
		"sender", sender,
		"receiver", receiver,
		"timestamp", email.Timestamp,
		"subject", subject)

	return email, nil
}

// Inbox returns the emails received by owner, oldest first.
func (s *MailService) Inbox(owner domain.Principal) []domain.Email {
	return listOf(s.stores.Inbox, owner)
}

// Sent returns the emails sent by owner, oldest first.
func (s *MailService) Sent(owner domain.Principal) []domain.Email {
	return listOf(s.stores.Sent, owner)
}

// MarkRead flags the addressed email in owner's inbox as read.
// Returns false if no such email exists.
func (s *MailService) MarkRead(owner, sender domain.Principal, timestamp uint64) bool {
	key := domain.EmailKey{Sender: sender, Timestamp: timestamp}

	found := false
	s.stores.Inbox.Update(owner, func(inbox *[]domain.Email) {
		for i := range *inbox {
			if (*inbox)[i].Key() == key {
				(*inbox)[i].Read = true
				found = true
				return
			}
		}
	})
	return found
}

// ToggleStar sets or clears the star on an email and echoes the requested
// state. Repeating a call changes nothing. The email does not have to exist.
func (s *MailService) ToggleStar(owner, sender domain.Principal, timestamp uint64, starred bool) bool {
	key := domain.EmailKey{Sender: sender, Timestamp: timestamp}

	if starred {
		s.stores.Stars.Mutate(owner, newList[domain.EmailKey], func(keys *[]domain.EmailKey) {
			if !slices.Contains(*keys, key) {
				*keys = append(*keys, key)
			}
		})
		return true
	}

	s.stores.Stars.Update(owner, func(keys *[]domain.EmailKey) {
		*keys = slices.DeleteFunc(*keys, func(k domain.EmailKey) bool { return k == key })
	})
	return false
}

// IsStarred reports whether owner starred the addressed email.
func (s *MailService) IsStarred(owner, sender domain.Principal, timestamp uint64) bool {
	keys, _ := s.stores.Stars.Get(owner)
	return slices.Contains(keys, domain.EmailKey{Sender: sender, Timestamp: timestamp})
}

// StarredKeys returns the addresses starred by owner, in starring order.
func (s *MailService) StarredKeys(owner domain.Principal) []domain.EmailKey {
	return listOf(s.stores.Stars, owner)
}

// StarredEmails resolves owner's stars against the inbox, then the sent
// list. Stars whose email cannot be found are skipped.
func (s *MailService) StarredEmails(owner domain.Principal) []domain.Email {
	keys, _ := s.stores.Stars.Get(owner)
	inbox, _ := s.stores.Inbox.Get(owner)
	sent, _ := s.stores.Sent.Get(owner)

	out := make([]domain.Email, 0, len(keys))
	for _, key := range keys {
		if e, ok := findEmail(inbox, key); ok {
			out = append(out, e)
			continue
		}
		if e, ok := findEmail(sent, key); ok {
			out = append(out, e)
		}
	}
	return out
}

func findEmail(emails []domain.Email, key domain.EmailKey) (domain.Email, bool) {
	for _, e := range emails {
		if e.Key() == key {
			return e, true
		}
	}
	return domain.Email{}, false
}
