package service

import (
	"log/slog"
	"slices"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// ReminderService schedules reminders about emails.
//
// Timers are never cancelled. Each callback carries the identity and the
// RemindAt it was armed for, and only fires a reminder that still exists, is
// unfired and has that same RemindAt. Cancelled, dismissed and replaced
// reminders therefore turn their old callbacks into no-ops.
type ReminderService struct {
	stores  *memory.Stores
	sched   runloop.Scheduler
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewReminderService creates a new ReminderService.
func NewReminderService(stores *memory.Stores, sched runloop.Scheduler, opts ...Option) *ReminderService {
	o := buildOptions(opts)
	return &ReminderService{
		stores:  stores,
		sched:   sched,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Set schedules a reminder for owner about the addressed email, replacing
// any reminder with the same identity.
func (s *ReminderService) Set(owner, emailSender domain.Principal, emailTimestamp, remindAt uint64) (domain.Reminder, error) {
	now := s.sched.Now()
	if remindAt <= now {
		return domain.Reminder{}, domain.ErrInvalidTime
	}

	r := domain.Reminder{
		User:           owner,
		EmailSender:    emailSender,
		EmailTimestamp: emailTimestamp,
		RemindAt:       remindAt,
	}
	key := r.Key()

	s.stores.Reminders.Mutate(owner, newList[domain.Reminder], func(list *[]domain.Reminder) {
		*list = slices.DeleteFunc(*list, key.Matches)
		*list = append(*list, r)
	})
	s.arm(r, now)

	s.metrics.ReminderScheduled()
	s.logger.Debug("reminder scheduled",
		"owner", owner,
		"email_sender", emailSender,
		"email_timestamp", emailTimestamp,
		"remind_at", remindAt)

	return r, nil
}

// arm registers the callback of r relative to now.
func (s *ReminderService) arm(r domain.Reminder, now uint64) {
	key, at := r.Key(), r.RemindAt
	s.sched.After(runloop.Nanos(r.Delay(now)), func() {
		s.fire(key, at)
	})
}

// fire marks the reminder as fired if the callback is still current.
func (s *ReminderService) fire(key domain.ReminderKey, remindAt uint64) bool {
	fired := false
	s.stores.Reminders.Update(key.Owner, func(list *[]domain.Reminder) {
		for i := range *list {
			r := &(*list)[i]
			if key.Matches(*r) && !r.Fired && r.RemindAt == remindAt {
				r.Fired = true
				fired = true
				return
			}
		}
	})

	if !fired {
		s.metrics.ReminderStale()
		s.logger.Debug("stale reminder callback ignored",
			"owner", key.Owner,
			"email_sender", key.EmailSender,
			"email_timestamp", key.EmailTimestamp)
		return false
	}

	s.metrics.ReminderFired()
	s.logger.Debug("reminder fired",
		"owner", key.Owner,
		"email_sender", key.EmailSender,
		"email_timestamp", key.EmailTimestamp)
	return true
}

// Dismiss removes a fired reminder. Pending reminders are left alone.
// Returns whether a reminder was removed.
func (s *ReminderService) Dismiss(owner, emailSender domain.Principal, emailTimestamp uint64) bool {
	key := domain.ReminderKey{Owner: owner, EmailSender: emailSender, EmailTimestamp: emailTimestamp}
	return s.remove(key, func(r domain.Reminder) bool { return r.Fired })
}

// Cancel removes a reminder whatever its state.
// Returns whether a reminder was removed.
func (s *ReminderService) Cancel(owner, emailSender domain.Principal, emailTimestamp uint64) bool {
	key := domain.ReminderKey{Owner: owner, EmailSender: emailSender, EmailTimestamp: emailTimestamp}
	return s.remove(key, func(domain.Reminder) bool { return true })
}

func (s *ReminderService) remove(key domain.ReminderKey, allowed func(domain.Reminder) bool) bool {
	removed := false
	s.stores.Reminders.Update(key.Owner, func(list *[]domain.Reminder) {
		*list = slices.DeleteFunc(*list, func(r domain.Reminder) bool {
			if key.Matches(r) && allowed(r) {
				removed = true
				return true
			}
			return false
		})
	})
	return removed
}

// Due returns the fired reminders of owner that were not dismissed yet.
func (s *ReminderService) Due(owner domain.Principal) []domain.Reminder {
	list, _ := s.stores.Reminders.Get(owner)
	out := make([]domain.Reminder, 0, len(list))
	for _, r := range list {
		if r.Fired {
			out = append(out, r)
		}
	}
	return out
}

// List returns every reminder of owner, pending and fired.
func (s *ReminderService) List(owner domain.Principal) []domain.Reminder {
	return listOf(s.stores.Reminders, owner)
}

// Rearm arms a callback for every unfired reminder, typically right after a
// restore. Overdue reminders get a zero delay. Returns the number armed.
func (s *ReminderService) Rearm() int {
	now := s.sched.Now()

	armed := 0
	for _, e := range s.stores.Reminders.Sorted(domain.ComparePrincipals) {
		pending := make([]domain.Reminder, 0, len(e.Value))
		for _, r := range e.Value {
			if !r.Fired {
				pending = append(pending, r)
			}
		}
		slices.SortStableFunc(pending, domain.CompareReminders)

		for _, r := range pending {
			s.arm(r, now)
			armed++
		}
	}

	s.metrics.RemindersRearmedAdd(armed)
	s.logger.Info("reminders re-armed", "count", armed)
	return armed
}
