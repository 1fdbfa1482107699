package domain

import "cmp"

// Reminder is a deferred nudge about an addressed email.
//
// At most one reminder exists per (User, EmailSender, EmailTimestamp).
type Reminder struct {
	User           Principal `json:"user"`
	EmailSender    Principal `json:"email_sender"`
	EmailTimestamp uint64    `json:"email_timestamp"`
	RemindAt       uint64    `json:"remind_at"`
	Fired          bool      `json:"fired"`
}

// Key returns the identity of the reminder.
func (r Reminder) Key() ReminderKey {
	return ReminderKey{
		Owner:          r.User,
		EmailSender:    r.EmailSender,
		EmailTimestamp: r.EmailTimestamp,
	}
}

// ReminderKey is the identity of a reminder.
type ReminderKey struct {
	Owner          Principal
	EmailSender    Principal
	EmailTimestamp uint64
}

// Matches reports whether r has this identity.
func (k ReminderKey) Matches(r Reminder) bool {
	return r.User == k.Owner && r.EmailSender == k.EmailSender && r.EmailTimestamp == k.EmailTimestamp
}

// Delay returns how long to wait, from now, until the reminder is due.
// Overdue reminders yield zero.
func (r Reminder) Delay(now uint64) uint64 {
	if r.RemindAt <= now {
		return 0
	}
	return r.RemindAt - now
}

// CompareReminders orders reminders by due time, then by email address.
func CompareReminders(a, b Reminder) int {
	if c := cmp.Compare(a.RemindAt, b.RemindAt); c != 0 {
		return c
	}
	if c := ComparePrincipals(a.EmailSender, b.EmailSender); c != 0 {
		return c
	}
	return cmp.Compare(a.EmailTimestamp, b.EmailTimestamp)
}
