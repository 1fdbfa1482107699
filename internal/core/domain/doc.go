// Package domain defines the core domain models for tuamail.
//
// Domain models are plain values without any IO dependencies. This package
// contains:
//
//   - User: a principal known to the system
//   - Email, EmailKey: mail messages and their (sender, timestamp) address
//   - ChatMessage, ThreadKey, ChatPreview: two-party conversations
//   - Reminder, ReminderKey: deferred nudges about an addressed email
//   - Errors: coded domain errors
//
// Cross references between entities are by value. A reminder or a star points
// at an email through its EmailKey, never through a shared pointer, so the
// referenced email may disappear without invalidating the reference.
package domain
