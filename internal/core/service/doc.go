// Package service provides the domain services of tuamail.
//
// This package contains:
//
//   - UserService: lazy user registration
//   - MailService: inbox, sent list, read flags and stars
//   - ChatService: two-party threads, previews and read markers
//   - ReminderService: deferred reminders with self-invalidating timers
//   - Service: the operation facade combining the above
//
// Services are NOT thread-safe. Every call must happen on the execution
// loop (runloop.Loop.Do or a timer callback), which serializes all access to
// the stores.
package service
