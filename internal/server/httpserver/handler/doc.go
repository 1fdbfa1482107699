// Package handler provides HTTP request handlers for tuamail.
//
// This package contains handlers for all HTTP endpoints:
//
//   - mail.go: users, inbox, sent mail, read flags and stars
//   - chat.go: direct messages, read markers and previews
//   - reminder.go: email reminders
//   - admin.go: snapshot status
//   - health.go: health and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate path and body
//   - Run the service call on the execution loop
//   - Format and return the response envelope
//   - Map domain error codes to HTTP status codes
package handler
