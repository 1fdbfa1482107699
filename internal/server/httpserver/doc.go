// Package httpserver provides the HTTP/HTTPS server for tuamail.
//
// This package implements the external API using stdlib net/http:
//
//   - User endpoint: /v1/users/me
//   - Mail endpoints: /v1/mail, /v1/mail/{sender}/{timestamp}/...
//   - Chat endpoints: /v1/chats, /v1/chats/{other}/...
//   - Reminder endpoints: /v1/reminders, /v1/reminders/{sender}/{timestamp}
//   - Admin endpoints: /admin/v1/snapshot
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - TLS support with certificate hot reload
//   - Middleware chain: RequestID, Recover, Audit, RateLimit, Caller, Metrics
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
package httpserver
