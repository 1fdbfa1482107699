// Package main provides the entry point for tuamail-server.
//
// The server keeps all mail, chat and reminder state in memory and serves
// it over HTTP/HTTPS. State crosses process replacements through one
// snapshot blob:
//
//   - on start the latest snapshot is restored and reminders are re-armed
//     before the listener opens
//   - on SIGINT/SIGTERM the snapshot is saved first; if the save fails the
//     process keeps serving and waits for the next signal
//
// Usage:
//
//	tuamail-server [flags]
//	tuamail-server --config /etc/tuamail/server.yaml --env-file /etc/tuamail/.env
package main
