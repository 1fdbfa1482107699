// Package storage moves the in-memory state across process replacements.
//
// The engine encodes every store into one snapshot blob before an upgrade
// and decodes it back on start. Blobs live in a stable backend:
//
//   - file: a directory of snapshot files with retention (default)
//   - badger: a Badger key-value store holding the current and previous blob
//
// There is no write-ahead log. Nothing written after the last successful
// Persist survives a crash.
package storage
