// Package snapshot serializes the complete in-memory state into one
// versioned blob and keeps blobs on disk.
//
// Envelope layout:
//
//	[magic:8 "TUAMSNAP"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (JSON state, or sealed bytes)
//	[checksum:32 SHA-256 of all bytes above]
//
// The header version selects the payload shape: 2 is the seven-collection
// array [users, inbox, sent, stars, threads, read_markers, reminders], 1 is
// the three-collection array [users, inbox, sent]. Payloads found without an
// envelope are sniffed against embedded JSON schemas, current shape first.
//
// Files are named snapshot-<timestamp>-<sequence>.snap.
package snapshot
