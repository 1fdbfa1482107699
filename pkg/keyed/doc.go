// Package keyed provides the generic associative store behind every
// tuamail entity collection.
//
// A Store is a plain map with a small, explicit contract:
//
//   - Get never mutates.
//   - Upsert replaces or inserts a value wholesale.
//   - Mutate fetches or creates an entry and edits it in place, which is how
//     append-style collections (inbox, sent, threads, reminders) grow.
//   - Keys are only removed by an explicit Delete or Clear.
//
// Thread Safety:
//
// Stores are not synchronized. They are owned by the single execution loop
// (see internal/infra/runloop) and must only be touched from tasks running on it.
package keyed
