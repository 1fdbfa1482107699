// Package runloop provides the single-threaded execution model of tuamail.
//
// Every request handler and every fired timer callback runs as a task on one
// loop goroutine, strictly one at a time and to completion. Stores therefore
// need no locks.
//
// Components:
//
//   - Scheduler: the clock oracle plus deferred execution, as seen by services
//   - Loop: the production scheduler backed by a goroutine and time.AfterFunc
//   - Virtual: a deterministic logical clock for tests, advanced by hand
//
// Timers cannot be cancelled. Callbacks must re-validate their target before
// mutating anything.
package runloop
