// Package shutdown coordinates the upgrade boundary of the server.
//
// A termination signal starts a transition in two phases:
//
//   - prepare hooks run in registration order; the first failure aborts the
//     transition and the handler goes back to waiting for the next signal
//   - shutdown hooks run in reverse registration order once every prepare
//     hook succeeded
//
// The final snapshot save is a prepare hook, so a failed save keeps the
// process serving instead of exiting with unsaved state.
package shutdown
