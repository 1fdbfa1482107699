// Package memory holds the in-memory state of tuamail.
//
// A Stores value owns one keyed store per collection. It is not safe for
// concurrent use: every access happens on the execution loop. Export and
// Import convert to and from the snapshot state in a deterministic order.
package memory
