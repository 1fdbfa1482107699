// Package main provides the entry point for tuamail-cli.
//
// tuamail-cli inspects, verifies and upgrades tuamail snapshot files
// offline. Exit status is 2 when a snapshot cannot be restored and 1 for
// any other failure.
//
// Usage:
//
//	tuamail-cli snapshot inspect /var/lib/tuamail/snapshots/snapshot-20240501120000-001.snap
//	tuamail-cli -o json snapshot verify --key "$KEY" FILE
//	tuamail-cli snapshot upgrade legacy.json current.snap
package main
