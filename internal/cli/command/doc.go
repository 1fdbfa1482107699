// Package command defines the tuamail-cli commands on top of urfave/cli/v2.
//
// The CLI works offline on snapshot files: it never talks to a running
// server, so it is safe to point at the data directory of a stopped
// instance before or after an upgrade.
package command
