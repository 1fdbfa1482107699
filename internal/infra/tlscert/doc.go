// Package tlscert serves the HTTP server certificate and reloads it when the
// certificate or key file changes on disk.
package tlscert
