// Package config defines the tuamail-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (addresses, TLS files, storage policy)
//   - sanitize.go: masking of secrets for logging
//
// Configuration is loaded through internal/infra/confloader from defaults,
// a YAML file, a .env file and TUAMAIL_ environment variables.
package config
