package config

import (
	"encoding/hex"
	"time"
)

// ServerConfig is the root configuration for tuamail-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
	Metrics MetricsSection `koanf:"metrics"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	HTTP      HTTPConfig      `koanf:"http"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// ShutdownTimeout bounds the final snapshot save and the HTTP drain.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// AdminAllowList restricts /admin/v1/* to these IPs or CIDRs.
	// Empty means no restriction.
	AdminAllowList []string `koanf:"admin_allow_list"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// TLSEnabled reports whether both TLS files are configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// RateLimitConfig configures the per-client token bucket.
// RPS <= 0 disables rate limiting.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// StorageSection configures where the upgrade snapshot lives.
type StorageSection struct {
	// Backend is "file" or "badger".
	Backend string `koanf:"backend"`
	DataDir string `koanf:"data_dir"`

	// SnapshotKeep and SnapshotRetentionDays apply to the file backend.
	SnapshotKeep          int `koanf:"snapshot_keep"`
	SnapshotRetentionDays int `koanf:"snapshot_retention_days"`

	// BadgerGCInterval is the value log GC period of the badger backend.
	BadgerGCInterval time.Duration `koanf:"badger_gc_interval"`

	// EncryptionKey enables payload encryption when set (hex or raw, at
	// least 16 bytes).
	EncryptionKey string `koanf:"encryption_key"`

	// RestoreFaultPolicy is "fail" or "reset".
	RestoreFaultPolicy string `koanf:"restore_fault_policy"`
}

// EncryptionKeyBytes returns the master key: the hex-decoded value when
// EncryptionKey is valid hex, the raw bytes otherwise. Nil when unset.
func (s StorageSection) EncryptionKeyBytes() []byte {
	if s.EncryptionKey == "" {
		return nil
	}
	if b, err := hex.DecodeString(s.EncryptionKey); err == nil && len(b) > 0 {
		return b
	}
	return []byte(s.EncryptionKey)
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}
