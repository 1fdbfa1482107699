package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5090"
	DefaultRateLimitRPS    = 50
	DefaultRateLimitBurst  = 100
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBackend               = "file"
	DefaultDataDir               = "/var/lib/tuamail-server/data"
	DefaultSnapshotKeep          = 5
	DefaultSnapshotRetentionDays = 30
	DefaultBadgerGCInterval      = 10 * time.Minute
	DefaultRestoreFaultPolicy    = PolicyFail

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Restore fault policies.
const (
	// PolicyFail refuses to start when the snapshot cannot be decoded.
	PolicyFail = "fail"
	// PolicyReset starts with empty state and reports degraded readiness.
	PolicyReset = "reset"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			RateLimit: RateLimitConfig{
				RPS:   DefaultRateLimitRPS,
				Burst: DefaultRateLimitBurst,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Backend:               DefaultBackend,
			DataDir:               DefaultDataDir,
			SnapshotKeep:          DefaultSnapshotKeep,
			SnapshotRetentionDays: DefaultSnapshotRetentionDays,
			BadgerGCInterval:      DefaultBadgerGCInterval,
			RestoreFaultPolicy:    DefaultRestoreFaultPolicy,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
	}
}
