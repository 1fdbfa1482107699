package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
	"github.com/yndnr/tuamail-go/internal/telemetry/logger"
)

// Verify validates the configuration. It creates the data directory when
// missing.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, path := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}

	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst < 1 {
		return errors.New("server.rate_limit.burst must be at least 1 when rps is set")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	for _, entry := range cfg.AdminAllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("server.admin_allow_list: %w", err)
			}
		} else if net.ParseIP(entry) == nil {
			return fmt.Errorf("server.admin_allow_list: invalid IP %q", entry)
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "file", "badger":
	default:
		return fmt.Errorf("storage.backend %q: must be file or badger", cfg.Backend)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}

	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	if cfg.SnapshotRetentionDays < 0 {
		return errors.New("storage.snapshot_retention_days cannot be negative")
	}
	if cfg.Backend == "badger" && cfg.BadgerGCInterval < 0 {
		return errors.New("storage.badger_gc_interval cannot be negative")
	}

	if cfg.EncryptionKey != "" && len(cfg.EncryptionKeyBytes()) < snapshot.MinKeyLength {
		return fmt.Errorf("storage.encryption_key must be at least %d bytes", snapshot.MinKeyLength)
	}

	switch cfg.RestoreFaultPolicy {
	case PolicyFail, PolicyReset:
	default:
		return fmt.Errorf("storage.restore_fault_policy %q: must be %s or %s",
			cfg.RestoreFaultPolicy, PolicyFail, PolicyReset)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Format)
	}
	return nil
}
