package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// Default directories below DataDir.
const (
	DefaultSnapshotDir = "snapshots"
	DefaultBadgerDir   = "badger"
)

// Config configures the storage engine.
type Config struct {
	// Backend selects the stable backend: "file" (default) or "badger".
	Backend string

	// DataDir is the base directory for all storage files.
	DataDir string

	// Snapshot configures the file backend.
	Snapshot snapshot.Config

	// Badger configures the Badger backend.
	Badger BadgerConfig

	// EncryptionKey enables payload encryption when non-empty.
	EncryptionKey []byte

	// Logger is the structured logger.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metric.Registry
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		Backend:  BackendFile,
		DataDir:  dataDir,
		Snapshot: snapshot.DefaultConfig(filepath.Join(dataDir, DefaultSnapshotDir)),
		Badger:   DefaultBadgerConfig(filepath.Join(dataDir, DefaultBadgerDir)),
		Logger:   slog.Default(),
	}
}

// SaveInfo describes a successful Persist.
type SaveInfo struct {
	Backend   string          `json:"backend"`
	Location  string          `json:"location"`
	Size      int             `json:"size"`
	Checksum  string          `json:"checksum"`
	Counts    snapshot.Counts `json:"counts"`
	Encrypted bool            `json:"encrypted"`
	SavedAt   time.Time       `json:"saved_at"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// RestoreOutcome describes what Recover found.
type RestoreOutcome struct {
	Backend    string          `json:"backend"`
	Shape      snapshot.Shape  `json:"shape"`
	Size       int             `json:"size"`
	Counts     snapshot.Counts `json:"counts"`
	RestoredAt time.Time       `json:"restored_at"`
	Elapsed    time.Duration   `json:"elapsed"`
	Error      string          `json:"error,omitempty"`
}

// Faulted reports whether the restore hit a fault and state was reset.
func (o *RestoreOutcome) Faulted() bool {
	return o != nil && o.Shape == snapshot.ShapeFault
}

// Status is the last save and restore seen by the engine.
type Status struct {
	Backend     string          `json:"backend"`
	Encrypted   bool            `json:"encrypted"`
	LastSave    *SaveInfo       `json:"last_save,omitempty"`
	LastRestore *RestoreOutcome `json:"last_restore,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// Engine persists and recovers the stores through a backend.
type Engine struct {
	backend Backend
	codec   *snapshot.Codec
	cipher  *snapshot.Cipher

	logger  *slog.Logger
	metrics *metric.Registry

	mu     sync.Mutex
	status Status
}

// New opens the configured backend and creates an engine on top of it.
//
// This does NOT perform recovery. Call Recover() after New() to load
// existing data.
func New(cfg Config) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = filepath.Join(cfg.DataDir, DefaultSnapshotDir)
	}
	if cfg.Badger.Dir == "" {
		cfg.Badger.Dir = filepath.Join(cfg.DataDir, DefaultBadgerDir)
	}

	var backend Backend
	switch cfg.Backend {
	case "", BackendFile:
		fb, err := NewFileBackend(cfg.Snapshot, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("storage: create file backend: %w", err)
		}
		backend = fb
	case BackendBadger:
		bb, err := NewBadgerStable(cfg.Badger, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("storage: create badger backend: %w", err)
		}
		if cfg.Metrics != nil {
			if err := bb.RegisterMetrics(cfg.Metrics.Prometheus()); err != nil {
				cfg.Logger.Warn("register badger metrics failed", "error", err)
			}
		}
		backend = bb
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}

	engine, err := NewWithBackend(backend, cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return engine, nil
}

// NewWithBackend creates an engine on an already opened backend.
func NewWithBackend(backend Backend, cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c, err := snapshot.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("storage: init encryption: %w", err)
	}

	return &Engine{
		backend: backend,
		codec:   snapshot.NewCodec(snapshot.WithCipher(c)),
		cipher:  c,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		status: Status{
			Backend:   backend.Name(),
			Encrypted: c != nil,
		},
	}, nil
}

// Persist encodes every store and writes the blob to the backend.
//
// It must run on the execution loop, normally as the final task of
// Loop.Quiesce. Any failure is a domain.ErrSaveFault.
func (e *Engine) Persist(ctx context.Context, stores *memory.Stores) (*SaveInfo, error) {
	startTime := time.Now()

	state := stores.Export()
	blob, err := e.codec.Encode(state)
	if err == nil {
		err = ctx.Err()
	}
	var location string
	if err == nil {
		location, err = e.backend.Write(ctx, blob)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrSaveFault) {
			err = domain.ErrSaveFault.WithCause(err)
		}
		e.metrics.SnapshotSaved(false, 0)
		e.logger.Error("snapshot save failed", "backend", e.backend.Name(), "error", err)
		e.recordError(err)
		return nil, err
	}

	sum := sha256.Sum256(blob)
	info := &SaveInfo{
		Backend:   e.backend.Name(),
		Location:  location,
		Size:      len(blob),
		Checksum:  hex.EncodeToString(sum[:]),
		Counts:    state.Count(),
		Encrypted: e.cipher != nil,
		SavedAt:   time.Now(),
		Elapsed:   time.Since(startTime),
	}

	e.metrics.SnapshotSaved(true, len(blob))
	e.logger.Info("snapshot saved",
		"backend", info.Backend,
		"location", info.Location,
		"size_bytes", info.Size,
		"users", info.Counts.Users,
		"emails", info.Counts.Emails,
		"messages", info.Counts.Messages,
		"reminders", info.Counts.Reminders,
		"elapsed", info.Elapsed)

	e.mu.Lock()
	e.status.LastSave = info
	e.status.LastError = ""
	e.mu.Unlock()

	return info, nil
}

// Recover replaces the content of stores with the saved blob.
//
// Outcomes:
//   - no blob: stores are emptied, shape "empty"
//   - current or legacy shape: stores hold the decoded state
//   - anything else: stores are emptied, shape "fault", and the returned
//     error is domain.ErrRestoreFault
//
// It must run before the execution loop accepts requests.
func (e *Engine) Recover(ctx context.Context, stores *memory.Stores) (*RestoreOutcome, error) {
	startTime := time.Now()
	e.logger.Info("storage recovery started", "backend", e.backend.Name())

	outcome := &RestoreOutcome{Backend: e.backend.Name()}
	finish := func() {
		outcome.RestoredAt = time.Now()
		outcome.Elapsed = time.Since(startTime)
		e.mu.Lock()
		e.status.LastRestore = outcome
		e.mu.Unlock()
	}

	blob, err := e.backend.Read(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		stores.Reset()
		outcome.Shape = snapshot.ShapeEmpty
		finish()
		e.metrics.SnapshotRestored(string(snapshot.ShapeEmpty), 0)
		e.logger.Info("no snapshot found, starting with empty stores")
		return outcome, nil
	}

	var state *snapshot.State
	if err == nil {
		state, outcome.Shape, err = e.codec.Decode(blob)
	} else {
		err = domain.ErrRestoreFault.WithCause(err)
	}
	outcome.Size = len(blob)

	if err != nil {
		stores.Reset()
		outcome.Shape = snapshot.ShapeFault
		outcome.Error = err.Error()
		finish()
		e.metrics.SnapshotRestored(string(snapshot.ShapeFault), len(blob))
		e.logger.Error("snapshot restore failed, stores reset to empty",
			"backend", e.backend.Name(),
			"size_bytes", len(blob),
			"error", err)
		e.recordError(err)
		return outcome, err
	}

	stores.Import(state)
	outcome.Counts = state.Count()
	finish()

	e.metrics.SnapshotRestored(string(outcome.Shape), len(blob))
	e.logger.Info("snapshot restored",
		"shape", outcome.Shape,
		"size_bytes", outcome.Size,
		"users", outcome.Counts.Users,
		"emails", outcome.Counts.Emails,
		"threads", outcome.Counts.Threads,
		"reminders", outcome.Counts.Reminders,
		"elapsed", outcome.Elapsed)

	return outcome, nil
}

// Status returns the last save and restore.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	e.status.LastError = err.Error()
	e.mu.Unlock()
}

// Close closes the backend.
func (e *Engine) Close() error {
	e.logger.Info("shutting down storage engine")
	if err := e.backend.Close(); err != nil {
		e.logger.Error("close backend failed", "error", err)
		return err
	}
	e.logger.Info("storage engine shutdown complete")
	return nil
}
