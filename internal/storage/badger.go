package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// Badger keys.
var (
	keyCurrent  = []byte("snapshot/current")
	keyPrevious = []byte("snapshot/previous")
)

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory.
	Dir string

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// MemTableSize is the size of each memtable in bytes.
	// Default: 64MB
	MemTableSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 1GB
	ValueLogFileSize int64
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20, // 64MB
		MemTableSize:     64 << 20, // 64MB
		ValueLogFileSize: 1 << 30,  // 1GB
	}
}

// BadgerStable keeps the snapshot blob in Badger.
//
// Every write moves the current blob to the previous slot in the same
// transaction, so one damaged write never leaves the store without a
// readable blob.
type BadgerStable struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime        atomic.Int64 // Unix milliseconds
	metricsGCRuns     prometheus.Counter
	metricsRegistered atomic.Bool

	closeOnce sync.Once
	closeErr  error
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewBadgerStable opens a Badger backend.
func NewBadgerStable(cfg BadgerConfig, logger *slog.Logger) (*BadgerStable, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBadgerConfig(cfg.Dir)
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = def.GCInterval
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = def.GCThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.MemTableSize <= 0 {
		cfg.MemTableSize = def.MemTableSize
	}
	if cfg.ValueLogFileSize <= 0 {
		cfg.ValueLogFileSize = def.ValueLogFileSize
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	// The blob is written once per upgrade; it must be on disk when
	// Write returns.
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &BadgerStable{
		db:     db,
		cfg:    cfg,
		logger: logger,

		metricsGCRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tuamail",
			Subsystem: "badger",
			Name:      "gc_rewritten_files_total",
			Help:      "Value log files rewritten by Badger garbage collection",
		}),

		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go b.gcLoop()

	logger.Info("badger backend started",
		"dir", cfg.Dir,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return b, nil
}

// Name implements Backend.
func (b *BadgerStable) Name() string {
	return BackendBadger
}

// Write implements Backend.
func (b *BadgerStable) Write(_ context.Context, blob []byte) (string, error) {
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyCurrent)
		switch {
		case err == nil:
			prev, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Set(keyPrevious, prev); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(keyCurrent, blob)
	})
	if err != nil {
		return "", fmt.Errorf("badger: write snapshot: %w", err)
	}
	return b.cfg.Dir + "#" + string(keyCurrent), nil
}

// Read implements Backend. It always returns the current blob, even one
// that fails verification, so corruption surfaces as a restore fault. The
// previous blob is kept under its own key for manual recovery only.
func (b *BadgerStable) Read(_ context.Context) ([]byte, error) {
	current, err := b.get(keyCurrent)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoSnapshot
	}
	return current, nil
}

func (b *BadgerStable) get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger: read %s: %w", key, err)
	}
	return value, nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
// Returns the number of rewritten value log files.
func (b *BadgerStable) GC() (int, error) {
	startTime := time.Now()

	runs := 0
	for {
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())
	b.metricsGCRuns.Add(float64(runs))

	b.logger.Debug("gc completed",
		"rewritten_files", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Size returns the LSM and value log sizes in bytes.
func (b *BadgerStable) Size() (lsm, vlog int64) {
	return b.db.Size()
}

// Close implements Backend. It is safe to call more than once.
func (b *BadgerStable) Close() error {
	b.closeOnce.Do(func() {
		b.logger.Info("shutting down badger backend")

		close(b.stopCh)
		<-b.doneCh

		if err := b.db.Close(); err != nil {
			b.closeErr = fmt.Errorf("close db: %w", err)
		}
	})
	return b.closeErr
}

// RegisterMetrics registers Badger size gauges and the GC counter.
func (b *BadgerStable) RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil || !b.metricsRegistered.CompareAndSwap(false, true) {
		return nil
	}

	return errors.Join(
		reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tuamail",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, func() float64 {
			lsm, _ := b.Size()
			return float64(lsm)
		})),
		reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tuamail",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, func() float64 {
			_, vlog := b.Size()
			return float64(vlog)
		})),
		reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tuamail",
			Subsystem: "badger",
			Name:      "last_gc_timestamp_seconds",
			Help:      "Unix timestamp of the last Badger GC run",
		}, func() float64 {
			return float64(b.lastGCTime.Load()) / 1000.0
		})),
		reg.Register(b.metricsGCRuns),
	)
}

// gcLoop runs periodic garbage collection.
func (b *BadgerStable) gcLoop() {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := b.GC(); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			}

		case <-b.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
