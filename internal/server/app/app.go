// Package app assembles tuamail-server: storage engine, execution loop,
// services and the HTTP listener, and drives the upgrade lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"

	"github.com/yndnr/tuamail-go/internal/core/domain"
	"github.com/yndnr/tuamail-go/internal/core/service"
	"github.com/yndnr/tuamail-go/internal/infra/runloop"
	"github.com/yndnr/tuamail-go/internal/infra/tlscert"
	"github.com/yndnr/tuamail-go/internal/server/config"
	"github.com/yndnr/tuamail-go/internal/server/httpserver"
	"github.com/yndnr/tuamail-go/internal/server/httpserver/handler"
	"github.com/yndnr/tuamail-go/internal/storage"
	"github.com/yndnr/tuamail-go/internal/storage/memory"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

// App is one server process lifetime, from restore to the final save.
type App struct {
	cfg     *config.ServerConfig
	logger  *slog.Logger
	metrics *metric.Registry

	loop      *runloop.Loop
	stores    *memory.Stores
	svc       *service.Service
	engine    *storage.Engine
	readiness *handler.Readiness
	certs     *tlscert.Reloader
	http      *httpserver.Server

	restore *storage.RestoreOutcome
	armed   int
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics registry. Without it metrics are off.
func WithMetrics(reg *metric.Registry) Option {
	return func(a *App) {
		a.metrics = reg
	}
}

// New creates an App from a verified configuration. Nothing is opened
// until Start.
func New(cfg *config.ServerConfig, opts ...Option) *App {
	a := &App{
		cfg:       cfg,
		logger:    slog.Default(),
		readiness: handler.NewReadiness(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start restores state, re-arms reminders and begins serving HTTP.
//
// With the "fail" restore fault policy an unreadable snapshot aborts Start
// and leaves the blob untouched. With "reset" the server starts empty and
// /ready reports degraded.
func (a *App) Start(ctx context.Context) error {
	engine, err := storage.New(a.storageConfig())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	a.engine = engine

	a.loop = runloop.New(runloop.WithLogger(a.logger))
	a.stores = memory.New()
	a.svc = service.New(a.stores, a.loop,
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics))

	var restoreErr error
	if err := a.loop.Do(ctx, func() {
		a.restore, restoreErr = engine.Recover(ctx, a.stores)
	}); err != nil {
		a.abort()
		return fmt.Errorf("storage recovery: %w", err)
	}
	if restoreErr != nil {
		if !errors.Is(restoreErr, domain.ErrRestoreFault) || a.cfg.Storage.RestoreFaultPolicy != config.PolicyReset {
			a.abort()
			return fmt.Errorf("storage recovery: %w", restoreErr)
		}
		a.logger.Error("starting with empty state after restore fault",
			"policy", a.cfg.Storage.RestoreFaultPolicy, "error", restoreErr)
		a.readiness.SetDegraded("snapshot restore fault, state reset to empty")
	}

	if err := a.loop.Do(ctx, func() {
		a.armed = a.svc.RearmReminders()
	}); err != nil {
		a.abort()
		return fmt.Errorf("rearm reminders: %w", err)
	}

	if err := a.startHTTP(); err != nil {
		a.abort()
		return err
	}
	a.readiness.MarkReady()

	a.logger.Info("server started",
		"addr", a.Addr(),
		"tls", a.http.TLS(),
		"backend", engine.Status().Backend,
		"restored_shape", a.restore.Shape,
		"reminders_rearmed", a.armed)
	return nil
}

func (a *App) storageConfig() storage.Config {
	sc := a.cfg.Storage

	cfg := storage.DefaultConfig(sc.DataDir)
	cfg.Backend = sc.Backend
	cfg.Snapshot.RetentionCount = sc.SnapshotKeep
	cfg.Snapshot.RetentionDays = sc.SnapshotRetentionDays
	cfg.Badger.GCInterval = sc.BadgerGCInterval
	cfg.EncryptionKey = sc.EncryptionKeyBytes()
	cfg.Logger = a.logger
	cfg.Metrics = a.metrics
	cfg.Snapshot.Dir = filepath.Join(sc.DataDir, storage.DefaultSnapshotDir)
	cfg.Badger.Dir = filepath.Join(sc.DataDir, storage.DefaultBadgerDir)
	return cfg
}

func (a *App) startHTTP() error {
	hc := a.cfg.Server.HTTP

	var opts []httpserver.Option
	if hc.TLSEnabled() {
		certs, err := tlscert.New(hc.TLSCertFile, hc.TLSKeyFile, tlscert.WithLogger(a.logger))
		if err != nil {
			return fmt.Errorf("load tls certificate: %w", err)
		}
		if err := certs.Start(); err != nil {
			return fmt.Errorf("watch tls certificate: %w", err)
		}
		a.certs = certs
		opts = append(opts, httpserver.WithTLS(certs.TLSConfig()))
	}

	hcfg := handler.Config{
		Service:   a.svc,
		Loop:      a.loop,
		Snapshots: a.engine,
		Readiness: a.readiness,
		Logger:    a.logger,
	}
	if a.cfg.Metrics.Enabled && a.metrics != nil {
		hcfg.Metrics = a.metrics.Handler()
	}

	router, _ := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:        hcfg,
		Logger:         a.logger,
		Metrics:        a.metrics,
		RateLimitRPS:   a.cfg.Server.RateLimit.RPS,
		RateLimitBurst: a.cfg.Server.RateLimit.Burst,
		AdminAllowList: a.cfg.Server.AdminAllowList,
		EnableAudit:    true,
	})

	a.http = httpserver.New(hc.Addr, router, opts...)
	if err := a.http.Start(); err != nil {
		return fmt.Errorf("listen %s: %w", hc.Addr, err)
	}
	return nil
}

// abort releases what a failed Start opened.
func (a *App) abort() {
	if a.certs != nil {
		a.certs.Stop()
	}
	if a.loop != nil {
		a.loop.Close()
	}
	if a.engine != nil {
		_ = a.engine.Close()
	}
}

// Save persists all state as the final task of the execution loop.
//
// On success the loop accepts no further work. On failure the loop keeps
// running and the returned error is a domain.ErrSaveFault; the caller must
// abort the transition.
func (a *App) Save(ctx context.Context) error {
	return a.loop.Quiesce(ctx, func() error {
		_, err := a.engine.Persist(ctx, a.stores)
		return err
	})
}

// StopHTTP drains the HTTP listener.
func (a *App) StopHTTP(ctx context.Context) error {
	if a.http == nil {
		return nil
	}
	err := a.http.Shutdown(ctx)
	if a.certs != nil {
		a.certs.Stop()
	}
	return err
}

// Close stops the loop and closes the storage backend.
func (a *App) Close(context.Context) error {
	if a.loop != nil {
		a.loop.Close()
	}
	if a.engine != nil {
		return a.engine.Close()
	}
	return nil
}

// Addr returns the bound HTTP address.
func (a *App) Addr() net.Addr {
	if a.http == nil {
		return nil
	}
	return a.http.Addr()
}

// ServeErr delivers a fatal HTTP serve error.
func (a *App) ServeErr() <-chan error {
	if a.http == nil {
		return nil
	}
	return a.http.Err()
}

// Restore returns the outcome of the startup restore.
func (a *App) Restore() *storage.RestoreOutcome {
	return a.restore
}

// Rearmed returns how many reminders were re-armed at startup.
func (a *App) Rearmed() int {
	return a.armed
}

// Readiness returns the readiness state served by /ready.
func (a *App) Readiness() *handler.Readiness {
	return a.readiness
}

// Service exposes the operation facade. Calls must go through Do.
func (a *App) Service() *service.Service {
	return a.svc
}

// Do runs fn on the execution loop.
func (a *App) Do(ctx context.Context, fn func()) error {
	return a.loop.Do(ctx, fn)
}
