package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yndnr/tuamail-go/internal/infra/buildinfo"
	"github.com/yndnr/tuamail-go/internal/infra/confloader"
	"github.com/yndnr/tuamail-go/internal/infra/shutdown"
	"github.com/yndnr/tuamail-go/internal/server/app"
	"github.com/yndnr/tuamail-go/internal/server/config"
	"github.com/yndnr/tuamail-go/internal/telemetry/logger"
	"github.com/yndnr/tuamail-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", ".env", "Path to a .env file (ignored when missing)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("tuamail-server " + buildinfo.String())
		return nil
	}

	loadOpts := []confloader.Option{confloader.WithDotEnvFile(*envFile)}
	cfg, err := loadConfig(*configFile, loadOpts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting tuamail-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"settings", config.Sanitize(cfg))

	var reg *metric.Registry
	if cfg.Metrics.Enabled {
		reg = metric.Global()
	}

	ctx := context.Background()
	server := app.New(cfg, app.WithLogger(slogLogger), app.WithMetrics(reg))
	if err := server.Start(ctx); err != nil {
		return err
	}

	if *configFile != "" {
		watcher, err := app.WatchLogLevel(*configFile, slogLogger, loadOpts...)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, shutdown.WithLogger(slogLogger))

	// The snapshot must be durable before anything stops.
	shutdownHandler.OnPrepare("snapshot", server.Save)

	// Shutdown hooks run in reverse order of registration.
	shutdownHandler.OnShutdown("storage", server.Close)
	shutdownHandler.OnShutdown("http", server.StopHTTP)

	go func() {
		if err, ok := <-server.ServeErr(); ok {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	log.Info("server ready, send SIGTERM to save and stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file, .env and environment.
func loadConfig(configFile string, opts []confloader.Option) (*config.ServerConfig, error) {
	cfg := config.Default()

	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
