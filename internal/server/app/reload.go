package app

import (
	"log/slog"

	"github.com/yndnr/tuamail-go/internal/infra/confloader"
	"github.com/yndnr/tuamail-go/internal/server/config"
	"github.com/yndnr/tuamail-go/internal/telemetry/logger"
)

// WatchLogLevel reapplies log.level whenever the config file changes. Other
// settings need a restart. The returned watcher is already running.
func WatchLogLevel(path string, log *slog.Logger, opts ...confloader.Option) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(changed string) {
		cfg := config.Default()
		loader := confloader.NewLoader(append([]confloader.Option{confloader.WithConfigFile(changed)}, opts...)...)
		if err := loader.Load(cfg); err != nil {
			log.Warn("config reload failed, keeping current settings", "path", changed, "error", err)
			return
		}
		if !logger.ValidLevel(cfg.Log.Level) {
			log.Warn("config reload ignored invalid log level", "level", cfg.Log.Level)
			return
		}

		old := logger.GetLevel()
		if old == cfg.Log.Level {
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level changed", "from", old, "to", cfg.Log.Level)
	})
	w.StartAsync()
	return w, nil
}
