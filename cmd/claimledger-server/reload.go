package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/infra/confloader"
	"github.com/yndnr/claimledger-go/internal/infra/shutdown"
	"github.com/yndnr/claimledger-go/internal/server/config"
	"github.com/yndnr/claimledger-go/internal/storage/memory"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

// reloader applies the hot-reloadable part of a changed config file:
// log.level and security.api_keys. Everything else needs a restart.
type reloader struct {
	loader *confloader.Loader
	keys   *memory.APIKeyStore
	auth   *service.AuthService
	log    *slog.Logger

	mu sync.Mutex
}

// reload loads the configuration again and applies it. A file that
// does not verify leaves the running configuration untouched.
func (r *reloader) reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := config.Default()
	if err := r.loader.Reload(cfg); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := r.keys.Replace(cfg.Security.APIKeys); err != nil {
		return fmt.Errorf("load api keys: %w", err)
	}
	r.auth.InvalidateCache()

	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		r.log.Info("log level changed", "level", cfg.Log.Level)
	}

	r.log.Info("configuration reloaded", "api_keys", len(cfg.Security.APIKeys))
	return nil
}

// watchConfig reloads through r whenever path changes.
func watchConfig(path string, r *reloader, log *slog.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}

	w.OnChange(func(string) {
		if err := r.reload(); err != nil {
			log.Error("config reload failed, keeping previous configuration", "error", err)
		}
	})
	w.StartAsync()

	sh.OnShutdown("config watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
