package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/infra/buildinfo"
	"github.com/yndnr/claimledger-go/internal/infra/confloader"
	"github.com/yndnr/claimledger-go/internal/infra/shutdown"
	"github.com/yndnr/claimledger-go/internal/infra/tlsroots"
	"github.com/yndnr/claimledger-go/internal/server/clusterserver"
	"github.com/yndnr/claimledger-go/internal/server/config"
	"github.com/yndnr/claimledger-go/internal/server/httpserver"
	"github.com/yndnr/claimledger-go/internal/server/httpserver/handler"
	"github.com/yndnr/claimledger-go/internal/server/localserver"
	"github.com/yndnr/claimledger-go/internal/server/redisserver"
	"github.com/yndnr/claimledger-go/internal/storage"
	"github.com/yndnr/claimledger-go/internal/storage/memory"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
	"github.com/yndnr/claimledger-go/internal/telemetry/metric"
)

// shutdownTimeout bounds all shutdown hooks together.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("claimledger-server %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(config.ToLoggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting claimledger-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	started := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)
	defer func() { abortStartup(shutdownHandler, log, err) }()

	// Hooks run in reverse order of registration, so register them in
	// startup order.
	metrics := metric.NewRegistry()

	repo, err := openRepository(cfg, metrics, log, shutdownHandler)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	ledger := service.NewLedger(repo,
		service.WithMintObserver(metrics.ObserveMint),
		service.WithLedgerLogger(log))

	metrics.Registerer().MustRegister(metric.NewLedgerCollector(func() (metric.LedgerStats, error) {
		state, err := ledger.State(context.Background())
		if err != nil {
			return metric.LedgerStats{}, err
		}
		return metric.LedgerStats{
			Initialized: state.Initialized(),
			TotalSupply: state.TotalSupply,
			LastCommit:  state.LastApplied,
		}, nil
	}))

	committer, cluster, err := startCommitter(ctx, cfg, ledger, log, shutdownHandler)
	if err != nil {
		return fmt.Errorf("init committer: %w", err)
	}

	registry := service.NewRegistryService(ledger, committer, &service.RegistryServiceConfig{
		SubmissionTTL: cfg.Registry.SubmissionTTL,
		Logger:        log,
	})
	if err := initializeRegistry(ctx, cfg, registry, log); err != nil {
		return err
	}

	keys := memory.NewAPIKeyStore()
	if err := keys.Replace(cfg.Security.APIKeys); err != nil {
		return fmt.Errorf("load api keys: %w", err)
	}
	auth := service.NewAuthService(keys, config.ToAuthConfig(cfg))
	log.Info("api keys loaded", "count", len(cfg.Security.APIKeys))

	query := service.NewQueryService(ledger.Repository())
	reload := &reloader{
		loader: loader,
		keys:   keys,
		auth:   auth,
		log:    log,
	}

	handlerCfg := handler.Config{
		Registry:    registry,
		Query:       query,
		Keys:        keys,
		WaitTimeout: cfg.Server.HTTP.WaitTimeout,
		Logger:      log,
	}
	if cluster != nil {
		handlerCfg.Cluster = cluster
	}

	trusted, err := httpserver.ParseTrustedProxies(cfg.Server.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server.http.trusted_proxies: %w", err)
	}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:             handler.New(handlerCfg),
		AuthService:         auth,
		Metrics:             metrics,
		MetricsAuthRequired: cfg.Server.HTTP.MetricsAuthRequired,
		RateLimit:           cfg.Server.HTTP.RateLimit,
		TrustedProxies:      trusted,
		CORSAllowedOrigins:  cfg.Server.HTTP.CORSAllowedOrigins,
		EnableAudit:         cfg.Server.HTTP.EnableAudit,
		Logger:              log,
	})

	serverCfg := httpserver.ServerConfig{Addr: cfg.Server.HTTP.Addr}
	if cfg.Server.HTTP.TLSCertFile != "" {
		certs, err := tlsroots.NewWatcher(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(log))
		if err != nil {
			return fmt.Errorf("load tls certificate: %w", err)
		}
		certs.StartAsync()
		shutdownHandler.OnShutdown("tls watcher", func(context.Context) error {
			certs.Stop()
			return nil
		})
		serverCfg.TLSConfig = certs.ServerTLSConfig()
	}

	if *configFile != "" {
		if err := watchConfig(*configFile, reload, log, shutdownHandler); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	if cfg.Server.RESP.Enabled {
		respCfg := config.ToRESPConfig(cfg)
		if cfg.Server.RESP.TLS {
			respCfg.TLSConfig = serverCfg.TLSConfig
		}
		respServer := redisserver.New(respCfg, redisserver.Services{
			Registry: registry,
			Query:    query,
			Auth:     auth,
		}, log.With("component", "resp"))
		if err := respServer.Listen(); err != nil {
			return fmt.Errorf("listen resp: %w", err)
		}
		shutdownHandler.OnShutdown("resp server", func(ctx context.Context) error {
			log.Info("shutting down RESP server")
			return respServer.Shutdown(ctx)
		})
		go func() {
			if err := respServer.Serve(ctx); err != nil {
				log.Error("RESP server error", "error", err)
				cancel()
			}
		}()
	}

	httpServer := httpserver.New(serverCfg, router)
	if err := httpServer.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	shutdownHandler.OnShutdown("http server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", httpServer.Addr(),
			"tls", serverCfg.TLSEnabled())
		if err := httpServer.Serve(); err != nil {
			log.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	if path := cfg.Server.Local.SocketPath; path != "" {
		actions := localserver.Actions{
			Status:   statusReporter(started, cfg, registry, query, cluster),
			Reload:   reload.reload,
			Shutdown: cancel,
		}
		if cluster != nil {
			actions.Snapshot = cluster.Snapshot
		}
		admin := localserver.New(path, localserver.NewHandler(actions), log.With("component", "admin"))
		if err := admin.Listen(); err != nil {
			return fmt.Errorf("listen admin socket: %w", err)
		}
		shutdownHandler.OnShutdown("admin socket", admin.Shutdown)
		go func() {
			if err := admin.Serve(ctx); err != nil {
				log.Error("admin socket error", "error", err)
			}
		}()
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// abortStartup runs the registered shutdown hooks when run fails, so
// storage, the committer and listeners opened so far are closed.
// Shutdown runs hooks once, so this is a no-op after a graceful stop.
func abortStartup(sh *shutdown.Handler, log *slog.Logger, err error) {
	if err == nil {
		return
	}
	if shErr := sh.Shutdown(); shErr != nil {
		log.Error("cleanup after failed start", "error", shErr)
	}
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// openRepository opens the configured ledger repository.
func openRepository(cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger, sh *shutdown.Handler) (service.LedgerRepository, error) {
	switch cfg.Storage.Engine {
	case config.EngineBadger:
		db, err := storage.OpenBadgerLedger(config.ToBadgerConfig(cfg), log)
		if err != nil {
			return nil, err
		}
		if err := db.RegisterMetrics(metrics.Registerer()); err != nil {
			db.Close()
			return nil, fmt.Errorf("register storage metrics: %w", err)
		}
		sh.OnShutdown("badger", func(context.Context) error {
			log.Info("closing ledger storage")
			return db.Close()
		})
		log.Info("ledger storage opened", "engine", config.EngineBadger, "dir", cfg.Storage.DataDir)
		return db, nil

	default:
		log.Warn("using in-memory ledger storage; claims are lost on restart unless replicated")
		return memory.New(), nil
	}
}

// startCommitter starts the commit substrate. cluster is nil in standalone mode.
func startCommitter(ctx context.Context, cfg *config.ServerConfig, ledger *service.Ledger, log *slog.Logger, sh *shutdown.Handler) (service.Committer, *clusterserver.Server, error) {
	if !cfg.Cluster.Enabled {
		local := service.NewLocalCommitter(ledger, service.LocalCommitterConfig{Logger: log})
		if err := local.Start(ctx); err != nil {
			return nil, nil, err
		}
		sh.OnShutdown("committer", func(context.Context) error {
			return local.Close()
		})
		return local, nil, nil
	}

	clusterCfg, err := config.ToClusterConfig(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	srv, err := clusterserver.NewServer(clusterCfg, ledger)
	if err != nil {
		return nil, nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := srv.Start(startCtx); err != nil {
		return nil, nil, err
	}
	sh.OnShutdown("cluster", func(ctx context.Context) error {
		log.Info("stopping cluster server")
		return srv.Stop(ctx)
	})
	return srv.Committer(), srv, nil
}

// initializeRegistry sets the configured authority on a fresh registry.
// Followers leave initialization to the leader.
func initializeRegistry(ctx context.Context, cfg *config.ServerConfig, registry *service.RegistryService, log *slog.Logger) error {
	if !registry.IsWritable() {
		log.Info("not the leader, skipping registry initialization")
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Registry.ApplyTimeout)
	defer cancel()

	err := registry.EnsureInitialized(initCtx, cfg.Registry.Authority)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("initialize registry: timed out after %s", cfg.Registry.ApplyTimeout)
		}
		return fmt.Errorf("initialize registry: %w", err)
	}
	log.Info("registry ready", "authority", cfg.Registry.Authority)
	return nil
}
