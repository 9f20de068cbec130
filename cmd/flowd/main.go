package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/flowcore/internal/config"
	ghclient "github.com/p-blackswan/flowcore/internal/github"
	"github.com/p-blackswan/flowcore/internal/health"
	"github.com/p-blackswan/flowcore/internal/metrics"
	"github.com/p-blackswan/flowcore/internal/mgmt"
	"github.com/p-blackswan/flowcore/internal/notify"
	"github.com/p-blackswan/flowcore/internal/retry"
	"github.com/p-blackswan/flowcore/internal/review"
	"github.com/p-blackswan/flowcore/internal/roadmap"
	"github.com/p-blackswan/flowcore/internal/store"
	"github.com/p-blackswan/flowcore/internal/terminal"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Str("db_path", cfg.DBPath).
		Bool("github_enabled", cfg.GitHubEnabled()).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting flowcore")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	checker := health.NewChecker(logger)

	// Store
	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := db.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Watched projects
	var projects []config.Project
	if cfg.ProjectsFile != "" {
		projects, err = config.LoadProjects(cfg.ProjectsFile)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load projects file — review polling disabled")
		}
	}

	// GitHub client (if configured)
	var fetcher review.StatusFetcher
	if cfg.GitHubEnabled() {
		ghClient, ghErr := ghclient.NewClient(
			cfg.GitHubAppID,
			cfg.GitHubInstallationID,
			cfg.GitHubPrivateKeyPath,
			logger,
		)
		if ghErr != nil {
			logger.Warn().Err(ghErr).Msg("failed to init GitHub client (non-fatal)")
		} else {
			logger.Info().Msg("GitHub App client initialized")
			fetcher = ghClient
		}
	} else {
		logger.Info().Msg("GitHub not configured — reviews driven by API events only")
	}

	// Slack notifier (if configured)
	var notifier review.Notifier
	if cfg.SlackEnabled() {
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger, m)
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack notifications enabled")
	} else {
		logger.Info().Msg("Slack not configured — notifications disabled")
	}

	// Hosts
	terminals := terminal.NewManager(logger, m)

	orchestrator := review.NewOrchestrator(review.OrchestratorConfig{
		PollInterval:  cfg.PollInterval,
		ReviewTimeout: cfg.ReviewTimeout,
		Retry:         retry.DefaultConfig(),
	}, projects, fetcher, db, notifier, m, logger)

	board := roadmap.NewBoard(db, m, logger)
	if err := board.Load(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load roadmap features")
	}

	var wg sync.WaitGroup

	// Review poll loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		orchestrator.Run(ctx)
	}()

	// Management API
	handlers := mgmt.NewHandlers(terminals, orchestrator, board, checker, logger)
	mgmtServer := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr: cfg.MgmtListenAddr,
		AuthConfig: mgmt.AuthConfig{
			Mode:   cfg.MgmtAuthMode,
			APIKey: cfg.MgmtAPIKey,
		},
		CORSOrigins: cfg.MgmtCORSOrigins,
	}, handlers, m, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Start(); err != nil {
			logger.Error().Err(err).Msg("management API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("management API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("flowcore stopped")
}
