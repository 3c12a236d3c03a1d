package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/cli"
	"github.com/coreqcapital/coreq-migrate/internal/config"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/server"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/status"
	"github.com/coreqcapital/coreq-migrate/internal/storage/postgres"
)

var modes = []cli.Mode{
	{Flag: "--update", Description: "apply legacy defaulted items and re-derive loan statuses (default)"},
	{Flag: "--fix-rates", Description: "reprice non-negotiable loans whose rate drifted from the standard table"},
	{Flag: "--watch", Description: "refresh statuses on STATUS_SCHEDULES and serve the ops endpoints"},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	mode, err := cli.ParseMode(args, modes, "--update")
	if err != nil {
		cli.Usage(os.Stderr, "loanstatus", "Maintains loan statuses and pricing on the target database.", modes)
		return cli.ExitUsage
	}

	cli.LoadLocalEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", err)
		return cli.ExitFailure
	}
	logger.Init(cfg.LogLevel)
	if mode == "--watch" {
		if err := cfg.RequireJWT(); err != nil {
			logger.Error("load config", err)
			return cli.ExitFailure
		}
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("load config", err)
		return cli.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect to target database", err)
		return cli.ExitFailure
	}
	defer store.Close()

	switch mode {
	case "--update":
		ctx = logger.WithRunID(ctx, uuid.NewString())
		src, err := source.Open(ctx, cfg.SourceDialect, cfg.SourceConnString())
		if err != nil {
			logger.CtxError(ctx, "connect to legacy store", err)
			return cli.ExitFailure
		}
		defer src.Close()
		if _, err := status.NewUpdater(store, src, loc).Run(ctx); err != nil {
			logger.CtxError(ctx, "update loan statuses", err)
			return cli.ExitFailure
		}

	case "--fix-rates":
		ctx = logger.WithRunID(ctx, uuid.NewString())
		if _, err := status.NewRateFixer(store).Run(ctx); err != nil {
			logger.CtxError(ctx, "fix loan rates", err)
			return cli.ExitFailure
		}

	case "--watch":
		return watch(ctx, cfg, store, loc)
	}
	return cli.ExitOK
}

// watch runs the scheduled refresh and the ops server until ctx is cancelled. The legacy
// store is not consulted: only the date rules run.
func watch(ctx context.Context, cfg config.Config, store *postgres.Store, loc *time.Location) int {
	updater := status.NewUpdater(store, nil, loc)
	scheduler := status.NewScheduler(ctx, updater, cfg.StatusSchedules, loc)
	if err := scheduler.Start(); err != nil {
		logger.Error("start scheduler", err)
		return cli.ExitFailure
	}
	for _, next := range scheduler.Entries() {
		logger.Info("next status refresh", slog.Time("at", next))
	}
	go scheduler.RunNow()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	srv := server.New(cfg, server.Deps{
		Logins:   auth.NewCredentials(store, tokens, cfg.BcryptCost),
		Statuses: updater,
		Rates:    status.NewRateFixer(store),
		Tokens:   tokens,
		Database: store,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", slog.String("addr", cfg.OpsAddress()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	code := cli.ExitOK
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("ops server error", err)
		code = cli.ExitFailure
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown error", err)
	}
	select {
	case <-scheduler.Stop().Done():
		logger.Info("scheduler stopped")
	case <-shutdownCtx.Done():
		logger.Info("scheduler stop timed out")
	}
	return code
}
