package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/coreqcapital/coreq-migrate/internal/cli"
	"github.com/coreqcapital/coreq-migrate/internal/config"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/migrate"
	"github.com/coreqcapital/coreq-migrate/internal/models"
	"github.com/coreqcapital/coreq-migrate/internal/source"
	"github.com/coreqcapital/coreq-migrate/internal/storage/postgres"
)

const modeFull = "full"

var modes = []cli.Mode{
	{Flag: "--create-tables", Description: "create the target schema only"},
	{Flag: "--migrate-data", Description: "copy legacy rows into existing tables"},
	{Flag: "--verify", Description: "compare legacy and target row counts"},
	{Flag: "--check", Description: "print the legacy structure and a defaulted items sample as YAML"},
	{Flag: "--mirror", Description: "copy every legacy table verbatim into the legacy schema"},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	mode, err := cli.ParseMode(args, modes, modeFull)
	if err != nil {
		cli.Usage(os.Stderr, "migrate", "Migrates the legacy loans database. No flag drops, recreates, migrates and verifies.", modes)
		return cli.ExitUsage
	}

	cli.LoadLocalEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", err)
		return cli.ExitFailure
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunID(ctx, uuid.NewString())
	logger.CtxInfo(ctx, "migrate starting", slog.String("mode", mode))

	var src *source.Reader
	if mode != "--create-tables" {
		src, err = source.Open(ctx, cfg.SourceDialect, cfg.SourceConnString())
		if err != nil {
			logger.CtxError(ctx, "connect to legacy store", err)
			return cli.ExitFailure
		}
		defer src.Close()
		logger.CtxInfo(ctx, "connected to legacy store", slog.String("dialect", src.Dialect().Name()))
	}

	if mode == "--check" {
		if _, err := migrate.Check(ctx, src, os.Stdout); err != nil {
			logger.CtxError(ctx, "inspect legacy store", err)
			return cli.ExitFailure
		}
		return cli.ExitOK
	}

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.CtxError(ctx, "connect to target database", err)
		return cli.ExitFailure
	}
	defer store.Close()
	logger.CtxInfo(ctx, "connected to target database")

	m := migrate.NewMigrator(src, store, cfg.BcryptCost)
	rec := models.MigrationRun{ID: logger.RunID(ctx), Mode: mode, StartedAt: time.Now()}

	switch mode {
	case "--create-tables":
		if err := m.CreateTables(ctx); err != nil {
			logger.CtxError(ctx, "create tables", err)
			return cli.ExitFailure
		}

	case "--migrate-data":
		reports := m.MigrateData(ctx)
		migrate.LogSummary(ctx, reports)
		rec.Migrated, rec.Failed = migrate.Totals(reports)
		if err := store.ResetSequences(ctx); err != nil {
			logger.CtxError(ctx, "reset sequences", err)
		}

	case "--verify":
		rec.AllMatch = verify(ctx, src, store)

	case "--mirror":
		reports, v, err := migrate.Mirror(ctx, src, store)
		if err != nil {
			logger.CtxError(ctx, "mirror legacy store", err)
			return cli.ExitFailure
		}
		migrate.LogSummary(ctx, reports)
		rec.Migrated, rec.Failed = migrate.Totals(reports)
		rec.AllMatch = v.AllMatch()

	case modeFull:
		if err := m.Rebuild(ctx); err != nil {
			logger.CtxError(ctx, "rebuild schema", err)
			return cli.ExitFailure
		}
		reports := m.MigrateData(ctx)
		migrate.LogSummary(ctx, reports)
		rec.Migrated, rec.Failed = migrate.Totals(reports)
		if err := m.Finish(ctx); err != nil {
			logger.CtxError(ctx, "finish migration", err)
		}
		rec.AllMatch = verify(ctx, src, store)
	}

	rec.FinishedAt = time.Now()
	if err := store.RecordRun(ctx, rec); err != nil {
		logger.CtxWarn(ctx, "run not recorded", slog.String("error", err.Error()))
	}
	logger.CtxInfo(ctx, "migrate finished",
		slog.String("mode", mode),
		slog.Int("migrated", rec.Migrated),
		slog.Int("failed", rec.Failed),
		slog.Bool("all_match", rec.AllMatch),
		slog.Duration("took", rec.FinishedAt.Sub(rec.StartedAt)))

	if errors.Is(ctx.Err(), context.Canceled) {
		return cli.ExitFailure
	}
	return cli.ExitOK
}

func verify(ctx context.Context, src migrate.Counter, dst migrate.Counter) bool {
	v := migrate.Verify(ctx, src, dst, migrate.VerifyPairs)
	if v.AllMatch() {
		logger.CtxInfo(ctx, "verification passed: all counts match")
	} else {
		logger.CtxWarn(ctx, "verification found mismatches")
	}
	return v.AllMatch()
}
