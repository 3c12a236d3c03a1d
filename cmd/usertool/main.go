package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/cli"
	"github.com/coreqcapital/coreq-migrate/internal/config"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/storage"
	"github.com/coreqcapital/coreq-migrate/internal/storage/postgres"
)

var modes = []cli.Mode{
	{Flag: "--set-password", Description: "set PATCH_PASSWORD for PATCH_USER_ID"},
	{Flag: "--set-email", Description: "set PATCH_EMAIL for PATCH_USER_ID"},
	{Flag: "--create-admin", Description: "create or reset the ADMIN_EMAIL admin with ADMIN_PASSWORD (default)"},
	{Flag: "--check-login", Description: "log in as ADMIN_EMAIL with ADMIN_PASSWORD and print a token"},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	mode, err := cli.ParseMode(args, modes, "--create-admin")
	if err != nil {
		cli.Usage(os.Stderr, "usertool", "Patches staff credentials on the target database.", modes)
		return cli.ExitUsage
	}

	cli.LoadLocalEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", err)
		return cli.ExitFailure
	}
	logger.Init(cfg.LogLevel)
	if err := requirements(cfg, mode); err != nil {
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

	var tokens *auth.TokenManager
	if mode == "--check-login" {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	}
	creds := auth.NewCredentials(store, tokens, cfg.BcryptCost)

	switch mode {
	case "--set-password":
		user, err := creds.SetPassword(ctx, cfg.PatchUserID, cfg.PatchPassword)
		if err != nil {
			return fail("set password", err, slog.Int64("user_id", cfg.PatchUserID))
		}
		logger.Info("password updated", slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	case "--set-email":
		user, err := creds.SetEmail(ctx, cfg.PatchUserID, cfg.PatchEmail)
		if err != nil {
			return fail("set email", err, slog.Int64("user_id", cfg.PatchUserID))
		}
		logger.Info("email updated", slog.Int64("user_id", user.ID), slog.String("email", user.Email))

	case "--create-admin":
		user, created, err := creds.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fail("create admin", err, slog.String("email", cfg.AdminEmail))
		}
		msg := "admin password reset"
		if created {
			msg = "admin created"
		}
		logger.Info(msg, slog.Int64("user_id", user.ID), slog.String("email", user.Email))

	case "--check-login":
		res, err := creds.Login(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fail("check login", err, slog.String("identifier", cfg.AdminEmail))
		}
		logger.Info("login ok", slog.Int64("user_id", res.User.ID), slog.String("role", res.User.Role))
		if !res.User.IsAdmin() {
			logger.Info("user is not an admin; the ops routes will reject this token", slog.Int64("user_id", res.User.ID))
		}
		fmt.Println(res.Token)
	}
	return cli.ExitOK
}

func requirements(cfg config.Config, mode string) error {
	switch mode {
	case "--set-password":
		return cfg.RequirePatchPassword()
	case "--create-admin":
		return cfg.RequireAdminPassword()
	case "--check-login":
		if err := cfg.RequireAdminPassword(); err != nil {
			return err
		}
		return cfg.RequireJWT()
	}
	return nil
}

func fail(op string, err error, attrs ...slog.Attr) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Error(op+": user not found", err, attrs...)
	case errors.Is(err, storage.ErrAlreadyExists):
		logger.Error(op+": value already taken", err, attrs...)
	default:
		logger.Error(op, err, attrs...)
	}
	return cli.ExitFailure
}
