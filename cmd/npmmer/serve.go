package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aryan2621/Npmmer/internal/auth"
	"github.com/aryan2621/Npmmer/internal/repository"
	redisRepo "github.com/aryan2621/Npmmer/internal/repository/redis"
	sqliteRepo "github.com/aryan2621/Npmmer/internal/repository/sqlite"
	"github.com/aryan2621/Npmmer/internal/server"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server. The database schema is migrated on start.
Stops gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	// One pool for the whole process, closed after the server has drained.
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	denylist, closeDenylist, err := openDenylist(ctx, cfg.Redis.URL, logger)
	if err != nil {
		return err
	}
	defer closeDenylist()

	srv, err := server.New(cfg, db, denylist, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Start(ctx)
}

// openDenylist connects to Redis when url is set and otherwise falls back to
// the in-process denylist, whose revocations do not survive a restart.
func openDenylist(ctx context.Context, url string, logger *slog.Logger) (repository.TokenDenylist, func(), error) {
	if url == "" {
		logger.Warn("redis.url not set; revoked sessions are kept in memory only")
		return auth.NewMemoryDenylist(), func() {}, nil
	}

	client, err := redisRepo.Connect(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	logger.Info("token denylist backed by redis", slog.String("addr", client.Options().Addr))

	return redisRepo.NewDenylist(client), func() { client.Close() }, nil
}
