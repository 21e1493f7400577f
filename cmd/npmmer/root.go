package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aryan2621/Npmmer/internal/config"
)

// NewRootCmd creates the root command. The configuration flags are
// persistent so every subcommand accepts them.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npmmer",
		Short: "npmmer - save your favorite npm packages",
		Long: `npmmer lets signed-in users search the npm registry and keep a
personal list of favorite packages, each with a note on why it made the list.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads the layered configuration using the command's parsed
// flags (which include the inherited persistent ones).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section of the config.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}
