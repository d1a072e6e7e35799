package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/habitbot/habitbot/internal/config"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "habit",
		Short:         "Habit tracking service: REST API and chat bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newAPICommand())
	cmd.AddCommand(newBotCommand())
	return cmd
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(cfg.Env, "dev") {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
