package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/habitbot/habitbot/internal/bot"
	"github.com/habitbot/habitbot/internal/bot/apiclient"
	"github.com/habitbot/habitbot/internal/config"
	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/observability"
	"github.com/habitbot/habitbot/internal/repository"
)

func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the chat bot worker and the daily reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

// runBot assembles the navigation engine and the reminder job. The chat
// platform adapter plugs in at the Transport boundary; until one is wired,
// outgoing messages go to the log.
func runBot() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if cfg.OTELMetricsEnabled {
		if _, err := observability.InitMetrics(cfg.OTELServiceName, logger); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Habit{}, &domain.HabitLog{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	habits := repository.NewHabitRepository(db)

	transport := bot.NewLogTransport(logger)
	api := apiclient.New(cfg.APIBaseURL)
	sessions := bot.NewSessionStore()
	controller := bot.NewController(sessions, api, logger)
	dispatcher := bot.NewDispatcher(controller, sessions, transport, logger)
	reminder := bot.NewReminder(habits, transport, logger, cfg.ReminderHourUTC, cfg.ReminderMinuteUTC)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("reminder scheduled",
			"hour_utc", cfg.ReminderHourUTC,
			"minute_utc", cfg.ReminderMinuteUTC)
		if err := reminder.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("bot shutting down")
		dispatcher.Close()
		return nil
	})
	return g.Wait()
}
