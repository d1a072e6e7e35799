package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/habitbot/habitbot/internal/auth"
	"github.com/habitbot/habitbot/internal/config"
	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/http/handler"
	"github.com/habitbot/habitbot/internal/http/router"
	"github.com/habitbot/habitbot/internal/observability"
	"github.com/habitbot/habitbot/internal/repository"
	"github.com/habitbot/habitbot/internal/security"
	"github.com/habitbot/habitbot/internal/token"
)

func newAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI()
		},
	}
}

func runAPI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSecrets(); err != nil {
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

	revocations := newRevocationStore(cfg)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTSecret)
	tokens := token.NewService(jwtMgr, revocations, cfg.AccessTTL, cfg.RefreshTTL)

	users := repository.NewUserRepository(db)
	habits := repository.NewHabitRepository(db)
	logs := repository.NewHabitLogRepository(db)
	authService := auth.NewService(users, tokens)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authService, users, logger),
		HabitHandler:   handler.NewHabitHandler(users, habits, logs, logger),
		TokenService:   tokens,
		Logger:         logger,
		EnableOTelHTTP: cfg.OTELMetricsEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("api shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openDatabase picks the gorm driver from the DSN shape: postgres URLs and
// key=value DSNs go to postgres, everything else is treated as a sqlite path.
func openDatabase(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "host=") {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}

func newRevocationStore(cfg *config.Config) token.RevocationStore {
	if cfg.RedisAddr == "" {
		return token.NewInMemoryRevocationStore()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return token.NewRedisRevocationStore(client, "token_revocation")
}
