// Package observability holds otel metric instruments and recording helpers.
// Recording is a no-op until InitMetrics has run, so library code can call the
// Record helpers unconditionally.
package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type appMetrics struct {
	authAttempts      metric.Int64Counter
	tokenVerification metric.Int64Counter
	tokenRevocation   metric.Int64Counter
	botActions        metric.Int64Counter
	remindersSent     metric.Int64Counter
	repositoryOps     metric.Int64Counter
}

var (
	metricsMu sync.RWMutex
	m         *appMetrics
)

func InitMetrics(serviceName string, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	mp := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(mp)

	meter := mp.Meter(serviceName)
	auth, err := meter.Int64Counter("auth.attempts")
	if err != nil {
		return nil, err
	}
	verify, err := meter.Int64Counter("token.verifications")
	if err != nil {
		return nil, err
	}
	revoke, err := meter.Int64Counter("token.revocations")
	if err != nil {
		return nil, err
	}
	actions, err := meter.Int64Counter("bot.actions")
	if err != nil {
		return nil, err
	}
	reminders, err := meter.Int64Counter("reminder.sent")
	if err != nil {
		return nil, err
	}
	repoOps, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	m = &appMetrics{
		authAttempts:      auth,
		tokenVerification: verify,
		tokenRevocation:   revoke,
		botActions:        actions,
		remindersSent:     reminders,
		repositoryOps:     repoOps,
	}
	metricsMu.Unlock()

	logger.Info("metrics initialized", "service", serviceName)
	return mp, nil
}

func get() *appMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return m
}

func RecordAuthAttempt(ctx context.Context, operation, status string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.authAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordTokenVerification(ctx context.Context, kind, outcome string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.tokenVerification.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func RecordTokenRevocation(ctx context.Context, outcome string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.tokenRevocation.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordBotAction(ctx context.Context, state, outcome string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.botActions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.String("outcome", outcome),
	))
}

func RecordReminderSent(ctx context.Context, status string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.remindersSent.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	mm := get()
	if mm == nil {
		return
	}
	mm.repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
