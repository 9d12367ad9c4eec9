// Package persistence wraps note stores with cross-cutting behaviour:
// per-call timeouts, circuit breaking, logging, metrics and tracing.
//
// Each concern is an Interceptor. Decorate stacks them around any
// repository.NoteStore without the backend knowing.
package persistence

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
)

// Operation describes one store call for interceptors.
type Operation struct {
	Name   string
	NoteID string
	UserID string
}

// Interceptor runs around a store call. It must call next at most once.
type Interceptor func(ctx context.Context, op Operation, next func(context.Context) error) error

// Chain composes interceptors; the first one is outermost.
func Chain(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		call := next
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic, inner := interceptors[i], call
			call = func(ctx context.Context) error { return ic(ctx, op, inner) }
		}
		return call(ctx)
	}
}

// ============================================================================
// TIMEOUT
// ============================================================================

// Timeout bounds every call. Expiry surfaces as a Store error.
func Timeout(d time.Duration) Interceptor {
	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		if d <= 0 {
			return next(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		err := next(callCtx)
		if err != nil && apperrors.Kind(err) == "" {
			if ctxErr := apperrors.FromContext(err, op.Name); ctxErr != nil {
				return ctxErr
			}
		}
		return err
	}
}

// ============================================================================
// CIRCUIT BREAKER
// ============================================================================

// CircuitBreakerConfig configures the store breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used in production.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          20 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreaker stops calling a failing backend. Only Store errors count as
// failures; not-found and validation answers mean the backend is healthy.
func CircuitBreaker(cfg CircuitBreakerConfig, logger *zap.Logger, metrics *observability.Collector) Interceptor {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsStore(err)
		},
	})

	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, next(ctx)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperrors.Store(apperrors.CodeCircuitOpen, "the notes store is temporarily unavailable").
				WithOperation(op.Name).
				WithCause(err).
				Build()
		}
		return err
	}
}

// ============================================================================
// LOGGING, METRICS, TRACING
// ============================================================================

// Logging writes one debug line per call and a warning for store failures.
func Logging(logger *zap.Logger, backend string) Interceptor {
	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)

		fields := []zap.Field{
			zap.String("backend", backend),
			zap.String("operation", op.Name),
			zap.String("userID", op.UserID),
			zap.Duration("elapsed", time.Since(start)),
		}
		if op.NoteID != "" {
			fields = append(fields, zap.String("noteID", op.NoteID))
		}
		switch {
		case err == nil:
			logger.Debug("Store call succeeded", fields...)
		case apperrors.IsStore(err):
			logger.Warn("Store call failed", append(fields, zap.Error(err))...)
		default:
			logger.Debug("Store call rejected", append(fields, zap.Error(err))...)
		}
		return err
	}
}

// Metrics records call counts and latency.
func Metrics(collector *observability.Collector, backend string) Interceptor {
	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)
		collector.ObserveStore(op.Name, backend, err, time.Since(start))
		return err
	}
}

// Tracing opens a span per call.
func Tracing(tracer trace.Tracer, backend string) Interceptor {
	return func(ctx context.Context, op Operation, next func(context.Context) error) error {
		ctx, span := tracer.Start(ctx, "NoteStore."+op.Name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("store.backend", backend),
				attribute.String("note.id", op.NoteID),
				attribute.String("user.id", op.UserID),
			),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.kind", string(apperrors.Kind(err))))
			if apperrors.IsStore(err) {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		return err
	}
}
