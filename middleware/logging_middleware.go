package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logging records the event kind, correlation id, duration, and any error
// for each dispatched frame.
func Logging(logger *zap.SugaredLogger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) error {
			start := time.Now()
			err := next(ctx, ev)
			fields := []any{"kind", ev.Kind, "duration", time.Since(start)}
			if ev.CorrelationID != "" {
				fields = append(fields, "correlation_id", ev.CorrelationID)
			}
			if err != nil {
				logger.Errorw("dispatch failed", append(fields, "error", err)...)
			} else {
				logger.Debugw("dispatched", fields...)
			}
			return err
		}
	}
}
