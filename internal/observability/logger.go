package observability

import (
	"context"
	"fmt"

	"github.com/upb/persona-relay/internal/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured log field.
type Field = zap.Field

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// WithContext returns logger enriched with the request-scoped fields found in ctx.
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := make([]Field, 0, 2)
	if id := shared.RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if sub := shared.Subject(ctx); sub != "" {
		fields = append(fields, zap.String("subject", sub))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
