package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	loggerKey contextKey = "logger"
)

// NewRunID returns a short id correlating the log lines of one journal run
func NewRunID() string {
	return uuid.New().String()[:8]
}

func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run id, or "" outside a run
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in ctx, mainly so tests can capture output
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Ctx returns the context's logger (or the global one) with the run id attached
func Ctx(ctx context.Context) *zerolog.Logger {
	l, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		l = Logger()
	}
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With().Str("run_id", id).Logger()
	}
	return &l
}
