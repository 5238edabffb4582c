package logging

import (
	"context"

	"github.com/charmbracelet/log"
)

type ctxKey struct{}

// WithLogger attaches logger to ctx. Commands use it to hand the session
// logger to their subcommands.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached with WithLogger, or Default.
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if logger, _ := ctx.Value(ctxKey{}).(*log.Logger); logger != nil {
			return logger
		}
	}
	return Default()
}
