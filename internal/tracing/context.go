package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type runKey struct{}

// Run identifies one autokudos invocation for logs and spans
type Run struct {
	ID      string
	TraceID string
	// Session is the <subject>/supo<N> key being processed
	Session string
}

// NewRunContext attaches a run with a fresh ID to ctx
func NewRunContext(ctx context.Context, session string) context.Context {
	return WithRun(ctx, Run{ID: uuid.NewString(), Session: session})
}

// WithRun stores run in ctx, replacing any run already there
func WithRun(ctx context.Context, run Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFrom returns the run stored in ctx, or the zero Run
func RunFrom(ctx context.Context) Run {
	run, _ := ctx.Value(runKey{}).(Run)
	return run
}

// PropagateToLogger adds the run fields present in ctx to logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	run := RunFrom(ctx)
	lc := logger.With()
	if run.ID != "" {
		lc = lc.Str("run_id", run.ID)
	}
	if run.TraceID != "" {
		lc = lc.Str("trace_id", run.TraceID)
	}
	if run.Session != "" {
		lc = lc.Str("session", run.Session)
	}
	return lc.Logger()
}
