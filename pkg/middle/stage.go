package middle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	zap "go.uber.org/zap"
)

// SlowStage is the duration after which a finished stage is reported as slow.
var SlowStage = 1 * time.Second

var ErrStagePanic = errors.New("stage panicked")

// Stage is one step of a scoring run.
type Stage func(ctx context.Context) error

type ctxKey int

const (
	runIDKey ctxKey = iota
	loggerKey
)

// LoggingMiddleware logs the stage outcome and duration, and turns a panic
// inside the stage into an error wrapping ErrStagePanic.
func LoggingMiddleware(logger *zap.Logger, name string) func(Stage) Stage {
	return func(next Stage) Stage {
		return func(ctx context.Context) (err error) {
			start := time.Now()

			defer func() {
				if p := recover(); p != nil {
					logger.Error("Stage panicked",
						zap.String("stage", name),
						zap.Any("panic", p),
						zap.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("%w: %s: %v", ErrStagePanic, name, p)
				}

				duration := time.Since(start)
				if err != nil {
					logger.Error("Stage failed",
						zap.String("stage", name),
						zap.Duration("duration", duration),
						zap.Error(err),
					)
				} else {
					logger.Debug("Stage completed",
						zap.String("stage", name),
						zap.Duration("duration", duration),
					)
				}

				if duration > SlowStage {
					logger.Warn("Slow stage",
						zap.String("stage", name),
						zap.Duration("duration", duration),
					)
				}
			}()

			if err := ctx.Err(); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// RunStage runs fn through LoggingMiddleware.
func RunStage(ctx context.Context, logger *zap.Logger, name string, fn Stage) error {
	return LoggingMiddleware(logger, name)(fn)(ctx)
}

// WithRunID tags ctx with a fresh run ID and returns a logger carrying it.
func WithRunID(ctx context.Context, logger *zap.Logger) (context.Context, *zap.Logger, string) {
	runID := generateRunID()
	logger = logger.With(zap.String("run_id", runID))
	ctx = context.WithValue(ctx, runIDKey, runID)
	ctx = context.WithValue(ctx, loggerKey, logger)
	return ctx, logger, runID
}

// RunID returns the run ID stored by WithRunID, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Logger returns the run logger stored by WithRunID, or fallback.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

func generateRunID() string {
	return "run-" + uuid.New().String()
}
