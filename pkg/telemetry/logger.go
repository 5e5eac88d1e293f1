package telemetry

import (
	"context"
	"log/slog"
)

// Logger is a collection.Observer that writes slog records. Changes are
// logged at ChangeLevel, recomputes at RecomputeLevel.
type Logger struct {
	logger         *slog.Logger
	ChangeLevel    slog.Level
	RecomputeLevel slog.Level
}

// NewLogger returns a logging observer. A nil logger means slog.Default().
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		logger:         logger,
		ChangeLevel:    slog.LevelDebug,
		RecomputeLevel: slog.LevelInfo,
	}
}

// ObserveChange implements collection.Observer.
func (l *Logger) ObserveChange(collection, op string, count int) {
	l.logger.Log(context.Background(), l.ChangeLevel, "collection changed",
		slog.String("collection", collection),
		slog.String("op", op),
		slog.Int("count", count),
	)
}

// ObserveRecompute implements collection.Observer.
func (l *Logger) ObserveRecompute(collection, cause string) {
	l.logger.Log(context.Background(), l.RecomputeLevel, "view recomputed",
		slog.String("collection", collection),
		slog.String("cause", cause),
	)
}
