package notification

import (
	"context"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
	"github.com/Dosik13/AMMs-deepdive/internal/router"
)

// LogSink writes events to the structured log. Used when SNS is not
// configured (local development, tests).
type LogSink struct {
	logger *observability.Logger
}

func NewLogSink(logger *observability.Logger) *LogSink {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, event router.Event) error {
	s.logger.LogInfo(ctx, "engine event", "event", event.Name(), "payload", event)
	return nil
}
