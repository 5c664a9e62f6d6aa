// Package notification delivers engine events to external consumers.
// Sinks are advisory: the engine treats publish failures as
// non-fatal, so a sink outage never blocks execution.
package notification

import (
	"context"
	"fmt"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/aws"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
	"github.com/Dosik13/AMMs-deepdive/internal/router"
)

// SNSSink publishes engine events to an SNS topic as JSON, with the
// event name as a message attribute for subscription filtering.
type SNSSink struct {
	client   *aws.SNSClient
	topicARN string
	logger   *observability.Logger
}

type SNSSinkConfig struct {
	Client   *aws.SNSClient
	TopicARN string
	Logger   *observability.Logger
}

func NewSNSSink(cfg SNSSinkConfig) (*SNSSink, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("SNS client is required")
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &SNSSink{
		client:   cfg.Client,
		topicARN: cfg.TopicARN,
		logger:   cfg.Logger,
	}, nil
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Publish(ctx context.Context, event router.Event) error {
	attributes := map[string]string{
		"event": event.Name(),
	}

	if err := s.client.Publish(ctx, s.topicARN, event, attributes); err != nil {
		return fmt.Errorf("SNS publish failed: %w", err)
	}

	s.logger.LogDebug(ctx, "event published to SNS",
		"event", event.Name(), "topic_arn", s.topicARN)
	return nil
}

// CircuitBreakerState exposes the underlying SNS breaker state for the
// health endpoint.
func (s *SNSSink) CircuitBreakerState() string {
	return s.client.CircuitBreakerState().String()
}
