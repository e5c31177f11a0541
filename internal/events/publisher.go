package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cbt-marketplace/apiserver/internal/mq"
)

// Publisher delivers events after the write that caused them succeeded.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BrokerPublisher publishes events through a message broker.
type BrokerPublisher struct {
	queue *mq.MQ
}

func NewBrokerPublisher(queue *mq.MQ) *BrokerPublisher {
	return &BrokerPublisher{queue: queue}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event Event) error {
	data, attrs, err := event.Encode()
	if err != nil {
		return err
	}
	if _, err := p.queue.Publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// InlinePublisher hands events straight to a consumer in the same process.
type InlinePublisher struct {
	consumer *Consumer
}

func NewInlinePublisher(consumer *Consumer) *InlinePublisher {
	return &InlinePublisher{consumer: consumer}
}

func (p *InlinePublisher) Publish(ctx context.Context, event Event) error {
	return p.consumer.Handle(ctx, event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Emit publishes event and logs a failure instead of returning it. A
// published write is never rolled back because its event was lost.
func Emit(ctx context.Context, publisher Publisher, logger *slog.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			"type", event.Type,
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
}
