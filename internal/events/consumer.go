package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cbt-marketplace/apiserver/internal/mq"
	"github.com/cbt-marketplace/apiserver/internal/store"
)

// InstitutionCounter recomputes cached per-institution counters.
type InstitutionCounter interface {
	RefreshPsychologistCount(ctx context.Context, id string) (int, error)
}

// Consumer applies the side effects of domain events.
type Consumer struct {
	institutions InstitutionCounter
	logger       *slog.Logger
}

func NewConsumer(institutions InstitutionCounter, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{institutions: institutions, logger: logger}
}

// Handle processes a single event.
func (c *Consumer) Handle(ctx context.Context, event Event) error {
	switch event.Type {
	case PsychologistChanged:
		return c.refreshInstitutions(ctx, event)
	default:
		c.logger.InfoContext(ctx, "event received",
			"type", event.Type,
			"resource_id", event.ResourceID,
			"actor_id", event.ActorID,
		)
		return nil
	}
}

// HandleMessage decodes a broker message and processes it. Undecodable
// messages are dropped.
func (c *Consumer) HandleMessage(ctx context.Context, msg mq.Message) error {
	event, err := Decode(msg.Data)
	if err != nil {
		c.logger.ErrorContext(ctx, "dropping message", "id", msg.ID, "error", err)
		return fmt.Errorf("%w: %v", mq.ErrDrop, err)
	}
	if err := c.Handle(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "event handling failed", "id", msg.ID, "type", event.Type, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) refreshInstitutions(ctx context.Context, event Event) error {
	seen := make(map[string]bool, 2)
	for _, key := range []string{DataOldInstitutionID, DataNewInstitutionID} {
		id := event.Data[key]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		count, err := c.institutions.RefreshPsychologistCount(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("refresh institution %s: %w", id, err)
		}
		c.logger.InfoContext(ctx, "psychologists count refreshed", "institution_id", id, "count", count)
	}
	return nil
}
