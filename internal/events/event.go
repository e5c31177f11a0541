// Package events publishes marketplace domain events and reacts to them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cbt-marketplace/apiserver/internal/mq"
)

// Type names a domain event.
type Type string

const (
	ArticlePublished     Type = "article.published"
	ArticleArchived      Type = "article.archived"
	PsychologistChanged  Type = "psychologist.changed"
	PsychologistVerified Type = "psychologist.verified"
	InstitutionVerified  Type = "institution.verified"
	UserRegistered       Type = "user.registered"
)

// Data keys used by psychologist.changed.
const (
	DataOldInstitutionID = "old_institution_id"
	DataNewInstitutionID = "new_institution_id"
)

// Event is the message body carried by the broker.
type Event struct {
	Type       Type              `json:"type"`
	ResourceID string            `json:"resource_id"`
	ActorID    string            `json:"actor_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// New builds an event stamped with the current time.
func New(eventType Type, resourceID, actorID string, data map[string]string) Event {
	return Event{
		Type:       eventType,
		ResourceID: resourceID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Decode parses a message body produced by Encode.
func Decode(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return event, nil
}

// Encode renders the message body and its attributes.
func (e Event) Encode() ([]byte, map[string]string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, nil, err
	}
	return data, map[string]string{mq.AttrKind: string(e.Type)}, nil
}
