package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher defines the interface for domain event publishing
type EventPublisher interface {
	// Publish publishes a domain event
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Aggregate   string                 `json:"aggregate"`
	AggregateID string                 `json:"aggregate_id"`
	Actor       string                 `json:"actor"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   int64                  `json:"created_at"`
}

// Event Types
const (
	EventTypeServiceRecordCreated  = "service_record.created"
	EventTypeServiceRecordUpdated  = "service_record.updated"
	EventTypeServiceRecordDeleted  = "service_record.deleted"
	EventTypeServiceRecordRestored = "service_record.restored"
)

// NewEvent creates a new domain event for a service record
func NewEvent(eventType, aggregateID, actor string, data map[string]interface{}) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Aggregate:   "service_record",
		AggregateID: aggregateID,
		Actor:       actor,
		Data:        data,
		CreatedAt:   time.Now().Unix(),
	}
}
