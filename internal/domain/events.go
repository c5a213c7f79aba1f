package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a catalog change
type EventType string

const (
	ProductCreated  EventType = "product.created"
	ProductUpdated  EventType = "product.updated"
	ProductDeleted  EventType = "product.deleted"
	CategoryCreated EventType = "category.created"
	CategoryUpdated EventType = "category.updated"
	CategoryDeleted EventType = "category.deleted"
	BrandCreated    EventType = "brand.created"
	BrandUpdated    EventType = "brand.updated"
	BrandDeleted    EventType = "brand.deleted"
)

// Event is emitted after a change has been committed
type Event struct {
	ID          uuid.UUID              `json:"id"`
	Type        EventType              `json:"type"`
	AggregateID uuid.UUID              `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

func NewEvent(t EventType, aggregateID uuid.UUID, data map[string]interface{}, now time.Time) Event {
	return Event{
		ID:          uuid.New(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  now.UTC(),
		Data:        data,
	}
}
