package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain.
// Events are buffered for the duration of a transaction and flushed
// atomically with its commit; a rollback discards them.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	OrganizationID() uuid.UUID
	Livemode() bool
	// IdempotencyKey returns a stable key derived from the event payload,
	// so re-emitting the same business fact dedupes at the sink.
	IdempotencyKey() string
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggID       uuid.UUID `json:"aggregate_id"`
	AggType     string    `json:"aggregate_type"`
	OrgID       uuid.UUID `json:"organization_id"`
	Live        bool      `json:"livemode"`
	Idempotency string    `json:"idempotency_key"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// OrganizationID returns the organization the event belongs to
func (e *BaseDomainEvent) OrganizationID() uuid.UUID {
	return e.OrgID
}

// Livemode reports whether the event was produced by a live transaction
func (e *BaseDomainEvent) Livemode() bool {
	return e.Live
}

// IdempotencyKey returns the payload-derived dedupe key
func (e *BaseDomainEvent) IdempotencyKey() string {
	return e.Idempotency
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID, orgID uuid.UUID, livemode bool, idempotencyKey string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:          uuid.New(),
		Type:        eventType,
		Timestamp:   time.Now(),
		AggID:       aggID,
		AggType:     aggType,
		OrgID:       orgID,
		Live:        livemode,
		Idempotency: idempotencyKey,
	}
}
