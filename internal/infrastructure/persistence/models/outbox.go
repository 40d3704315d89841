package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventModel stores domain events appended inside business
// transactions (transactional outbox). A separate processor drains
// pending rows and dispatches them; the unique idempotency key dedupes
// replays of the same business fact.
type OutboxEventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EventType      string    `gorm:"type:varchar(255);not null"`
	AggregateID    uuid.UUID `gorm:"type:uuid;not null"`
	AggregateType  string    `gorm:"type:varchar(255);not null"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_outbox_org_status"`
	Livemode       bool      `gorm:"not null"`
	IdempotencyKey string    `gorm:"type:varchar(128);not null;uniqueIndex"`
	Payload        []byte    `gorm:"type:jsonb;not null"`
	Status         string    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_outbox_org_status"`
	ProcessedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxEventModel) TableName() string { return "outbox_events" }

// LedgerCommandModel stores ledger commands appended inside business
// transactions, drained by the ledger pipeline after commit.
type LedgerCommandModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type           string    `gorm:"type:varchar(255);not null"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index:idx_ledger_commands_org_status"`
	Livemode       bool      `gorm:"not null"`
	Payload        []byte    `gorm:"type:jsonb"`
	Status         string    `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_ledger_commands_org_status"`
	ProcessedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerCommandModel) TableName() string { return "ledger_commands" }
