package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository implements billing.EventRepository. Events and
// ledger commands land in outbox tables inside the caller's
// transaction; a drain process dispatches them after commit.
type GormOutboxRepository struct {
	db *gorm.DB
}

var _ billing.EventRepository = (*GormOutboxRepository)(nil)

// AppendEvents writes domain events as pending outbox rows. Rows
// carrying an already-seen idempotency key are silently skipped.
func (r *GormOutboxRepository) AppendEvents(ctx context.Context, events []shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.OutboxEventModel, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
		}
		rows = append(rows, models.OutboxEventModel{
			ID:             uuid.New(),
			EventID:        event.EventID(),
			EventType:      event.EventType(),
			AggregateID:    event.AggregateID(),
			AggregateType:  event.AggregateType(),
			OrganizationID: event.OrganizationID(),
			Livemode:       event.Livemode(),
			IdempotencyKey: event.IdempotencyKey(),
			Payload:        payload,
			Status:         "PENDING",
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return translateError(err)
	}
	return nil
}

// AppendLedgerCommands writes ledger commands as pending rows
func (r *GormOutboxRepository) AppendLedgerCommands(ctx context.Context, commands []shared.LedgerCommand) error {
	if len(commands) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.LedgerCommandModel, 0, len(commands))
	for _, command := range commands {
		payload, err := json.Marshal(command.Payload)
		if err != nil {
			return fmt.Errorf("marshal ledger command %s: %w", command.Type, err)
		}
		rows = append(rows, models.LedgerCommandModel{
			ID:             uuid.New(),
			Type:           command.Type,
			OrganizationID: command.OrganizationID,
			Livemode:       command.Livemode,
			Payload:        payload,
			Status:         "PENDING",
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}
