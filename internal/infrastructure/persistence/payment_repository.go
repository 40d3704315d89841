package persistence

import (
	"context"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements billing.PaymentRepository
type GormPaymentRepository struct {
	db *gorm.DB
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)

// FindByID retrieves a payment by its id
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByProcessorChargeID retrieves a payment by its originating charge id
func (r *GormPaymentRepository) FindByProcessorChargeID(ctx context.Context, chargeID string) (*billing.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("processor_charge_id = ?", chargeID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindSucceededByInvoiceID retrieves all succeeded payments for an invoice
func (r *GormPaymentRepository) FindSucceededByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status = ?", invoiceID, string(billing.PaymentStatusSucceeded)).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	payments := make([]billing.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, *rows[i].ToDomain())
	}
	return payments, nil
}

// SumResolvedForMonth sums the organization's resolved payment volume
// for the calendar month containing at. Resolved means the processor
// confirmed an outcome: succeeded or refunded, net of refunds.
// Processing, canceled and failed payments contribute nothing.
func (r *GormPaymentRepository) SumResolvedForMonth(ctx context.Context, organizationID uuid.UUID, livemode bool, at time.Time) (int64, error) {
	at = at.UTC()
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("SUM(CASE WHEN refunded THEN 0 ELSE amount - refunded_amount END)").
		Where("organization_id = ? AND livemode = ?", organizationID, livemode).
		Where("status IN ?", []string{string(billing.PaymentStatusSucceeded), string(billing.PaymentStatusRefunded)}).
		Where("charge_date >= ? AND charge_date < ?", monthStart, monthEnd).
		Scan(&total).Error
	if err != nil {
		return 0, translateError(err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// Insert persists a new payment
func (r *GormPaymentRepository) Insert(ctx context.Context, payment *billing.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update persists changes to an existing payment
func (r *GormPaymentRepository) Update(ctx context.Context, payment *billing.Payment) error {
	var model models.PaymentModel
	model.FromDomain(payment)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}
