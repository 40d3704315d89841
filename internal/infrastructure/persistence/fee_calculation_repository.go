package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeeCalculationRepository implements billing.FeeCalculationRepository
type GormFeeCalculationRepository struct {
	db *gorm.DB
}

var _ billing.FeeCalculationRepository = (*GormFeeCalculationRepository)(nil)

// FindByID retrieves a fee calculation by its id
func (r *GormFeeCalculationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.FeeCalculation, error) {
	var model models.FeeCalculationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindLatestByCheckoutSession retrieves the most recently created fee
// calculation for a checkout session. The latest row is authoritative;
// earlier rows are superseded snapshots.
func (r *GormFeeCalculationRepository) FindLatestByCheckoutSession(ctx context.Context, checkoutSessionID uuid.UUID) (*billing.FeeCalculation, error) {
	var model models.FeeCalculationModel
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ?", checkoutSessionID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindLatestByBillingPeriod retrieves the most recently created fee
// calculation for a billing period.
func (r *GormFeeCalculationRepository) FindLatestByBillingPeriod(ctx context.Context, billingPeriodID uuid.UUID) (*billing.FeeCalculation, error) {
	var model models.FeeCalculationModel
	err := r.db.WithContext(ctx).
		Where("billing_period_id = ?", billingPeriodID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new fee calculation
func (r *GormFeeCalculationRepository) Insert(ctx context.Context, calculation *billing.FeeCalculation) error {
	var model models.FeeCalculationModel
	model.FromDomain(calculation)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update persists finalization and linking changes in place
func (r *GormFeeCalculationRepository) Update(ctx context.Context, calculation *billing.FeeCalculation) error {
	var model models.FeeCalculationModel
	model.FromDomain(calculation)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}
