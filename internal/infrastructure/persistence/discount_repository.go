package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDiscountRepository implements billing.DiscountRepository
type GormDiscountRepository struct {
	db *gorm.DB
}

var _ billing.DiscountRepository = (*GormDiscountRepository)(nil)

// FindByID retrieves a discount by its id
func (r *GormDiscountRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Discount, error) {
	var model models.DiscountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// UpsertRedemptionForPurchase inserts the redemption unless the
// (discount, purchase) pair already has one. Replayed reconciliations
// hit the unique index and become no-ops.
func (r *GormDiscountRepository) UpsertRedemptionForPurchase(ctx context.Context, redemption *billing.DiscountRedemption) error {
	var model models.DiscountRedemptionModel
	model.FromDomain(redemption)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "discount_id"}, {Name: "purchase_id"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return translateError(err)
	}
	return nil
}

// FindCurrentRedemptionBySubscription retrieves the subscription's
// active (not fully redeemed) redemption.
func (r *GormDiscountRepository) FindCurrentRedemptionBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*billing.DiscountRedemption, error) {
	var model models.DiscountRedemptionModel
	err := r.db.WithContext(ctx).
		Where("subscription_id = ? AND fully_redeemed = ?", subscriptionID, false).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}
