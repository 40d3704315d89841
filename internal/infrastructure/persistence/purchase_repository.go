package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseRepository implements billing.PurchaseRepository
type GormPurchaseRepository struct {
	db *gorm.DB
}

var _ billing.PurchaseRepository = (*GormPurchaseRepository)(nil)

// FindByID retrieves a purchase by its id
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Purchase, error) {
	var model models.PurchaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new purchase
func (r *GormPurchaseRepository) Insert(ctx context.Context, purchase *billing.Purchase) error {
	var model models.PurchaseModel
	model.FromDomain(purchase)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// SaveWithLock updates the purchase guarded by its optimistic-lock
// version and bumps the in-memory version on success.
func (r *GormPurchaseRepository) SaveWithLock(ctx context.Context, purchase *billing.Purchase) error {
	err := updateWithVersionLock(ctx, r.db, &models.PurchaseModel{}, purchase.ID, purchase.Version, map[string]any{
		"status":        string(purchase.Status),
		"purchase_date": purchase.PurchaseDate,
	})
	if err != nil {
		return err
	}
	purchase.IncrementVersion()
	return nil
}
