package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrganizationRepository implements billing.OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

var _ billing.OrganizationRepository = (*GormOrganizationRepository)(nil)

// FindByID retrieves an organization by its id
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// GormPricingModelRepository implements billing.PricingModelRepository
type GormPricingModelRepository struct {
	db *gorm.DB
}

var _ billing.PricingModelRepository = (*GormPricingModelRepository)(nil)

// FindByID retrieves a pricing model by its id
func (r *GormPricingModelRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PricingModel, error) {
	var model models.PricingModelModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindDefault retrieves the default pricing model for an organization
// and livemode.
func (r *GormPricingModelRepository) FindDefault(ctx context.Context, organizationID uuid.UUID, livemode bool) (*billing.PricingModel, error) {
	var model models.PricingModelModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND livemode = ? AND is_default = ?", organizationID, livemode, true).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// SafeInsert inserts the pricing model, first demoting any existing
// default for the same organization and livemode when the new model is
// flagged default. Demotion never crosses the livemode boundary.
func (r *GormPricingModelRepository) SafeInsert(ctx context.Context, pm *billing.PricingModel) error {
	if pm.IsDefault {
		err := r.db.WithContext(ctx).
			Model(&models.PricingModelModel{}).
			Where("organization_id = ? AND livemode = ? AND is_default = ?", pm.OrganizationID, pm.Livemode, true).
			Update("is_default", false).Error
		if err != nil {
			return translateError(err)
		}
	}
	var model models.PricingModelModel
	model.FromDomain(pm)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GormProductRepository implements billing.ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

var _ billing.ProductRepository = (*GormProductRepository)(nil)

// FindByID retrieves a product by its id
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindDefaultActive retrieves the active default product of a pricing model
func (r *GormProductRepository) FindDefaultActive(ctx context.Context, pricingModelID uuid.UUID) (*billing.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).
		Where("pricing_model_id = ? AND is_default = ? AND active = ?", pricingModelID, true, true).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new product
func (r *GormProductRepository) Insert(ctx context.Context, product *billing.Product) error {
	var model models.ProductModel
	model.FromDomain(product)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GormPriceRepository implements billing.PriceRepository
type GormPriceRepository struct {
	db *gorm.DB
}

var _ billing.PriceRepository = (*GormPriceRepository)(nil)

// FindByID retrieves a price by its id
func (r *GormPriceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Price, error) {
	var model models.PriceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindDefaultActiveByProduct retrieves a product's active default price
func (r *GormPriceRepository) FindDefaultActiveByProduct(ctx context.Context, productID uuid.UUID) (*billing.Price, error) {
	var model models.PriceModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_default = ? AND active = ?", productID, true, true).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsBySlug reports whether a price slug is taken within a pricing model
func (r *GormPriceRepository) ExistsBySlug(ctx context.Context, pricingModelID uuid.UUID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceModel{}).
		Where("pricing_model_id = ? AND slug = ?", pricingModelID, slug).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Insert persists a new price
func (r *GormPriceRepository) Insert(ctx context.Context, price *billing.Price) error {
	var model models.PriceModel
	model.FromDomain(price)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update persists changes to an existing price
func (r *GormPriceRepository) Update(ctx context.Context, price *billing.Price) error {
	var model models.PriceModel
	model.FromDomain(price)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GormUsageMeterRepository implements billing.UsageMeterRepository
type GormUsageMeterRepository struct {
	db *gorm.DB
}

var _ billing.UsageMeterRepository = (*GormUsageMeterRepository)(nil)

// Insert persists a new usage meter
func (r *GormUsageMeterRepository) Insert(ctx context.Context, meter *billing.UsageMeter) error {
	var model models.UsageMeterModel
	model.FromDomain(meter)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// ExistsBySlug reports whether a meter slug is taken within a pricing model
func (r *GormUsageMeterRepository) ExistsBySlug(ctx context.Context, pricingModelID uuid.UUID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UsageMeterModel{}).
		Where("pricing_model_id = ? AND slug = ?", pricingModelID, slug).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}
