package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements billing.CustomerRepository
type GormCustomerRepository struct {
	db *gorm.DB
}

var _ billing.CustomerRepository = (*GormCustomerRepository)(nil)

// FindByID retrieves a customer by its id
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByProcessorCustomerID retrieves a customer by processor customer
// id within an organization.
func (r *GormCustomerRepository) FindByProcessorCustomerID(ctx context.Context, organizationID uuid.UUID, processorCustomerID string) (*billing.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND processor_customer_id = ?", organizationID, processorCustomerID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new customer
func (r *GormCustomerRepository) Insert(ctx context.Context, customer *billing.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update persists changes to an existing customer
func (r *GormCustomerRepository) Update(ctx context.Context, customer *billing.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// CountByOrganization counts an organization's customers
func (r *GormCustomerRepository) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}
