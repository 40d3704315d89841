package persistence

import (
	"context"
	"errors"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionManager runs billing workflows inside one gorm
// transaction, handing them a repository bundle bound to that
// transaction.
type GormTransactionManager struct {
	db *Database
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *Database) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

var _ billing.TransactionManager = (*GormTransactionManager)(nil)

// Do executes fn within a database transaction. The repositories
// handed to fn all share the transaction; an error rolls everything
// back, including outbox appends.
func (m *GormTransactionManager) Do(ctx context.Context, fn func(ctx context.Context, repos *billing.Repositories) error) error {
	return m.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// NewRepositories builds the full repository bundle on one gorm
// handle. Used by the transaction manager and by tests that supply an
// in-memory database.
func NewRepositories(db *gorm.DB) *billing.Repositories {
	return &billing.Repositories{
		Organizations:    &GormOrganizationRepository{db: db},
		PricingModels:    &GormPricingModelRepository{db: db},
		Products:         &GormProductRepository{db: db},
		Prices:           &GormPriceRepository{db: db},
		Customers:        &GormCustomerRepository{db: db},
		Purchases:        &GormPurchaseRepository{db: db},
		Invoices:         &GormInvoiceRepository{db: db},
		Payments:         &GormPaymentRepository{db: db},
		CheckoutSessions: &GormCheckoutSessionRepository{db: db},
		FeeCalculations:  &GormFeeCalculationRepository{db: db},
		Subscriptions:    &GormSubscriptionRepository{db: db},
		BillingPeriods:   &GormBillingPeriodRepository{db: db},
		Discounts:        &GormDiscountRepository{db: db},
		UsageMeters:      &GormUsageMeterRepository{db: db},
		Events:           &GormOutboxRepository{db: db},
	}
}

// translateError maps gorm errors onto domain errors
func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}
