package persistence

import (
	"context"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCheckoutSessionRepository implements billing.CheckoutSessionRepository
type GormCheckoutSessionRepository struct {
	db *gorm.DB
}

var _ billing.CheckoutSessionRepository = (*GormCheckoutSessionRepository)(nil)

// FindByID retrieves a checkout session by its id
func (r *GormCheckoutSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CheckoutSession, error) {
	var model models.CheckoutSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new checkout session
func (r *GormCheckoutSessionRepository) Insert(ctx context.Context, session *billing.CheckoutSession) error {
	var model models.CheckoutSessionModel
	model.FromDomain(session)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// SaveWithLock updates the session guarded by its optimistic-lock
// version and bumps the in-memory version on success. All mutable
// fields are written; reconciliation and edits both funnel through
// here.
func (r *GormCheckoutSessionRepository) SaveWithLock(ctx context.Context, session *billing.CheckoutSession) error {
	var paymentMethodType *string
	if session.PaymentMethodType != nil {
		method := string(*session.PaymentMethodType)
		paymentMethodType = &method
	}
	err := updateWithVersionLock(ctx, r.db, &models.CheckoutSessionModel{}, session.ID, session.Version, map[string]any{
		"status":              string(session.Status),
		"customer_id":         session.CustomerID,
		"purchase_id":         session.PurchaseID,
		"price_id":            session.PriceID,
		"quantity":            session.Quantity,
		"customer_name":       session.CustomerName,
		"customer_email":      session.CustomerEmail,
		"billing_address":     session.BillingAddress,
		"payment_method_type": paymentMethodType,
		"discount_id":         session.DiscountID,
		"payment_intent_id":   session.PaymentIntentID,
		"success_url":         session.SuccessURL,
		"cancel_url":          session.CancelURL,
	})
	if err != nil {
		return err
	}
	session.IncrementVersion()
	return nil
}
