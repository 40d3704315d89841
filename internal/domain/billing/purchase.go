package billing

import (
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseStatus represents the status of a purchase
type PurchaseStatus string

const (
	PurchaseStatusOpen    PurchaseStatus = "open"
	PurchaseStatusPending PurchaseStatus = "pending"
	PurchaseStatusPaid    PurchaseStatus = "paid"
	PurchaseStatusFailed  PurchaseStatus = "failed"
)

// IsValid checks if the status is a valid PurchaseStatus
func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusOpen, PurchaseStatusPending, PurchaseStatusPaid, PurchaseStatusFailed:
		return true
	}
	return false
}

// Purchase records an intent to pay for a price. A checkout session
// owns at most one purchase; locked-in amounts on the purchase
// override the price's unit price during fee calculation.
type Purchase struct {
	shared.BaseAggregateRoot
	OrganizationID       uuid.UUID
	CustomerID           uuid.UUID
	PriceID              uuid.UUID
	Name                 string
	Status               PurchaseStatus
	PurchaseDate         *time.Time
	FirstInvoiceValue    *int64
	PricePerBillingCycle *int64
	Livemode             bool
}

// NewPurchase creates an open purchase for a customer and price
func NewPurchase(organizationID, customerID, priceID uuid.UUID, name string, livemode bool) *Purchase {
	return &Purchase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    organizationID,
		CustomerID:        customerID,
		PriceID:           priceID,
		Name:              name,
		Status:            PurchaseStatusOpen,
		Livemode:          livemode,
	}
}

// IsPending reports whether the purchase can still be attached to an
// open checkout session.
func (p *Purchase) IsPending() bool {
	return p.Status == PurchaseStatusPending
}

// PurchaseStatusFromPaymentStatus maps a payment outcome onto the
// purchase lifecycle. Anything not terminal on the payment side keeps
// the purchase pending.
func PurchaseStatusFromPaymentStatus(status PaymentStatus) PurchaseStatus {
	switch status {
	case PaymentStatusSucceeded:
		return PurchaseStatusPaid
	case PaymentStatusCanceled:
		return PurchaseStatusFailed
	case PaymentStatusProcessing:
		return PurchaseStatusPending
	default:
		return PurchaseStatusPending
	}
}
