package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CheckoutSessionStatus represents the state of a checkout session.
// Open is the only mutable state; Pending, Succeeded and Failed are
// terminal for the session - retries create a new session.
type CheckoutSessionStatus string

const (
	CheckoutSessionStatusOpen      CheckoutSessionStatus = "open"
	CheckoutSessionStatusPending   CheckoutSessionStatus = "pending"
	CheckoutSessionStatusSucceeded CheckoutSessionStatus = "succeeded"
	CheckoutSessionStatusFailed    CheckoutSessionStatus = "failed"
)

// IsValid checks if the status is a valid CheckoutSessionStatus
func (s CheckoutSessionStatus) IsValid() bool {
	switch s {
	case CheckoutSessionStatusOpen, CheckoutSessionStatusPending,
		CheckoutSessionStatusSucceeded, CheckoutSessionStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true once the session can no longer be edited
func (s CheckoutSessionStatus) IsTerminal() bool {
	return s != CheckoutSessionStatusOpen
}

// CheckoutSessionType tags what the session is selling
type CheckoutSessionType string

const (
	CheckoutSessionTypeProduct  CheckoutSessionType = "product"
	CheckoutSessionTypePurchase CheckoutSessionType = "purchase"
	CheckoutSessionTypeInvoice  CheckoutSessionType = "invoice"
)

// Cart is the variant payload of a checkout session, resolved once
// from the session's type tag. The invoice variant carries no
// product or purchase fields, so the invoice reconciliation path is
// structurally unable to touch them.
type Cart interface {
	isCart()
}

// ProductCart sells a price directly
type ProductCart struct {
	PriceID  uuid.UUID
	Quantity int64
}

// PurchaseCart resumes a previously created purchase
type PurchaseCart struct {
	PurchaseID uuid.UUID
	PriceID    uuid.UUID
}

// InvoiceCart collects payment for an existing invoice
type InvoiceCart struct {
	InvoiceID uuid.UUID
}

func (ProductCart) isCart()  {}
func (PurchaseCart) isCart() {}
func (InvoiceCart) isCart()  {}

// CheckoutSession is the ephemeral transaction context for a checkout.
// Only mutable while Open.
type CheckoutSession struct {
	shared.BaseAggregateRoot
	OrganizationID    uuid.UUID
	Type              CheckoutSessionType
	Status            CheckoutSessionStatus
	CustomerID        *uuid.UUID
	PurchaseID        *uuid.UUID
	InvoiceID         *uuid.UUID
	PriceID           *uuid.UUID
	Quantity          int64
	CustomerName      *string
	CustomerEmail     *string
	BillingAddress    *valueobject.BillingAddress
	PaymentMethodType *PaymentMethod
	DiscountID        *uuid.UUID
	PaymentIntentID   *string
	SuccessURL        string
	CancelURL         string
	Livemode          bool
}

// IsOpen reports whether the session can still be edited
func (s *CheckoutSession) IsOpen() bool {
	return s.Status == CheckoutSessionStatusOpen
}

// Cart resolves the session's variant payload from its type tag
func (s *CheckoutSession) Cart() (Cart, error) {
	switch s.Type {
	case CheckoutSessionTypeProduct:
		if s.PriceID == nil {
			return nil, shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Product checkout session has no price")
		}
		quantity := s.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		return ProductCart{PriceID: *s.PriceID, Quantity: quantity}, nil
	case CheckoutSessionTypePurchase:
		if s.PurchaseID == nil || s.PriceID == nil {
			return nil, shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Purchase checkout session has no purchase or price")
		}
		return PurchaseCart{PurchaseID: *s.PurchaseID, PriceID: *s.PriceID}, nil
	case CheckoutSessionTypeInvoice:
		if s.InvoiceID == nil {
			return nil, shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Invoice checkout session has no invoice")
		}
		return InvoiceCart{InvoiceID: *s.InvoiceID}, nil
	default:
		return nil, shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Unknown checkout session type")
	}
}

// FeeReady reports whether enough fields are present to compute a fee
// calculation: a billing address, a payment method type, and a price
// or invoice to charge for.
func (s *CheckoutSession) FeeReady() bool {
	if s.BillingAddress == nil || s.BillingAddress.IsZero() {
		return false
	}
	if s.PaymentMethodType == nil {
		return false
	}
	return s.PriceID != nil || s.InvoiceID != nil
}

// CaptureBillingDetails records the customer name and email reported
// by the processor charge. Captured regardless of charge outcome.
func (s *CheckoutSession) CaptureBillingDetails(name, email string) {
	if name != "" {
		s.CustomerName = &name
	}
	if email != "" {
		s.CustomerEmail = &email
	}
}

// CheckoutSessionEdit is a field-level patch merged over an open
// session. Nil fields leave the previous value in place.
type CheckoutSessionEdit struct {
	PriceID           *uuid.UUID
	Quantity          *int64
	CustomerEmail     *string
	CustomerName      *string
	BillingAddress    *valueobject.BillingAddress
	PaymentMethodType *PaymentMethod
	DiscountID        *uuid.UUID
	ClearDiscount     bool
	SuccessURL        *string
	CancelURL         *string
}

// ApplyEdit merges the patch into the session. Field-level merge, not
// replace: absent fields keep their prior values.
func (s *CheckoutSession) ApplyEdit(edit CheckoutSessionEdit) {
	if edit.PriceID != nil {
		s.PriceID = edit.PriceID
	}
	if edit.Quantity != nil && *edit.Quantity > 0 {
		s.Quantity = *edit.Quantity
	}
	if edit.CustomerEmail != nil {
		s.CustomerEmail = edit.CustomerEmail
	}
	if edit.CustomerName != nil {
		s.CustomerName = edit.CustomerName
	}
	if edit.BillingAddress != nil {
		s.BillingAddress = edit.BillingAddress
	}
	if edit.PaymentMethodType != nil {
		s.PaymentMethodType = edit.PaymentMethodType
	}
	if edit.ClearDiscount {
		s.DiscountID = nil
	} else if edit.DiscountID != nil {
		s.DiscountID = edit.DiscountID
	}
	if edit.SuccessURL != nil {
		s.SuccessURL = *edit.SuccessURL
	}
	if edit.CancelURL != nil {
		s.CancelURL = *edit.CancelURL
	}
}

// CheckoutSessionStatusFromChargeStatus derives the session's terminal
// status from a processor charge outcome.
func CheckoutSessionStatusFromChargeStatus(status ChargeStatus) CheckoutSessionStatus {
	switch status {
	case ChargeStatusSucceeded:
		return CheckoutSessionStatusSucceeded
	case ChargeStatusPending:
		return CheckoutSessionStatusPending
	default:
		return CheckoutSessionStatusFailed
	}
}
