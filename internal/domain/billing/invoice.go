package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
	// InvoiceStatusAwaitingPaymentConfirmation marks invoices whose
	// charge is pending on the processor side. The payment layer is
	// authoritative for pending states.
	InvoiceStatusAwaitingPaymentConfirmation InvoiceStatus = "awaiting_payment_confirmation"
	InvoiceStatusPaid                        InvoiceStatus = "paid"
	InvoiceStatusUncollectible               InvoiceStatus = "uncollectible"
	InvoiceStatusVoid                        InvoiceStatus = "void"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusOpen, InvoiceStatusAwaitingPaymentConfirmation,
		InvoiceStatusPaid, InvoiceStatusUncollectible, InvoiceStatusVoid:
		return true
	}
	return false
}

// IsTerminal returns true if the status can never change again.
// Paid is monotonic: once paid, an invoice is never regressed.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// Invoice aggregates line items for a purchase or billing period. Its
// total is always derived from the line items, never stored.
type Invoice struct {
	shared.BaseAggregateRoot
	OrganizationID  uuid.UUID
	CustomerID      uuid.UUID
	PurchaseID      *uuid.UUID
	BillingPeriodID *uuid.UUID
	InvoiceNumber   string
	Status          InvoiceStatus
	Currency        valueobject.Currency
	Livemode        bool
}

// NewInvoice creates a draft invoice for a customer
func NewInvoice(organizationID, customerID uuid.UUID, invoiceNumber string, currency valueobject.Currency, livemode bool) *Invoice {
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    organizationID,
		CustomerID:        customerID,
		InvoiceNumber:     invoiceNumber,
		Status:            InvoiceStatusDraft,
		Currency:          currency,
		Livemode:          livemode,
	}
}

// IsPaid reports whether the invoice has reached its terminal paid state
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// MarkPaid transitions the invoice into its terminal paid state.
// Calling it on an already-paid invoice is a no-op.
func (i *Invoice) MarkPaid() {
	i.Status = InvoiceStatusPaid
}

// InvoiceLineItem contributes quantity x price to the invoice total
type InvoiceLineItem struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID
	PriceID     *uuid.UUID
	Description string
	Quantity    int64
	Price       int64
	Livemode    bool
}

// NewInvoiceLineItem creates a line item on an invoice
func NewInvoiceLineItem(invoiceID uuid.UUID, description string, quantity, price int64, livemode bool) *InvoiceLineItem {
	return &InvoiceLineItem{
		BaseEntity:  shared.NewBaseEntity(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		Price:       price,
		Livemode:    livemode,
	}
}
