package billing

import (
	"fmt"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type names used in domain events
const (
	AggregateTypeCustomer        = "Customer"
	AggregateTypeSubscription    = "Subscription"
	AggregateTypePurchase        = "Purchase"
	AggregateTypeInvoice         = "Invoice"
	AggregateTypeCheckoutSession = "CheckoutSession"
)

// Event type names
const (
	EventTypeCustomerCreated           = "customer.created"
	EventTypeSubscriptionCreated       = "subscription.created"
	EventTypePurchaseCompleted         = "purchase.completed"
	EventTypeInvoicePaid               = "invoice.paid"
	EventTypeCheckoutSessionCompleted  = "checkout_session.completed"
	LedgerCommandTypePaymentRecognized = "ledger.payment_recognized"
)

// CustomerCreatedEvent is emitted once per created customer. Its
// idempotency key hashes the customer's business identity so replays
// of the same creation dedupe at the sink.
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	ExternalID string    `json:"external_id"`
}

// NewCustomerCreatedEvent creates the event for a customer
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	key := shared.HashIdempotencyKey(
		EventTypeCustomerCreated,
		customer.OrganizationID.String(),
		customer.Email,
		customer.ExternalID,
		fmt.Sprintf("%t", customer.Livemode),
	)
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeCustomerCreated, AggregateTypeCustomer,
			customer.ID, customer.OrganizationID, customer.Livemode, key),
		CustomerID: customer.ID,
		Email:      customer.Email,
		ExternalID: customer.ExternalID,
	}
}

// SubscriptionCreatedEvent is emitted when the provisioning workflow
// creates a subscription.
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	PriceID        uuid.UUID `json:"price_id"`
	Renews         bool      `json:"renews"`
}

// NewSubscriptionCreatedEvent creates the event for a subscription
func NewSubscriptionCreatedEvent(sub *Subscription) *SubscriptionCreatedEvent {
	key := shared.HashIdempotencyKey(
		EventTypeSubscriptionCreated,
		sub.OrganizationID.String(),
		sub.CustomerID.String(),
		sub.PriceID.String(),
		sub.ID.String(),
	)
	return &SubscriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeSubscriptionCreated, AggregateTypeSubscription,
			sub.ID, sub.OrganizationID, sub.Livemode, key),
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		PriceID:        sub.PriceID,
		Renews:         sub.Renews,
	}
}

// PurchaseCompletedEvent is emitted when a purchase transitions to paid
type PurchaseCompletedEvent struct {
	shared.BaseDomainEvent
	PurchaseID uuid.UUID `json:"purchase_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewPurchaseCompletedEvent creates the event for a paid purchase
func NewPurchaseCompletedEvent(purchase *Purchase) *PurchaseCompletedEvent {
	key := shared.HashIdempotencyKey(EventTypePurchaseCompleted, purchase.ID.String())
	return &PurchaseCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePurchaseCompleted, AggregateTypePurchase,
			purchase.ID, purchase.OrganizationID, purchase.Livemode, key),
		PurchaseID: purchase.ID,
		CustomerID: purchase.CustomerID,
	}
}

// InvoicePaidEvent is emitted exactly once, on the transition into the
// terminal paid state.
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID `json:"invoice_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	TotalAmount int64     `json:"total_amount"`
}

// NewInvoicePaidEvent creates the event for a paid invoice
func NewInvoicePaidEvent(invoice *Invoice, totalAmount int64) *InvoicePaidEvent {
	key := shared.HashIdempotencyKey(EventTypeInvoicePaid, invoice.ID.String())
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeInvoicePaid, AggregateTypeInvoice,
			invoice.ID, invoice.OrganizationID, invoice.Livemode, key),
		InvoiceID:   invoice.ID,
		CustomerID:  invoice.CustomerID,
		TotalAmount: totalAmount,
	}
}

// CheckoutSessionCompletedEvent is emitted when a session reaches a
// terminal status during reconciliation.
type CheckoutSessionCompletedEvent struct {
	shared.BaseDomainEvent
	CheckoutSessionID uuid.UUID             `json:"checkout_session_id"`
	Status            CheckoutSessionStatus `json:"status"`
	ChargeID          string                `json:"charge_id"`
}

// NewCheckoutSessionCompletedEvent creates the event for a reconciled session
func NewCheckoutSessionCompletedEvent(session *CheckoutSession, chargeID string) *CheckoutSessionCompletedEvent {
	key := shared.HashIdempotencyKey(EventTypeCheckoutSessionCompleted, session.ID.String(), chargeID)
	return &CheckoutSessionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeCheckoutSessionCompleted, AggregateTypeCheckoutSession,
			session.ID, session.OrganizationID, session.Livemode, key),
		CheckoutSessionID: session.ID,
		Status:            session.Status,
		ChargeID:          chargeID,
	}
}
