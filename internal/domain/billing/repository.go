package billing

import (
	"context"
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repositories bundles the per-transaction repository set handed to
// application workflows. Every repository in one bundle shares the
// same database transaction; an error returned from the workflow
// rolls back all of them, including buffered events.
type Repositories struct {
	Organizations    OrganizationRepository
	PricingModels    PricingModelRepository
	Products         ProductRepository
	Prices           PriceRepository
	Customers        CustomerRepository
	Purchases        PurchaseRepository
	Invoices         InvoiceRepository
	Payments         PaymentRepository
	CheckoutSessions CheckoutSessionRepository
	FeeCalculations  FeeCalculationRepository
	Subscriptions    SubscriptionRepository
	BillingPeriods   BillingPeriodRepository
	Discounts        DiscountRepository
	UsageMeters      UsageMeterRepository
	Events           EventRepository
}

// TransactionManager runs a workflow inside a single ACID database
// transaction, committing when fn returns nil and rolling back
// otherwise.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

// OrganizationRepository reads organization records
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}

// PricingModelRepository persists pricing models
type PricingModelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PricingModel, error)
	// FindDefault returns the default pricing model for the
	// organization and livemode, or shared.ErrNotFound.
	FindDefault(ctx context.Context, organizationID uuid.UUID, livemode bool) (*PricingModel, error)
	// SafeInsert inserts the pricing model, atomically demoting any
	// prior default for the same (organization, livemode) when the new
	// model is flagged default. Never demotes across the livemode
	// boundary.
	SafeInsert(ctx context.Context, model *PricingModel) error
}

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindDefaultActive returns the active default product of a
	// pricing model, or shared.ErrNotFound.
	FindDefaultActive(ctx context.Context, pricingModelID uuid.UUID) (*Product, error)
	Insert(ctx context.Context, product *Product) error
}

// PriceRepository persists prices
type PriceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Price, error)
	// FindDefaultActiveByProduct returns the product's active default
	// price, or shared.ErrNotFound.
	FindDefaultActiveByProduct(ctx context.Context, productID uuid.UUID) (*Price, error)
	// ExistsBySlug reports whether a price with the slug already
	// exists under the pricing model.
	ExistsBySlug(ctx context.Context, pricingModelID uuid.UUID, slug string) (bool, error)
	Insert(ctx context.Context, price *Price) error
	Update(ctx context.Context, price *Price) error
}

// CustomerRepository persists customers
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByProcessorCustomerID resolves a customer by the external
	// payment-processor customer id within an organization.
	FindByProcessorCustomerID(ctx context.Context, organizationID uuid.UUID, processorCustomerID string) (*Customer, error)
	Insert(ctx context.Context, customer *Customer) error
	Update(ctx context.Context, customer *Customer) error
	CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error)
}

// PurchaseRepository persists purchases
type PurchaseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	Insert(ctx context.Context, purchase *Purchase) error
	// SaveWithLock updates the purchase guarded by its optimistic-lock
	// version, returning shared.ErrConcurrencyConflict on a stale write.
	SaveWithLock(ctx context.Context, purchase *Purchase) error
}

// InvoiceRepository persists invoices and their line items
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*Invoice, error)
	Insert(ctx context.Context, invoice *Invoice) error
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	FindLineItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLineItem, error)
	InsertLineItems(ctx context.Context, items []InvoiceLineItem) error
	UpdateLineItem(ctx context.Context, item *InvoiceLineItem) error
	DeleteLineItems(ctx context.Context, ids []uuid.UUID) error
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByProcessorChargeID resolves a payment by its originating
	// charge id, the reconciliation idempotency key.
	FindByProcessorChargeID(ctx context.Context, chargeID string) (*Payment, error)
	// FindSucceededByInvoiceID returns all succeeded payments for an
	// invoice.
	FindSucceededByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	// SumResolvedForMonth sums the organization's resolved
	// (processor-confirmed, non-pending) payment volume for the
	// calendar month containing at, in minor units. Free-tier math
	// counts only resolved volume.
	SumResolvedForMonth(ctx context.Context, organizationID uuid.UUID, livemode bool, at time.Time) (int64, error)
	Insert(ctx context.Context, payment *Payment) error
	Update(ctx context.Context, payment *Payment) error
}

// CheckoutSessionRepository persists checkout sessions
type CheckoutSessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CheckoutSession, error)
	Insert(ctx context.Context, session *CheckoutSession) error
	SaveWithLock(ctx context.Context, session *CheckoutSession) error
}

// FeeCalculationRepository persists fee calculations
type FeeCalculationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FeeCalculation, error)
	// FindLatestByCheckoutSession returns the authoritative (most
	// recently created) fee calculation for a session, or
	// shared.ErrNotFound.
	FindLatestByCheckoutSession(ctx context.Context, checkoutSessionID uuid.UUID) (*FeeCalculation, error)
	FindLatestByBillingPeriod(ctx context.Context, billingPeriodID uuid.UUID) (*FeeCalculation, error)
	Insert(ctx context.Context, calculation *FeeCalculation) error
	// Update persists finalization changes in place. Only finalization
	// mutates a fee calculation; everything else creates a new row.
	Update(ctx context.Context, calculation *FeeCalculation) error
}

// SubscriptionRepository persists subscriptions and their items
type SubscriptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	Insert(ctx context.Context, subscription *Subscription) error
	Update(ctx context.Context, subscription *Subscription) error
	InsertItems(ctx context.Context, items []SubscriptionItem) error
}

// BillingPeriodView is the read model used by revenue aggregation: a
// billing period joined with its items and the owning subscription's
// interval.
type BillingPeriodView struct {
	Period        BillingPeriod
	Items         []BillingPeriodItem
	PriceID       uuid.UUID
	IntervalUnit  IntervalUnit
	IntervalCount int
}

// BillingPeriodRepository persists billing periods and their items
type BillingPeriodRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BillingPeriod, error)
	FindItems(ctx context.Context, billingPeriodID uuid.UUID) ([]BillingPeriodItem, error)
	Insert(ctx context.Context, period *BillingPeriod) error
	InsertItems(ctx context.Context, items []BillingPeriodItem) error
	// FindOverlapping returns every billing period of the organization
	// overlapping [start, end], optionally filtered to periods whose
	// subscription price belongs to productID.
	FindOverlapping(ctx context.Context, organizationID uuid.UUID, start, end time.Time, productID *uuid.UUID) ([]BillingPeriodView, error)
}

// DiscountRepository persists discounts and redemptions
type DiscountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Discount, error)
	// UpsertRedemptionForPurchase creates the redemption for the
	// (discount, purchase) pair or leaves an existing one untouched.
	UpsertRedemptionForPurchase(ctx context.Context, redemption *DiscountRedemption) error
	// FindCurrentRedemptionBySubscription returns the subscription's
	// not-fully-redeemed redemption, or shared.ErrNotFound.
	FindCurrentRedemptionBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*DiscountRedemption, error)
}

// UsageMeterRepository persists usage meters
type UsageMeterRepository interface {
	Insert(ctx context.Context, meter *UsageMeter) error
	ExistsBySlug(ctx context.Context, pricingModelID uuid.UUID, slug string) (bool, error)
}

// EventRepository appends buffered side effects inside the enclosing
// transaction (transactional outbox): the append commits or rolls
// back together with the business mutation that produced it.
type EventRepository interface {
	AppendEvents(ctx context.Context, events []shared.DomainEvent) error
	AppendLedgerCommands(ctx context.Context, commands []shared.LedgerCommand) error
}

// TaxCalculationInput is the call contract of the external
// tax-jurisdiction rules engine.
type TaxCalculationInput struct {
	OrganizationID uuid.UUID
	PriceID        *uuid.UUID
	PurchaseID     *uuid.UUID
	Amount         int64
	Currency       string
	BillingAddress any
	Livemode       bool
}

// TaxCalculationResult is the tax engine's answer
type TaxCalculationResult struct {
	TaxAmount     int64
	CalculationID string
}

// ProcessorClient is the narrow payment-processor contract this core
// consumes. Calls are at-least-once; callers pass stable ids so the
// processor side dedupes.
type ProcessorClient interface {
	CreateCustomer(ctx context.Context, email, name string, livemode bool) (string, error)
	CreateTaxCalculation(ctx context.Context, input TaxCalculationInput) (*TaxCalculationResult, error)
	UpdatePaymentIntent(ctx context.Context, id string, amount, applicationFeeAmount int64, livemode bool) error
}

// CreateSubscriptionInput is the input to the subscription
// provisioning workflow.
type CreateSubscriptionInput struct {
	Organization *Organization
	Customer     *Customer
	Product      *Product
	Price        *Price
	Quantity     int64
	StartDate    time.Time
	TrialEnd     *time.Time
	AutoStart    bool
	Name         string
	Livemode     bool
}

// SubscriptionCreationResult is what the provisioning workflow returns
type SubscriptionCreationResult struct {
	Subscription      *Subscription
	SubscriptionItems []SubscriptionItem
	Events            []shared.DomainEvent
}

// SubscriptionProvisioner creates subscriptions inside the caller's
// transaction.
type SubscriptionProvisioner interface {
	CreateSubscription(ctx context.Context, repos *Repositories, input CreateSubscriptionInput) (*SubscriptionCreationResult, error)
}

// ReceiptGenerator renders and delivers a receipt for a paid invoice.
// Invoked fire-and-forget on the transition into paid.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, invoiceID uuid.UUID)
}
