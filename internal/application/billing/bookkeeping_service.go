package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCustomerOrganizationMismatch rejects cross-tenant customer
	// creation
	ErrCustomerOrganizationMismatch = errors.New("Customer organizationId must match authenticated organizationId")
	// ErrInvoiceIDMismatch rejects invoice updates whose payload id
	// disagrees with the target id
	ErrInvoiceIDMismatch = errors.New("ID mismatch")
)

// AuthContext identifies the authenticated organization and mode every
// workflow runs under. Livemode partitions test data from live data;
// no workflow reads across the boundary.
type AuthContext struct {
	OrganizationID uuid.UUID
	Livemode       bool
}

// BookkeepingService owns the non-checkout bookkeeping workflows:
// customer creation, pricing model setup, and the propagation of
// payment outcomes onto purchases and invoices.
type BookkeepingService struct {
	txManager   billing.TransactionManager
	processor   billing.ProcessorClient
	provisioner billing.SubscriptionProvisioner
	receipts    billing.ReceiptGenerator
	logger      *zap.Logger
}

// BookkeepingServiceConfig configures a BookkeepingService
type BookkeepingServiceConfig struct {
	TxManager   billing.TransactionManager
	Processor   billing.ProcessorClient
	Provisioner billing.SubscriptionProvisioner
	Receipts    billing.ReceiptGenerator
	Logger      *zap.Logger
}

// NewBookkeepingService creates a new BookkeepingService
func NewBookkeepingService(cfg BookkeepingServiceConfig) *BookkeepingService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookkeepingService{
		txManager:   cfg.TxManager,
		processor:   cfg.Processor,
		provisioner: cfg.Provisioner,
		receipts:    cfg.Receipts,
		logger:      logger,
	}
}

// CustomerPayload is the input to customer creation
type CustomerPayload struct {
	OrganizationID      uuid.UUID
	Email               string
	Name                string
	ExternalID          string
	PricingModelID      *uuid.UUID
	ProcessorCustomerID *string
}

// CustomerBookkeepingResult is what customer creation returns. The
// subscription fields are set only when auto-subscription succeeded.
type CustomerBookkeepingResult struct {
	Customer          *billing.Customer
	Subscription      *billing.Subscription
	SubscriptionItems []billing.SubscriptionItem
}

// CreateCustomer creates a customer under the authenticated
// organization, provisions a processor-side customer when none was
// supplied, and attempts to auto-subscribe the customer to the default
// product of their pricing model. Auto-subscription is best effort:
// its failure is logged and swallowed, never failing the creation.
func (s *BookkeepingService) CreateCustomer(
	ctx context.Context,
	payload CustomerPayload,
	auth AuthContext,
) (*shared.TransactionOutcome[CustomerBookkeepingResult], error) {
	outcome := shared.NewTransactionOutcome(CustomerBookkeepingResult{})
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		if err := s.createCustomerBookkeeping(ctx, repos, payload, auth, outcome); err != nil {
			return err
		}
		return flushOutcome(ctx, repos, outcome.Events, outcome.LedgerCommands)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *BookkeepingService) createCustomerBookkeeping(
	ctx context.Context,
	repos *billing.Repositories,
	payload CustomerPayload,
	auth AuthContext,
	outcome *shared.TransactionOutcome[CustomerBookkeepingResult],
) error {
	if payload.OrganizationID != uuid.Nil && payload.OrganizationID != auth.OrganizationID {
		return ErrCustomerOrganizationMismatch
	}

	org, err := repos.Organizations.FindByID(ctx, auth.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to load organization: %w", err)
	}

	pricingModel, err := s.resolvePricingModel(ctx, repos, payload.PricingModelID, auth)
	if err != nil {
		return err
	}

	customer := &billing.Customer{
		BaseEntity:          shared.NewBaseEntity(),
		OrganizationID:      auth.OrganizationID,
		Email:               payload.Email,
		Name:                payload.Name,
		ExternalID:          payload.ExternalID,
		ProcessorCustomerID: payload.ProcessorCustomerID,
		Livemode:            auth.Livemode,
	}
	if pricingModel != nil {
		customer.PricingModelID = &pricingModel.ID
	}
	if err := repos.Customers.Insert(ctx, customer); err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	if !customer.HasProcessorCustomer() {
		processorID, err := s.processor.CreateCustomer(ctx, customer.Email, customer.Name, auth.Livemode)
		if err != nil {
			return fmt.Errorf("failed to provision processor customer: %w", err)
		}
		customer.SetProcessorCustomerID(processorID)
		if err := repos.Customers.Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to persist processor customer id: %w", err)
		}
	}

	outcome.Value.Customer = customer
	outcome.AddEvent(billing.NewCustomerCreatedEvent(customer))

	if pricingModel != nil {
		if err := s.autoSubscribe(ctx, repos, org, customer, pricingModel, auth.Livemode, outcome); err != nil {
			s.logger.Warn("Auto-subscription at customer creation failed",
				zap.String("customer_id", customer.ID.String()),
				zap.String("pricing_model_id", pricingModel.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// resolvePricingModel resolves the explicit pricing model or falls back
// to the organization's default for the livemode. A missing default is
// not an error; the customer is created without one.
func (s *BookkeepingService) resolvePricingModel(
	ctx context.Context,
	repos *billing.Repositories,
	explicitID *uuid.UUID,
	auth AuthContext,
) (*billing.PricingModel, error) {
	if explicitID != nil {
		model, err := repos.PricingModels.FindByID(ctx, *explicitID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pricing model: %w", err)
		}
		if model.OrganizationID != auth.OrganizationID {
			return nil, ErrCustomerOrganizationMismatch
		}
		return model, nil
	}
	model, err := repos.PricingModels.FindDefault(ctx, auth.OrganizationID, auth.Livemode)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load default pricing model: %w", err)
	}
	return model, nil
}

// autoSubscribe subscribes a fresh customer to the default active
// product's default active price. Missing defaults end the attempt
// quietly; they are a configuration state, not an error.
func (s *BookkeepingService) autoSubscribe(
	ctx context.Context,
	repos *billing.Repositories,
	org *billing.Organization,
	customer *billing.Customer,
	pricingModel *billing.PricingModel,
	livemode bool,
	outcome *shared.TransactionOutcome[CustomerBookkeepingResult],
) error {
	product, err := repos.Products.FindDefaultActive(ctx, pricingModel.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load default product: %w", err)
	}
	price, err := repos.Prices.FindDefaultActiveByProduct(ctx, product.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load default price: %w", err)
	}

	startDate := time.Now().UTC()
	var trialEnd *time.Time
	if price.TrialPeriodDays != nil && *price.TrialPeriodDays > 0 {
		end := startDate.AddDate(0, 0, *price.TrialPeriodDays)
		trialEnd = &end
	}

	result, err := s.provisioner.CreateSubscription(ctx, repos, billing.CreateSubscriptionInput{
		Organization: org,
		Customer:     customer,
		Product:      product,
		Price:        price,
		Quantity:     1,
		StartDate:    startDate,
		TrialEnd:     trialEnd,
		AutoStart:    true,
		Livemode:     livemode,
	})
	if err != nil {
		return err
	}
	outcome.Value.Subscription = result.Subscription
	outcome.Value.SubscriptionItems = result.SubscriptionItems
	outcome.AddEvents(result.Events...)
	return nil
}

// PricingModelPayload is the input to pricing model creation
type PricingModelPayload struct {
	Name                    string
	IsDefault               bool
	DefaultPlanIntervalUnit *billing.IntervalUnit
}

// PricingModelCreationResult is what pricing model creation returns
type PricingModelCreationResult struct {
	PricingModel   *billing.PricingModel
	DefaultProduct *billing.Product
	DefaultPrice   *billing.Price
}

// CreatePricingModel creates a pricing model with its free default
// plan: a "Free Plan" product carrying a zero-amount default price.
// When flagged default, any prior default for the same organization
// and livemode is demoted in the same transaction. The default plan's
// price is a subscription price on the given interval, or a
// single-payment price when no interval is supplied.
func (s *BookkeepingService) CreatePricingModel(
	ctx context.Context,
	payload PricingModelPayload,
	auth AuthContext,
) (*PricingModelCreationResult, error) {
	result := &PricingModelCreationResult{}
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		org, err := repos.Organizations.FindByID(ctx, auth.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to load organization: %w", err)
		}

		model := billing.NewPricingModel(auth.OrganizationID, payload.Name, payload.IsDefault, auth.Livemode)
		if err := repos.PricingModels.SafeInsert(ctx, model); err != nil {
			return fmt.Errorf("failed to insert pricing model: %w", err)
		}

		product := billing.NewProduct(model.ID, auth.OrganizationID, "Free Plan", "free", true, auth.Livemode)
		if err := repos.Products.Insert(ctx, product); err != nil {
			return fmt.Errorf("failed to insert default product: %w", err)
		}

		price := &billing.Price{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: auth.OrganizationID,
			PricingModelID: model.ID,
			ProductID:      &product.ID,
			Name:           "Free Plan",
			Slug:           "free",
			Type:           billing.PriceTypeSinglePayment,
			IsDefault:      true,
			Active:         true,
			UnitPrice:      0,
			Currency:       org.DefaultCurrency,
			Livemode:       auth.Livemode,
		}
		if payload.DefaultPlanIntervalUnit != nil {
			unit := *payload.DefaultPlanIntervalUnit
			count := 1
			price.Type = billing.PriceTypeSubscription
			price.IntervalUnit = &unit
			price.IntervalCount = &count
		}
		if err := repos.Prices.Insert(ctx, price); err != nil {
			return fmt.Errorf("failed to insert default price: %w", err)
		}

		result.PricingModel = model
		result.DefaultProduct = product
		result.DefaultPrice = price
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created pricing model",
		zap.String("pricing_model_id", result.PricingModel.ID.String()),
		zap.Bool("is_default", result.PricingModel.IsDefault))
	return result, nil
}

// UpdatePurchaseStatusFromPayment propagates a payment outcome onto its
// purchase. Every status write stamps the purchase date from the
// payment's charge date, not just the transition into paid. A payment
// with no purchase is a no-op. Reprocessing the same payment converges
// on the same status and date without a second event.
func (s *BookkeepingService) UpdatePurchaseStatusFromPayment(
	ctx context.Context,
	repos *billing.Repositories,
	payment *billing.Payment,
) (*billing.Purchase, []shared.DomainEvent, error) {
	if payment.PurchaseID == nil {
		return nil, nil, nil
	}
	purchase, err := repos.Purchases.FindByID(ctx, *payment.PurchaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load purchase: %w", err)
	}

	newStatus := billing.PurchaseStatusFromPaymentStatus(payment.Status)
	purchaseDate := payment.ChargeDate
	if purchase.Status == newStatus &&
		purchase.PurchaseDate != nil && purchase.PurchaseDate.Equal(purchaseDate) {
		return purchase, nil, nil
	}
	transitioned := purchase.Status != newStatus
	purchase.Status = newStatus
	purchase.PurchaseDate = &purchaseDate
	var events []shared.DomainEvent
	if transitioned && newStatus == billing.PurchaseStatusPaid {
		events = append(events, billing.NewPurchaseCompletedEvent(purchase))
	}
	if err := repos.Purchases.SaveWithLock(ctx, purchase); err != nil {
		return nil, nil, fmt.Errorf("failed to save purchase: %w", err)
	}
	return purchase, events, nil
}

// UpdateInvoiceStatusFromPayment re-derives an invoice's paid state
// from the full set of its succeeded payments. Only succeeded payments
// trigger re-derivation; a paid invoice is terminal and is returned
// unchanged. Payments are deduplicated by id and refunds reduce each
// payment's contribution. The returned flag reports the transition
// into paid; the caller buffers the receipt on its outcome and
// dispatches it only after the transaction commits.
func (s *BookkeepingService) UpdateInvoiceStatusFromPayment(
	ctx context.Context,
	repos *billing.Repositories,
	payment *billing.Payment,
) (*billing.Invoice, []shared.DomainEvent, bool, error) {
	invoice, err := repos.Invoices.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load invoice: %w", err)
	}
	if payment.Status != billing.PaymentStatusSucceeded {
		return invoice, nil, false, nil
	}
	if invoice.Status.IsTerminal() {
		return invoice, nil, false, nil
	}

	settled, err := s.settledAmountForInvoice(ctx, repos, invoice.ID, payment)
	if err != nil {
		return nil, nil, false, err
	}
	lineItems, err := repos.Invoices.FindLineItems(ctx, invoice.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load invoice line items: %w", err)
	}
	total := billing.CalculateInvoiceBaseAmount(lineItems)
	if total <= 0 || settled < total {
		return invoice, nil, false, nil
	}

	invoice.MarkPaid()
	if err := repos.Invoices.SaveWithLock(ctx, invoice); err != nil {
		return nil, nil, false, fmt.Errorf("failed to save invoice: %w", err)
	}
	events := []shared.DomainEvent{billing.NewInvoicePaidEvent(invoice, total)}
	return invoice, events, true, nil
}

// settledAmountForInvoice sums the effective amounts of the invoice's
// succeeded payments, deduplicated by payment id and including the
// in-flight payment that may not be visible to the query yet.
func (s *BookkeepingService) settledAmountForInvoice(
	ctx context.Context,
	repos *billing.Repositories,
	invoiceID uuid.UUID,
	current *billing.Payment,
) (int64, error) {
	payments, err := repos.Payments.FindSucceededByInvoiceID(ctx, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("failed to load invoice payments: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(payments)+1)
	var settled int64
	for i := range payments {
		p := &payments[i]
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		settled += p.EffectiveAmount()
	}
	if current != nil && current.Status == billing.PaymentStatusSucceeded && !seen[current.ID] {
		settled += current.EffectiveAmount()
	}
	return settled, nil
}

// DispatchReceipts generates receipts for invoices that transitioned
// into paid. Callers invoke it after their transaction commits; a
// rolled-back transaction never reaches it, so no receipt goes out for
// an invoice that was never marked paid. Receipt delivery is best
// effort.
func (s *BookkeepingService) DispatchReceipts(ctx context.Context, invoiceIDs []uuid.UUID) {
	if s.receipts == nil {
		return
	}
	for _, invoiceID := range invoiceIDs {
		s.receipts.GenerateReceipt(ctx, invoiceID)
	}
}

// InvoiceUpdatePayload carries a full replacement view of an invoice
// and its line items. Line items without an id are created, line items
// with an id are updated, and persisted line items absent from the
// payload are deleted.
type InvoiceUpdatePayload struct {
	Invoice   billing.Invoice
	LineItems []billing.InvoiceLineItem
}

// UpdateInvoice reconciles an invoice and its line items against the
// payload. The target id and the payload's invoice id must agree;
// rejecting the mismatch keeps a stale client from writing one
// invoice's lines onto another.
func (s *BookkeepingService) UpdateInvoice(
	ctx context.Context,
	invoiceID uuid.UUID,
	payload InvoiceUpdatePayload,
	auth AuthContext,
) (*billing.Invoice, error) {
	if payload.Invoice.ID != invoiceID {
		return nil, ErrInvoiceIDMismatch
	}
	var updated *billing.Invoice
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		invoice, err := repos.Invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice.OrganizationID != auth.OrganizationID {
			return shared.ErrForbidden
		}
		if invoice.Status.IsTerminal() && payload.Invoice.Status != invoice.Status {
			return shared.ErrTerminalState
		}

		if payload.Invoice.Status != "" {
			invoice.Status = payload.Invoice.Status
		}
		if payload.Invoice.InvoiceNumber != "" {
			invoice.InvoiceNumber = payload.Invoice.InvoiceNumber
		}
		if err := repos.Invoices.SaveWithLock(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		if err := s.reconcileLineItems(ctx, repos, invoice, payload.LineItems); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// reconcileLineItems diffs the payload's line items against the
// persisted set: insert the new, update the existing, delete the
// absent.
func (s *BookkeepingService) reconcileLineItems(
	ctx context.Context,
	repos *billing.Repositories,
	invoice *billing.Invoice,
	items []billing.InvoiceLineItem,
) error {
	existing, err := repos.Invoices.FindLineItems(ctx, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoice line items: %w", err)
	}
	existingByID := make(map[uuid.UUID]bool, len(existing))
	for i := range existing {
		existingByID[existing[i].ID] = true
	}

	var inserts []billing.InvoiceLineItem
	kept := make(map[uuid.UUID]bool, len(items))
	for i := range items {
		item := items[i]
		if item.ID != uuid.Nil && existingByID[item.ID] {
			kept[item.ID] = true
			item.InvoiceID = invoice.ID
			if err := repos.Invoices.UpdateLineItem(ctx, &item); err != nil {
				return fmt.Errorf("failed to update invoice line item: %w", err)
			}
			continue
		}
		fresh := billing.NewInvoiceLineItem(invoice.ID, item.Description, item.Quantity, item.Price, invoice.Livemode)
		fresh.PriceID = item.PriceID
		inserts = append(inserts, *fresh)
	}
	if len(inserts) > 0 {
		if err := repos.Invoices.InsertLineItems(ctx, inserts); err != nil {
			return fmt.Errorf("failed to insert invoice line items: %w", err)
		}
	}

	var deletes []uuid.UUID
	for i := range existing {
		if !kept[existing[i].ID] {
			deletes = append(deletes, existing[i].ID)
		}
	}
	if len(deletes) > 0 {
		if err := repos.Invoices.DeleteLineItems(ctx, deletes); err != nil {
			return fmt.Errorf("failed to delete invoice line items: %w", err)
		}
	}
	return nil
}

// flushOutcome appends buffered side effects to the transactional
// outbox so they commit or roll back with the business mutation.
func flushOutcome(ctx context.Context, repos *billing.Repositories, events []shared.DomainEvent, commands []shared.LedgerCommand) error {
	if len(events) > 0 {
		if err := repos.Events.AppendEvents(ctx, events); err != nil {
			return fmt.Errorf("failed to append events: %w", err)
		}
	}
	if len(commands) > 0 {
		if err := repos.Events.AppendLedgerCommands(ctx, commands); err != nil {
			return fmt.Errorf("failed to append ledger commands: %w", err)
		}
	}
	return nil
}
