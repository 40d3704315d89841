package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCheckoutSessionNotFound is returned when the session does not exist
	ErrCheckoutSessionNotFound = errors.New("Checkout session not found")
	// ErrCheckoutSessionNotOpen rejects edits to terminal sessions
	ErrCheckoutSessionNotOpen = errors.New("Checkout session is not open")
	// ErrPurchaseNotPending rejects attaching a non-pending purchase
	ErrPurchaseNotPending = errors.New("Purchase is not pending")
	// ErrMissingFeeCalculation is returned when purchase bookkeeping
	// runs against a session that never produced a fee calculation
	ErrMissingFeeCalculation = errors.New("Checkout session has no fee calculation")
)

// CheckoutService reconciles processor charge outcomes into checkout
// sessions and the bookkeeping records hanging off them, and applies
// edits to open sessions.
type CheckoutService struct {
	txManager   billing.TransactionManager
	processor   billing.ProcessorClient
	fees        *FeeService
	bookkeeping *BookkeepingService
	logger      *zap.Logger
}

// CheckoutServiceConfig configures a CheckoutService
type CheckoutServiceConfig struct {
	TxManager   billing.TransactionManager
	Processor   billing.ProcessorClient
	Fees        *FeeService
	Bookkeeping *BookkeepingService
	Logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(cfg CheckoutServiceConfig) *CheckoutService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		txManager:   cfg.TxManager,
		processor:   cfg.Processor,
		fees:        cfg.Fees,
		bookkeeping: cfg.Bookkeeping,
		logger:      logger,
	}
}

// CheckoutProcessingResult is what charge reconciliation returns. The
// bookkeeping fields are nil for failed charges and for invoice-type
// sessions.
type CheckoutProcessingResult struct {
	Session  *billing.CheckoutSession
	Customer *billing.Customer
	Purchase *billing.Purchase
	Invoice  *billing.Invoice
	Payment  *billing.Payment
}

// ProcessChargeForCheckoutSession reconciles one processor charge into
// a checkout session. Safe to call repeatedly for the same charge: the
// charge id dedupes the payment and every downstream update converges.
func (s *CheckoutService) ProcessChargeForCheckoutSession(
	ctx context.Context,
	checkoutSessionID uuid.UUID,
	charge *billing.ProcessorCharge,
) (*shared.TransactionOutcome[CheckoutProcessingResult], error) {
	outcome := shared.NewTransactionOutcome(CheckoutProcessingResult{})
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		if err := s.processCharge(ctx, repos, checkoutSessionID, charge, outcome); err != nil {
			return err
		}
		return flushOutcome(ctx, repos, outcome.Events, outcome.LedgerCommands)
	})
	if err != nil {
		return nil, err
	}
	s.bookkeeping.DispatchReceipts(ctx, outcome.ReceiptRequests)
	return outcome, nil
}

func (s *CheckoutService) processCharge(
	ctx context.Context,
	repos *billing.Repositories,
	checkoutSessionID uuid.UUID,
	charge *billing.ProcessorCharge,
	outcome *shared.TransactionOutcome[CheckoutProcessingResult],
) error {
	session, err := repos.CheckoutSessions.FindByID(ctx, checkoutSessionID)
	if errors.Is(err, shared.ErrNotFound) {
		return ErrCheckoutSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load checkout session: %w", err)
	}
	cart, err := session.Cart()
	if err != nil {
		return err
	}
	if invoiceCart, ok := cart.(billing.InvoiceCart); ok {
		return s.processChargeForInvoiceSession(ctx, repos, session, invoiceCart, charge, outcome)
	}

	session.CaptureBillingDetails(charge.BillingName, charge.BillingEmail)
	newStatus := billing.CheckoutSessionStatusFromChargeStatus(charge.Status)
	if session.Status != newStatus || session.IsOpen() {
		session.Status = newStatus
		if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
			return fmt.Errorf("failed to save checkout session: %w", err)
		}
	}
	outcome.Value.Session = session
	outcome.AddEvent(billing.NewCheckoutSessionCompletedEvent(session, charge.ID))

	if newStatus == billing.CheckoutSessionStatusFailed {
		// No bookkeeping for failed charges; the session records the
		// failure and the customer retries with a new session.
		return nil
	}

	customer, purchase, err := s.processPurchaseBookkeeping(ctx, repos, session, cart, charge, outcome)
	if err != nil {
		return err
	}
	outcome.Value.Customer = customer
	outcome.Value.Purchase = purchase

	invoice, err := s.ensurePurchaseInvoice(ctx, repos, session, purchase, customer)
	if err != nil {
		return err
	}
	outcome.Value.Invoice = invoice

	payment, err := s.upsertPaymentFromCharge(ctx, repos, session, charge, customer, invoice, &purchase.ID)
	if err != nil {
		return err
	}
	outcome.Value.Payment = payment
	if payment.Status == billing.PaymentStatusSucceeded {
		outcome.AddLedgerCommand(shared.LedgerCommand{
			Type:           billing.LedgerCommandTypePaymentRecognized,
			OrganizationID: session.OrganizationID.String(),
			Livemode:       session.Livemode,
			Payload: map[string]any{
				"payment_id": payment.ID.String(),
				"invoice_id": invoice.ID.String(),
				"amount":     payment.EffectiveAmount(),
				"currency":   string(payment.Currency),
			},
		})
	}

	updatedPurchase, purchaseEvents, err := s.bookkeeping.UpdatePurchaseStatusFromPayment(ctx, repos, payment)
	if err != nil {
		return err
	}
	if updatedPurchase != nil {
		outcome.Value.Purchase = updatedPurchase
	}
	outcome.AddEvents(purchaseEvents...)

	updatedInvoice, invoiceEvents, becamePaid, err := s.bookkeeping.UpdateInvoiceStatusFromPayment(ctx, repos, payment)
	if err != nil {
		return err
	}
	outcome.Value.Invoice = updatedInvoice
	outcome.AddEvents(invoiceEvents...)
	if becamePaid {
		outcome.AddReceiptRequest(updatedInvoice.ID)
	}

	s.logger.Info("Reconciled charge into checkout session",
		zap.String("checkout_session_id", session.ID.String()),
		zap.String("charge_id", charge.ID),
		zap.String("status", string(session.Status)))
	return nil
}

// processPurchaseBookkeeping resolves or creates the customer and
// purchase for a product or purchase cart. Customer resolution order:
// the purchase's customer, then the session's customer, then a lookup
// by the charge's processor customer id, then a fresh customer from
// the session's captured billing details. A session customer linked to
// a different processor customer than the charge's is a hard error.
func (s *CheckoutService) processPurchaseBookkeeping(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	cart billing.Cart,
	charge *billing.ProcessorCharge,
	outcome *shared.TransactionOutcome[CheckoutProcessingResult],
) (*billing.Customer, *billing.Purchase, error) {
	var (
		customer *billing.Customer
		purchase *billing.Purchase
		priceID  uuid.UUID
		quantity int64 = 1
		err      error
	)

	switch c := cart.(type) {
	case billing.PurchaseCart:
		priceID = c.PriceID
		purchase, err = repos.Purchases.FindByID(ctx, c.PurchaseID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load purchase: %w", err)
		}
		customer, err = repos.Customers.FindByID(ctx, purchase.CustomerID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load purchase customer: %w", err)
		}
	case billing.ProductCart:
		priceID = c.PriceID
		quantity = c.Quantity
		customer, err = s.resolveSessionCustomer(ctx, repos, session, charge, outcome)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Unsupported cart type for purchase bookkeeping")
	}

	if customer.HasProcessorCustomer() && charge.ProcessorCustomerID != "" &&
		*customer.ProcessorCustomerID != charge.ProcessorCustomerID {
		return nil, nil, fmt.Errorf(
			"Attempting to process checkout session %s with processor customer %s but its customer %s is linked to processor customer %s",
			session.ID, charge.ProcessorCustomerID, customer.ID, *customer.ProcessorCustomerID)
	}

	if purchase == nil {
		purchase, err = s.ensureSessionPurchase(ctx, repos, session, customer, priceID, quantity)
		if err != nil {
			return nil, nil, err
		}
	}

	feeCalc, err := repos.FeeCalculations.FindLatestByCheckoutSession(ctx, session.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil, ErrMissingFeeCalculation
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if feeCalc.PurchaseID == nil || *feeCalc.PurchaseID != purchase.ID {
		feeCalc.PurchaseID = &purchase.ID
		if err := repos.FeeCalculations.Update(ctx, feeCalc); err != nil {
			return nil, nil, fmt.Errorf("failed to link fee calculation to purchase: %w", err)
		}
	}

	if feeCalc.DiscountID != nil {
		if err := s.redeemDiscount(ctx, repos, *feeCalc.DiscountID, purchase); err != nil {
			return nil, nil, err
		}
	}
	return customer, purchase, nil
}

// resolveSessionCustomer finds the customer for a product-cart session
// or creates one from the session's captured billing details.
func (s *CheckoutService) resolveSessionCustomer(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	charge *billing.ProcessorCharge,
	outcome *shared.TransactionOutcome[CheckoutProcessingResult],
) (*billing.Customer, error) {
	if session.CustomerID != nil {
		customer, err := repos.Customers.FindByID(ctx, *session.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session customer: %w", err)
		}
		return customer, nil
	}
	if charge.ProcessorCustomerID != "" {
		customer, err := repos.Customers.FindByProcessorCustomerID(ctx, session.OrganizationID, charge.ProcessorCustomerID)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up customer by processor id: %w", err)
		}
	}

	name, email := "", ""
	if session.CustomerName != nil {
		name = *session.CustomerName
	}
	if session.CustomerEmail != nil {
		email = *session.CustomerEmail
	}
	customer := &billing.Customer{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: session.OrganizationID,
		Email:          email,
		Name:           name,
		ExternalID:     "checkout_" + session.ID.String(),
		Livemode:       session.Livemode,
	}
	if charge.ProcessorCustomerID != "" {
		customer.SetProcessorCustomerID(charge.ProcessorCustomerID)
	} else {
		processorID, err := s.processor.CreateCustomer(ctx, email, name, session.Livemode)
		if err != nil {
			return nil, fmt.Errorf("failed to provision processor customer: %w", err)
		}
		customer.SetProcessorCustomerID(processorID)
	}
	if err := repos.Customers.Insert(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}
	outcome.AddEvent(billing.NewCustomerCreatedEvent(customer))

	session.CustomerID = &customer.ID
	if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to link customer to session: %w", err)
	}
	return customer, nil
}

// ensureSessionPurchase returns the session's purchase, creating and
// linking one on first reconciliation. A session owns at most one
// purchase.
func (s *CheckoutService) ensureSessionPurchase(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	customer *billing.Customer,
	priceID uuid.UUID,
	quantity int64,
) (*billing.Purchase, error) {
	if session.PurchaseID != nil {
		purchase, err := repos.Purchases.FindByID(ctx, *session.PurchaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session purchase: %w", err)
		}
		return purchase, nil
	}
	price, err := repos.Prices.FindByID(ctx, priceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price: %w", err)
	}
	purchase := billing.NewPurchase(session.OrganizationID, customer.ID, priceID, price.Name, session.Livemode)
	purchase.Status = billing.PurchaseStatusPending
	firstInvoiceValue := price.UnitPrice * quantity
	purchase.FirstInvoiceValue = &firstInvoiceValue
	if err := repos.Purchases.Insert(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to insert purchase: %w", err)
	}

	session.PurchaseID = &purchase.ID
	if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to link purchase to session: %w", err)
	}
	return purchase, nil
}

// ensurePurchaseInvoice returns the purchase's invoice, creating it
// with line items derived from the session's fee calculation amounts
// on first reconciliation.
func (s *CheckoutService) ensurePurchaseInvoice(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	purchase *billing.Purchase,
	customer *billing.Customer,
) (*billing.Invoice, error) {
	invoice, err := repos.Invoices.FindByPurchaseID(ctx, purchase.ID)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up purchase invoice: %w", err)
	}

	feeCalc, err := repos.FeeCalculations.FindLatestByCheckoutSession(ctx, session.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, ErrMissingFeeCalculation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}

	invoice = billing.NewInvoice(session.OrganizationID, customer.ID, newInvoiceNumber(), feeCalc.Currency, session.Livemode)
	invoice.PurchaseID = &purchase.ID
	invoice.Status = billing.InvoiceStatusOpen
	if err := repos.Invoices.Insert(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	lineItem := billing.NewInvoiceLineItem(
		invoice.ID, purchase.Name, 1, billing.CalculateTotalDueAmount(feeCalc), session.Livemode)
	lineItem.PriceID = session.PriceID
	if err := repos.Invoices.InsertLineItems(ctx, []billing.InvoiceLineItem{*lineItem}); err != nil {
		return nil, fmt.Errorf("failed to insert invoice line item: %w", err)
	}
	return invoice, nil
}

// upsertPaymentFromCharge records the charge as a payment, keyed by
// the processor charge id. A replayed charge updates the existing
// payment's outcome fields instead of inserting a duplicate.
func (s *CheckoutService) upsertPaymentFromCharge(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	charge *billing.ProcessorCharge,
	customer *billing.Customer,
	invoice *billing.Invoice,
	purchaseID *uuid.UUID,
) (*billing.Payment, error) {
	status := billing.PaymentStatusFromChargeStatus(charge.Status)
	if charge.Refunded {
		status = billing.PaymentStatusRefunded
	}

	payment, err := repos.Payments.FindByProcessorChargeID(ctx, charge.ID)
	switch {
	case err == nil:
		payment.Status = status
		payment.RefundedAmount = charge.RefundedAmount
		payment.Refunded = charge.Refunded
		if err := repos.Payments.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
		return payment, nil
	case errors.Is(err, shared.ErrNotFound):
		// First sighting of this charge.
	default:
		return nil, fmt.Errorf("failed to look up payment by charge id: %w", err)
	}

	method := charge.PaymentMethod
	if method == "" {
		method = billing.PaymentMethodCard
	}
	payment = &billing.Payment{
		BaseEntity:        shared.NewBaseEntity(),
		OrganizationID:    session.OrganizationID,
		CustomerID:        customer.ID,
		InvoiceID:         invoice.ID,
		PurchaseID:        purchaseID,
		Amount:            charge.Amount,
		RefundedAmount:    charge.RefundedAmount,
		Refunded:          charge.Refunded,
		Currency:          charge.Currency,
		Status:            status,
		ChargeDate:        charge.ChargeDate,
		ProcessorChargeID: charge.ID,
		PaymentMethod:     method,
		Livemode:          session.Livemode,
	}
	if err := repos.Payments.Insert(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return payment, nil
}

// processChargeForInvoiceSession reconciles a charge against an
// invoice-type session. No purchase, product or subscription
// bookkeeping runs here; the session exists only to settle the
// invoice. A pending charge parks the invoice in
// awaiting_payment_confirmation.
func (s *CheckoutService) processChargeForInvoiceSession(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	cart billing.InvoiceCart,
	charge *billing.ProcessorCharge,
	outcome *shared.TransactionOutcome[CheckoutProcessingResult],
) error {
	session.CaptureBillingDetails(charge.BillingName, charge.BillingEmail)
	newStatus := billing.CheckoutSessionStatusFromChargeStatus(charge.Status)
	if session.Status != newStatus || session.IsOpen() {
		session.Status = newStatus
		if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
			return fmt.Errorf("failed to save checkout session: %w", err)
		}
	}
	outcome.Value.Session = session
	outcome.AddEvent(billing.NewCheckoutSessionCompletedEvent(session, charge.ID))

	invoice, err := repos.Invoices.FindByID(ctx, cart.InvoiceID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}
	customer, err := repos.Customers.FindByID(ctx, invoice.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load invoice customer: %w", err)
	}
	outcome.Value.Customer = customer

	payment, err := s.upsertPaymentFromCharge(ctx, repos, session, charge, customer, invoice, nil)
	if err != nil {
		return err
	}
	outcome.Value.Payment = payment
	outcome.Value.Invoice = invoice

	if invoice.Status.IsTerminal() {
		return nil
	}

	switch charge.Status {
	case billing.ChargeStatusSucceeded:
		updatedInvoice, invoiceEvents, becamePaid, err := s.bookkeeping.UpdateInvoiceStatusFromPayment(ctx, repos, payment)
		if err != nil {
			return err
		}
		outcome.Value.Invoice = updatedInvoice
		outcome.AddEvents(invoiceEvents...)
		if becamePaid {
			outcome.AddReceiptRequest(updatedInvoice.ID)
		}
		if payment.Status == billing.PaymentStatusSucceeded {
			outcome.AddLedgerCommand(shared.LedgerCommand{
				Type:           billing.LedgerCommandTypePaymentRecognized,
				OrganizationID: session.OrganizationID.String(),
				Livemode:       session.Livemode,
				Payload: map[string]any{
					"payment_id": payment.ID.String(),
					"invoice_id": invoice.ID.String(),
					"amount":     payment.EffectiveAmount(),
					"currency":   string(payment.Currency),
				},
			})
		}
	case billing.ChargeStatusPending:
		invoice.Status = billing.InvoiceStatusAwaitingPaymentConfirmation
		if err := repos.Invoices.SaveWithLock(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		outcome.Value.Invoice = invoice
	}
	return nil
}

// ProcessSetupIntentForCheckoutSession reconciles a setup intent
// outcome into a session. Setup intents confirm a payment method with
// nothing charged today, so no payment or invoice is recorded; the
// purchase bookkeeping still runs so trials end up with a customer and
// purchase on file.
func (s *CheckoutService) ProcessSetupIntentForCheckoutSession(
	ctx context.Context,
	checkoutSessionID uuid.UUID,
	intent *billing.ProcessorSetupIntent,
) (*shared.TransactionOutcome[CheckoutProcessingResult], error) {
	outcome := shared.NewTransactionOutcome(CheckoutProcessingResult{})
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		session, err := repos.CheckoutSessions.FindByID(ctx, checkoutSessionID)
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCheckoutSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load checkout session: %w", err)
		}
		cart, err := session.Cart()
		if err != nil {
			return err
		}
		if _, ok := cart.(billing.InvoiceCart); ok {
			return shared.NewDomainError("INVALID_CHECKOUT_SESSION", "Setup intents do not apply to invoice checkout sessions")
		}

		newStatus := billing.CheckoutSessionStatusFailed
		if intent.Succeeded {
			newStatus = billing.CheckoutSessionStatusSucceeded
		}
		session.Status = newStatus
		if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
			return fmt.Errorf("failed to save checkout session: %w", err)
		}
		outcome.Value.Session = session
		outcome.AddEvent(billing.NewCheckoutSessionCompletedEvent(session, intent.ID))

		if !intent.Succeeded {
			return flushOutcome(ctx, repos, outcome.Events, outcome.LedgerCommands)
		}

		pseudoCharge := &billing.ProcessorCharge{
			ProcessorCustomerID: intent.ProcessorCustomerID,
			Livemode:            intent.Livemode,
		}
		customer, purchase, err := s.processPurchaseBookkeeping(ctx, repos, session, cart, pseudoCharge, outcome)
		if err != nil {
			return err
		}
		outcome.Value.Customer = customer
		outcome.Value.Purchase = purchase
		return flushOutcome(ctx, repos, outcome.Events, outcome.LedgerCommands)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// EditCheckoutSessionParams is the input to EditCheckoutSession
type EditCheckoutSessionParams struct {
	CheckoutSessionID uuid.UUID
	Edit              billing.CheckoutSessionEdit
	PurchaseID        *uuid.UUID
}

// EditCheckoutSessionResult is what session edits return. FeeCalculation
// is nil until the session carries enough fields to price.
type EditCheckoutSessionResult struct {
	Session        *billing.CheckoutSession
	FeeCalculation *billing.FeeCalculation
}

// EditCheckoutSession merges a field-level patch into an open session,
// optionally attaching a pending purchase, then refreshes the
// session's fee calculation when the priced inputs changed. When the
// session carries a payment intent and something is due, the intent's
// amount and application fee are pushed to the processor.
func (s *CheckoutService) EditCheckoutSession(
	ctx context.Context,
	params EditCheckoutSessionParams,
) (*EditCheckoutSessionResult, error) {
	result := &EditCheckoutSessionResult{}
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		session, err := repos.CheckoutSessions.FindByID(ctx, params.CheckoutSessionID)
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCheckoutSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load checkout session: %w", err)
		}
		if !session.IsOpen() {
			return ErrCheckoutSessionNotOpen
		}

		if params.PurchaseID != nil {
			purchase, err := repos.Purchases.FindByID(ctx, *params.PurchaseID)
			if err != nil {
				return fmt.Errorf("failed to load purchase: %w", err)
			}
			if !purchase.IsPending() {
				return ErrPurchaseNotPending
			}
			session.PurchaseID = params.PurchaseID
		}

		session.ApplyEdit(params.Edit)
		if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
			return fmt.Errorf("failed to save checkout session: %w", err)
		}
		result.Session = session

		feeCalc, err := s.refreshSessionFees(ctx, repos, session)
		if err != nil {
			return err
		}
		result.FeeCalculation = feeCalc

		return s.pushPaymentIntentAmounts(ctx, session, feeCalc)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EditCheckoutSessionBillingAddress sets the billing address on an
// open session. For merchant-of-record organizations a jurisdiction
// change recomputes fees (and with them tax); platform organizations
// recompute only when a non-tax fee input changed, since their fee
// components do not depend on tax jurisdiction beyond the
// international fee country.
func (s *CheckoutService) EditCheckoutSessionBillingAddress(
	ctx context.Context,
	checkoutSessionID uuid.UUID,
	address valueobject.BillingAddress,
) (*EditCheckoutSessionResult, error) {
	result := &EditCheckoutSessionResult{}
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		session, err := repos.CheckoutSessions.FindByID(ctx, checkoutSessionID)
		if errors.Is(err, shared.ErrNotFound) {
			return ErrCheckoutSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load checkout session: %w", err)
		}
		if !session.IsOpen() {
			return ErrCheckoutSessionNotOpen
		}

		session.BillingAddress = &address
		if err := repos.CheckoutSessions.SaveWithLock(ctx, session); err != nil {
			return fmt.Errorf("failed to save checkout session: %w", err)
		}
		result.Session = session

		feeCalc, err := s.refreshSessionFees(ctx, repos, session)
		if err != nil {
			return err
		}
		result.FeeCalculation = feeCalc

		return s.pushPaymentIntentAmounts(ctx, session, feeCalc)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// refreshSessionFees returns the authoritative fee calculation for the
// session: nil when the session is not fee-ready, the latest existing
// calculation when no priced input changed, and a freshly built one
// otherwise. Product and purchase sessions price from the session's
// price; invoice sessions price from the invoice's line items.
func (s *CheckoutService) refreshSessionFees(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
) (*billing.FeeCalculation, error) {
	if !session.FeeReady() {
		return nil, nil
	}

	latest, err := repos.FeeCalculations.FindLatestByCheckoutSession(ctx, session.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load fee calculation: %w", err)
	}
	if latest != nil &&
		!latest.FeeInputsChanged(session.PriceID, *session.BillingAddress, session.DiscountID, *session.PaymentMethodType) {
		return latest, nil
	}

	org, err := repos.Organizations.FindByID(ctx, session.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	cart, err := session.Cart()
	if err != nil {
		return nil, err
	}
	if invoiceCart, ok := cart.(billing.InvoiceCart); ok {
		return s.createInvoiceSessionFees(ctx, repos, session, org, invoiceCart)
	}

	price, err := repos.Prices.FindByID(ctx, *session.PriceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load price: %w", err)
	}
	var purchase *billing.Purchase
	if session.PurchaseID != nil {
		purchase, err = repos.Purchases.FindByID(ctx, *session.PurchaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load purchase: %w", err)
		}
	}
	var discount *billing.Discount
	if session.DiscountID != nil {
		discount, err = repos.Discounts.FindByID(ctx, *session.DiscountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load discount: %w", err)
		}
	}

	return s.fees.CreateCheckoutFeeCalculation(ctx, repos, CheckoutFeeCalculationParams{
		CheckoutSessionID: session.ID,
		Organization:      org,
		Price:             price,
		Quantity:          session.Quantity,
		Purchase:          purchase,
		Discount:          discount,
		BillingAddress:    *session.BillingAddress,
		PaymentMethodType: *session.PaymentMethodType,
		Livemode:          session.Livemode,
	})
}

// createInvoiceSessionFees prices an invoice-type session from the
// invoice's line items. Invoice sessions carry no price or discount;
// the amount owed is already fixed on the invoice.
func (s *CheckoutService) createInvoiceSessionFees(
	ctx context.Context,
	repos *billing.Repositories,
	session *billing.CheckoutSession,
	org *billing.Organization,
	cart billing.InvoiceCart,
) (*billing.FeeCalculation, error) {
	invoice, err := repos.Invoices.FindByID(ctx, cart.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	lineItems, err := repos.Invoices.FindLineItems(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice line items: %w", err)
	}
	return s.fees.CreateInvoiceFeeCalculation(ctx, repos, InvoiceFeeCalculationParams{
		CheckoutSessionID: session.ID,
		Organization:      org,
		Invoice:           invoice,
		LineItems:         lineItems,
		BillingAddress:    *session.BillingAddress,
		PaymentMethodType: *session.PaymentMethodType,
		Livemode:          session.Livemode,
	})
}

// pushPaymentIntentAmounts updates the processor payment intent with
// the current total due and total fee. Skipped when nothing is due;
// the processor rejects zero-amount intents.
func (s *CheckoutService) pushPaymentIntentAmounts(
	ctx context.Context,
	session *billing.CheckoutSession,
	feeCalc *billing.FeeCalculation,
) error {
	if session.PaymentIntentID == nil || feeCalc == nil {
		return nil
	}
	totalDue := billing.CalculateTotalDueAmount(feeCalc)
	if totalDue <= 0 {
		return nil
	}
	totalFee, err := billing.CalculateTotalFeeAmount(feeCalc)
	if err != nil {
		return err
	}
	if err := s.processor.UpdatePaymentIntent(ctx, *session.PaymentIntentID, totalDue, totalFee, session.Livemode); err != nil {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	return nil
}

// redeemDiscount snapshots the discount against the purchase. The
// upsert keeps reconciliation replays from double-redeeming.
func (s *CheckoutService) redeemDiscount(
	ctx context.Context,
	repos *billing.Repositories,
	discountID uuid.UUID,
	purchase *billing.Purchase,
) error {
	discount, err := repos.Discounts.FindByID(ctx, discountID)
	if err != nil {
		return fmt.Errorf("failed to load discount: %w", err)
	}
	redemption := billing.NewDiscountRedemption(discount, purchase.ID, purchase.Livemode)
	if err := repos.Discounts.UpsertRedemptionForPurchase(ctx, redemption); err != nil {
		return fmt.Errorf("failed to upsert discount redemption: %w", err)
	}
	return nil
}

// newInvoiceNumber generates a short human-readable invoice number
func newInvoiceNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "INV-" + strings.ToUpper(raw[:12])
}
