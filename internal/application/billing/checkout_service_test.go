package billing

import (
	"context"
	"testing"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db        *gorm.DB
	repos     *billing.Repositories
	service   *CheckoutService
	processor *MockProcessorClient
	receipts  *recordingReceiptGenerator
	org       *billing.Organization
	price     *billing.Price
	session   *billing.CheckoutSession
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := setupBookkeepingDB(t)
	org := seedOrganization(t, db)
	repos := persistence.NewRepositories(db)
	ctx := context.Background()

	pricingModel := billing.NewPricingModel(org.ID, "Standard", true, true)
	require.NoError(t, repos.PricingModels.SafeInsert(ctx, pricingModel))

	product := billing.NewProduct(pricingModel.ID, org.ID, "Pro", "pro", false, true)
	require.NoError(t, repos.Products.Insert(ctx, product))

	price := &billing.Price{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: org.ID,
		PricingModelID: pricingModel.ID,
		ProductID:      &product.ID,
		Name:           "Pro",
		Slug:           "pro",
		Type:           billing.PriceTypeSinglePayment,
		Active:         true,
		UnitPrice:      5000,
		Currency:       "USD",
		Livemode:       true,
	}
	require.NoError(t, repos.Prices.Insert(ctx, price))

	name := "Buyer"
	email := "buyer@example.com"
	session := &billing.CheckoutSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    org.ID,
		Type:              billing.CheckoutSessionTypeProduct,
		Status:            billing.CheckoutSessionStatusOpen,
		PriceID:           &price.ID,
		Quantity:          1,
		CustomerName:      &name,
		CustomerEmail:     &email,
		Livemode:          true,
	}
	require.NoError(t, repos.CheckoutSessions.Insert(ctx, session))

	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)
	feeCalc := &billing.FeeCalculation{
		BaseEntity:            shared.NewBaseEntity(),
		OrganizationID:        org.ID,
		Type:                  billing.FeeCalculationTypeCheckoutSessionPayment,
		CheckoutSessionID:     &session.ID,
		PriceID:               &price.ID,
		Currency:              "USD",
		BaseAmount:            5000,
		PlatformFeePercentage: decimal.NewFromFloat(0.65),
		PaymentMethodType:     billing.PaymentMethodCard,
		BillingAddress:        address,
		Livemode:              true,
	}
	require.NoError(t, repos.FeeCalculations.Insert(ctx, feeCalc))

	processor := new(MockProcessorClient)
	receipts := &recordingReceiptGenerator{}
	txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
	bookkeeping := NewBookkeepingService(BookkeepingServiceConfig{
		TxManager:   txManager,
		Processor:   processor,
		Provisioner: NewSubscriptionService(nil),
		Receipts:    receipts,
	})
	service := NewCheckoutService(CheckoutServiceConfig{
		TxManager:   txManager,
		Processor:   processor,
		Fees:        NewFeeService(processor, nil),
		Bookkeeping: bookkeeping,
	})

	return &checkoutFixture{
		db:        db,
		repos:     repos,
		service:   service,
		processor: processor,
		receipts:  receipts,
		org:       org,
		price:     price,
		session:   session,
	}
}

func succeededCharge(id string) *billing.ProcessorCharge {
	return &billing.ProcessorCharge{
		ID:                  id,
		Status:              billing.ChargeStatusSucceeded,
		Amount:              5000,
		Currency:            "USD",
		ProcessorCustomerID: "cus_42",
		PaymentMethod:       billing.PaymentMethodCard,
		BillingName:         "Buyer",
		BillingEmail:        "buyer@example.com",
		ChargeDate:          time.Now().UTC(),
		Livemode:            true,
	}
}

func TestProcessChargeForCheckoutSession(t *testing.T) {
	ctx := context.Background()

	t.Run("successful charge settles the full chain", func(t *testing.T) {
		f := newCheckoutFixture(t)

		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, succeededCharge("ch_ok"))
		require.NoError(t, err)

		result := outcome.Value
		assert.Equal(t, billing.CheckoutSessionStatusSucceeded, result.Session.Status)

		require.NotNil(t, result.Customer)
		require.NotNil(t, result.Customer.ProcessorCustomerID)
		assert.Equal(t, "cus_42", *result.Customer.ProcessorCustomerID)

		require.NotNil(t, result.Purchase)
		assert.Equal(t, billing.PurchaseStatusPaid, result.Purchase.Status)

		require.NotNil(t, result.Invoice)
		assert.True(t, result.Invoice.IsPaid())

		require.NotNil(t, result.Payment)
		assert.Equal(t, billing.PaymentStatusSucceeded, result.Payment.Status)
		assert.Equal(t, "ch_ok", result.Payment.ProcessorChargeID)

		var commandCount int64
		require.NoError(t, f.db.Model(&models.LedgerCommandModel{}).Count(&commandCount).Error)
		assert.Equal(t, int64(1), commandCount)

		// Receipt goes out once, after the commit.
		require.Len(t, f.receipts.invoiceIDs, 1)
		assert.Equal(t, result.Invoice.ID, f.receipts.invoiceIDs[0])
	})

	t.Run("replayed charge converges without duplicates", func(t *testing.T) {
		f := newCheckoutFixture(t)
		charge := succeededCharge("ch_replay")

		_, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, charge)
		require.NoError(t, err)
		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, charge)
		require.NoError(t, err)

		assert.Equal(t, billing.PurchaseStatusPaid, outcome.Value.Purchase.Status)
		assert.True(t, outcome.Value.Invoice.IsPaid())

		var paymentCount int64
		require.NoError(t, f.db.Model(&models.PaymentModel{}).Count(&paymentCount).Error)
		assert.Equal(t, int64(1), paymentCount)

		var customerCount int64
		require.NoError(t, f.db.Model(&models.CustomerModel{}).Count(&customerCount).Error)
		assert.Equal(t, int64(1), customerCount)

		// The replay found the invoice already paid, so only the first
		// run produced a receipt.
		assert.Len(t, f.receipts.invoiceIDs, 1)
	})

	t.Run("failed charge records the failure and stops", func(t *testing.T) {
		f := newCheckoutFixture(t)
		charge := succeededCharge("ch_fail")
		charge.Status = billing.ChargeStatusFailed

		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, charge)
		require.NoError(t, err)

		assert.Equal(t, billing.CheckoutSessionStatusFailed, outcome.Value.Session.Status)
		assert.Nil(t, outcome.Value.Purchase)
		assert.Nil(t, outcome.Value.Payment)

		var paymentCount int64
		require.NoError(t, f.db.Model(&models.PaymentModel{}).Count(&paymentCount).Error)
		assert.Equal(t, int64(0), paymentCount)
	})

	t.Run("unknown session id", func(t *testing.T) {
		f := newCheckoutFixture(t)
		_, err := f.service.ProcessChargeForCheckoutSession(ctx, uuid.New(), succeededCharge("ch_lost"))
		assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
	})

	t.Run("missing fee calculation aborts bookkeeping", func(t *testing.T) {
		f := newCheckoutFixture(t)
		require.NoError(t, f.db.Where("1 = 1").Delete(&models.FeeCalculationModel{}).Error)

		_, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, succeededCharge("ch_nofee"))
		assert.ErrorIs(t, err, ErrMissingFeeCalculation)
	})

	t.Run("charge without a processor customer provisions one", func(t *testing.T) {
		f := newCheckoutFixture(t)
		charge := succeededCharge("ch_anon")
		charge.ProcessorCustomerID = ""

		f.processor.On("CreateCustomer", mock.Anything, "buyer@example.com", "Buyer", true).
			Return("cus_fresh", nil)

		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, f.session.ID, charge)
		require.NoError(t, err)
		require.NotNil(t, outcome.Value.Customer.ProcessorCustomerID)
		assert.Equal(t, "cus_fresh", *outcome.Value.Customer.ProcessorCustomerID)
		f.processor.AssertExpectations(t)
	})
}

func TestProcessChargeForInvoiceSession(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	customerID := uuid.New()
	cusID := "cus_invoice"
	customer := &billing.Customer{
		BaseEntity:          shared.NewBaseEntity(),
		OrganizationID:      f.org.ID,
		Email:               "payer@example.com",
		Name:                "Payer",
		ExternalID:          "ext_invoice",
		ProcessorCustomerID: &cusID,
		Livemode:            true,
	}
	customer.ID = customerID
	require.NoError(t, f.repos.Customers.Insert(ctx, customer))

	invoice := billing.NewInvoice(f.org.ID, customerID, "INV-5001", "USD", true)
	invoice.Status = billing.InvoiceStatusOpen
	require.NoError(t, f.repos.Invoices.Insert(ctx, invoice))
	item := billing.NewInvoiceLineItem(invoice.ID, "Consulting", 1, 5000, true)
	require.NoError(t, f.repos.Invoices.InsertLineItems(ctx, []billing.InvoiceLineItem{*item}))

	session := &billing.CheckoutSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    f.org.ID,
		Type:              billing.CheckoutSessionTypeInvoice,
		Status:            billing.CheckoutSessionStatusOpen,
		InvoiceID:         &invoice.ID,
		CustomerID:        &customerID,
		Quantity:          1,
		Livemode:          true,
	}
	require.NoError(t, f.repos.CheckoutSessions.Insert(ctx, session))

	t.Run("pending charge parks the invoice", func(t *testing.T) {
		charge := succeededCharge("ch_inv_pending")
		charge.Status = billing.ChargeStatusPending

		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, session.ID, charge)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusAwaitingPaymentConfirmation, outcome.Value.Invoice.Status)
		assert.Nil(t, outcome.Value.Purchase)
	})

	t.Run("succeeded charge settles the invoice", func(t *testing.T) {
		outcome, err := f.service.ProcessChargeForCheckoutSession(ctx, session.ID, succeededCharge("ch_inv_paid"))
		require.NoError(t, err)
		assert.True(t, outcome.Value.Invoice.IsPaid())
		assert.Nil(t, outcome.Value.Purchase)
	})
}

func TestEditCheckoutSession(t *testing.T) {
	ctx := context.Background()
	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)
	card := billing.PaymentMethodCard

	t.Run("terminal session rejects edits", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.session.Status = billing.CheckoutSessionStatusSucceeded
		require.NoError(t, f.repos.CheckoutSessions.SaveWithLock(ctx, f.session))

		_, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			Edit:              billing.CheckoutSessionEdit{BillingAddress: &address},
		})
		assert.ErrorIs(t, err, ErrCheckoutSessionNotOpen)
	})

	t.Run("attached purchase must be pending", func(t *testing.T) {
		f := newCheckoutFixture(t)
		purchase := billing.NewPurchase(f.org.ID, uuid.New(), f.price.ID, "Pro", true)
		purchase.Status = billing.PurchaseStatusPaid
		require.NoError(t, f.repos.Purchases.Insert(ctx, purchase))

		_, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			PurchaseID:        &purchase.ID,
		})
		assert.ErrorIs(t, err, ErrPurchaseNotPending)
	})

	t.Run("session without priced inputs yields no calculation", func(t *testing.T) {
		f := newCheckoutFixture(t)
		name := "Renamed Buyer"
		result, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			Edit:              billing.CheckoutSessionEdit{CustomerName: &name},
		})
		require.NoError(t, err)
		assert.Nil(t, result.FeeCalculation)
		f.processor.AssertNotCalled(t, "UpdatePaymentIntent",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unchanged fee inputs reuse the latest calculation", func(t *testing.T) {
		f := newCheckoutFixture(t)
		result, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			Edit: billing.CheckoutSessionEdit{
				BillingAddress:    &address,
				PaymentMethodType: &card,
			},
		})
		require.NoError(t, err)
		require.NotNil(t, result.FeeCalculation)

		var calcCount int64
		require.NoError(t, f.db.Model(&models.FeeCalculationModel{}).Count(&calcCount).Error)
		assert.Equal(t, int64(1), calcCount)
		f.processor.AssertNotCalled(t, "CreateTaxCalculation", mock.Anything, mock.Anything)
	})

	t.Run("jurisdiction change builds a new calculation", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.processor.On("CreateTaxCalculation", mock.Anything, mock.MatchedBy(func(in billing.TaxCalculationInput) bool {
			addr, ok := in.BillingAddress.(valueobject.BillingAddress)
			return ok && in.Amount == 5000 && addr.State == "NY"
		})).Return(&billing.TaxCalculationResult{TaxAmount: 400, CalculationID: "taxcalc_edit"}, nil)

		moved, err := valueobject.NewBillingAddress("2 Broadway", "", "New York", "NY", "10004", "US")
		require.NoError(t, err)
		result, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			Edit: billing.CheckoutSessionEdit{
				BillingAddress:    &moved,
				PaymentMethodType: &card,
			},
		})
		require.NoError(t, err)
		require.NotNil(t, result.FeeCalculation)
		assert.Equal(t, "taxcalc_edit", result.FeeCalculation.TaxCalculationID)
		assert.Equal(t, int64(400), result.FeeCalculation.TaxAmountFixed)

		var calcCount int64
		require.NoError(t, f.db.Model(&models.FeeCalculationModel{}).Count(&calcCount).Error)
		assert.Equal(t, int64(2), calcCount)
		f.processor.AssertExpectations(t)
	})

	t.Run("amounts push to the payment intent", func(t *testing.T) {
		f := newCheckoutFixture(t)
		intentID := "pi_edit"
		f.session.PaymentIntentID = &intentID
		require.NoError(t, f.repos.CheckoutSessions.SaveWithLock(ctx, f.session))

		// Same jurisdiction as the fixture calculation: the latest row
		// is reused and its due amount lands on the intent.
		f.processor.On("UpdatePaymentIntent", mock.Anything, "pi_edit", int64(5000), mock.Anything, true).
			Return(nil)

		result, err := f.service.EditCheckoutSession(ctx, EditCheckoutSessionParams{
			CheckoutSessionID: f.session.ID,
			Edit: billing.CheckoutSessionEdit{
				BillingAddress:    &address,
				PaymentMethodType: &card,
			},
		})
		require.NoError(t, err)
		require.NotNil(t, result.FeeCalculation)
		f.processor.AssertExpectations(t)
	})
}

func TestEditCheckoutSessionBillingAddress(t *testing.T) {
	ctx := context.Background()
	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)

	t.Run("unknown session", func(t *testing.T) {
		f := newCheckoutFixture(t)
		_, err := f.service.EditCheckoutSessionBillingAddress(ctx, uuid.New(), address)
		assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
	})

	t.Run("terminal session rejects the address", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.session.Status = billing.CheckoutSessionStatusFailed
		require.NoError(t, f.repos.CheckoutSessions.SaveWithLock(ctx, f.session))

		_, err := f.service.EditCheckoutSessionBillingAddress(ctx, f.session.ID, address)
		assert.ErrorIs(t, err, ErrCheckoutSessionNotOpen)
	})

	t.Run("invoice session prices from the invoice line items", func(t *testing.T) {
		f := newCheckoutFixture(t)
		customerID := uuid.New()
		invoice := billing.NewInvoice(f.org.ID, customerID, "INV-6001", "USD", true)
		invoice.Status = billing.InvoiceStatusOpen
		require.NoError(t, f.repos.Invoices.Insert(ctx, invoice))
		items := []billing.InvoiceLineItem{
			*billing.NewInvoiceLineItem(invoice.ID, "Consulting", 2, 2500, true),
			*billing.NewInvoiceLineItem(invoice.ID, "Expenses", 1, 1000, true),
		}
		require.NoError(t, f.repos.Invoices.InsertLineItems(ctx, items))

		card := billing.PaymentMethodCard
		intentID := "pi_invoice"
		session := &billing.CheckoutSession{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			OrganizationID:    f.org.ID,
			Type:              billing.CheckoutSessionTypeInvoice,
			Status:            billing.CheckoutSessionStatusOpen,
			InvoiceID:         &invoice.ID,
			CustomerID:        &customerID,
			Quantity:          1,
			PaymentMethodType: &card,
			PaymentIntentID:   &intentID,
			Livemode:          true,
		}
		require.NoError(t, f.repos.CheckoutSessions.Insert(ctx, session))

		f.processor.On("CreateTaxCalculation", mock.Anything, mock.MatchedBy(func(in billing.TaxCalculationInput) bool {
			return in.Amount == 6000 && in.PriceID == nil
		})).Return(&billing.TaxCalculationResult{TaxAmount: 480, CalculationID: "taxcalc_inv"}, nil)
		f.processor.On("UpdatePaymentIntent", mock.Anything, "pi_invoice", int64(6480), mock.Anything, true).
			Return(nil)

		result, err := f.service.EditCheckoutSessionBillingAddress(ctx, session.ID, address)
		require.NoError(t, err)

		fc := result.FeeCalculation
		require.NotNil(t, fc)
		assert.Equal(t, int64(6000), fc.BaseAmount)
		assert.Equal(t, int64(480), fc.TaxAmountFixed)
		assert.Equal(t, "taxcalc_inv", fc.TaxCalculationID)
		assert.Nil(t, fc.PriceID)
		require.NotNil(t, fc.CheckoutSessionID)
		assert.Equal(t, session.ID, *fc.CheckoutSessionID)
		f.processor.AssertExpectations(t)
	})
}
