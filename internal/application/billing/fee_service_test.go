package billing

import (
	"context"
	"testing"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateCheckoutFeeCalculation(t *testing.T) {
	db := setupBookkeepingDB(t)
	org := seedOrganization(t, db)

	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)

	price := &billing.Price{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: org.ID,
		PricingModelID: uuid.New(),
		Name:           "Pro",
		Slug:           "pro",
		Type:           billing.PriceTypeSinglePayment,
		Active:         true,
		UnitPrice:      5000,
		Currency:       "USD",
		Livemode:       true,
	}

	t.Run("merchant of record gets a processor tax calculation", func(t *testing.T) {
		processor := new(MockProcessorClient)
		processor.On("CreateTaxCalculation", mock.Anything, mock.MatchedBy(func(in billing.TaxCalculationInput) bool {
			return in.Amount == 9000 && in.OrganizationID == org.ID
		})).Return(&billing.TaxCalculationResult{TaxAmount: 720, CalculationID: "taxcalc_1"}, nil)

		service := NewFeeService(processor, nil)
		sessionID := uuid.New()
		discount := &billing.Discount{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: org.ID,
			Name:           "Launch promo",
			Code:           "LAUNCH",
			AmountType:     billing.DiscountAmountTypeFixed,
			Amount:         1000,
			Active:         true,
			Livemode:       true,
		}

		var fc *billing.FeeCalculation
		txDo(t, db, func(ctx context.Context, repos *billing.Repositories) error {
			var err error
			fc, err = service.CreateCheckoutFeeCalculation(ctx, repos, CheckoutFeeCalculationParams{
				CheckoutSessionID: sessionID,
				Organization:      org,
				Price:             price,
				Quantity:          2,
				Discount:          discount,
				BillingAddress:    address,
				PaymentMethodType: billing.PaymentMethodCard,
				Livemode:          true,
			})
			return err
		})

		assert.Equal(t, int64(10000), fc.BaseAmount)
		assert.Equal(t, int64(1000), fc.DiscountAmountFixed)
		assert.Equal(t, int64(9000), fc.PretaxTotal)
		assert.Equal(t, int64(720), fc.TaxAmountFixed)
		assert.Equal(t, "taxcalc_1", fc.TaxCalculationID)
		// Card fee on the discount-inclusive amount: 2.9% of 9000 + 30.
		assert.Equal(t, int64(291), fc.PaymentMethodFeeFixed)
		processor.AssertExpectations(t)
	})

	t.Run("zero due skips the tax call", func(t *testing.T) {
		processor := new(MockProcessorClient)
		service := NewFeeService(processor, nil)

		fullDiscount := &billing.Discount{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: org.ID,
			Name:           "Comp",
			Code:           "COMP",
			AmountType:     billing.DiscountAmountTypePercent,
			Amount:         100,
			Active:         true,
			Livemode:       true,
		}

		var fc *billing.FeeCalculation
		txDo(t, db, func(ctx context.Context, repos *billing.Repositories) error {
			var err error
			fc, err = service.CreateCheckoutFeeCalculation(ctx, repos, CheckoutFeeCalculationParams{
				CheckoutSessionID: uuid.New(),
				Organization:      org,
				Price:             price,
				Quantity:          1,
				Discount:          fullDiscount,
				BillingAddress:    address,
				PaymentMethodType: billing.PaymentMethodCard,
				Livemode:          true,
			})
			return err
		})

		assert.Equal(t, int64(0), fc.TaxAmountFixed)
		assert.NotEmpty(t, fc.TaxCalculationID)
		processor.AssertNotCalled(t, "CreateTaxCalculation", mock.Anything, mock.Anything)
	})

	t.Run("purchase locked amount overrides the price", func(t *testing.T) {
		processor := new(MockProcessorClient)
		processor.On("CreateTaxCalculation", mock.Anything, mock.Anything).
			Return(&billing.TaxCalculationResult{TaxAmount: 0, CalculationID: "taxcalc_2"}, nil)
		service := NewFeeService(processor, nil)

		locked := int64(2500)
		purchase := billing.NewPurchase(org.ID, uuid.New(), price.ID, "Pro", true)
		purchase.FirstInvoiceValue = &locked

		var fc *billing.FeeCalculation
		txDo(t, db, func(ctx context.Context, repos *billing.Repositories) error {
			var err error
			fc, err = service.CreateCheckoutFeeCalculation(ctx, repos, CheckoutFeeCalculationParams{
				CheckoutSessionID: uuid.New(),
				Organization:      org,
				Price:             price,
				Quantity:          4,
				Purchase:          purchase,
				BillingAddress:    address,
				PaymentMethodType: billing.PaymentMethodCard,
				Livemode:          true,
			})
			return err
		})

		assert.Equal(t, locked, fc.BaseAmount)
		require.NotNil(t, fc.PurchaseID)
		assert.Equal(t, purchase.ID, *fc.PurchaseID)
	})
}

func TestFinalizeFeeCalculation(t *testing.T) {
	ctx := context.Background()
	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)

	setup := func(t *testing.T, freeTier int64, resolvedVolume int64) (*FeeService, *billing.FeeCalculation, func(fn func(ctx context.Context, repos *billing.Repositories) error)) {
		t.Helper()
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		require.NoError(t, db.Table("organizations").
			Where("id = ?", org.ID).
			Update("monthly_free_tier", freeTier).Error)
		org.MonthlyFreeTier = freeTier

		repos := persistenceRepos(db)
		if resolvedVolume > 0 {
			payment := &billing.Payment{
				BaseEntity:        shared.NewBaseEntity(),
				OrganizationID:    org.ID,
				CustomerID:        uuid.New(),
				InvoiceID:         uuid.New(),
				Amount:            resolvedVolume,
				Currency:          "USD",
				Status:            billing.PaymentStatusSucceeded,
				ChargeDate:        time.Now().UTC(),
				ProcessorChargeID: "ch_volume_" + uuid.NewString(),
				PaymentMethod:     billing.PaymentMethodCard,
				Livemode:          true,
			}
			require.NoError(t, repos.Payments.Insert(ctx, payment))
		}

		fc := &billing.FeeCalculation{
			BaseEntity:            shared.NewBaseEntity(),
			OrganizationID:        org.ID,
			Type:                  billing.FeeCalculationTypeCheckoutSessionPayment,
			Currency:              "USD",
			BaseAmount:            10000,
			PlatformFeePercentage: decimal.NewFromFloat(0.65),
			PaymentMethodType:     billing.PaymentMethodCard,
			BillingAddress:        address,
			Livemode:              true,
		}
		require.NoError(t, repos.FeeCalculations.Insert(ctx, fc))

		run := func(fn func(ctx context.Context, repos *billing.Repositories) error) {
			txDo(t, db, fn)
		}
		return NewFeeService(new(MockProcessorClient), nil), fc, run
	}

	t.Run("exhausted tier charges the configured percentage", func(t *testing.T) {
		service, fc, run := setup(t, 5000, 6000)
		run(func(ctx context.Context, repos *billing.Repositories) error {
			_, err := service.FinalizeFeeCalculation(ctx, repos, fc)
			return err
		})
		assert.True(t, fc.PlatformFeePercentage.Equal(decimal.NewFromFloat(0.65)),
			"got %s", fc.PlatformFeePercentage)
	})

	t.Run("volume inside the tier is fee free", func(t *testing.T) {
		service, fc, run := setup(t, 100000, 0)
		run(func(ctx context.Context, repos *billing.Repositories) error {
			_, err := service.FinalizeFeeCalculation(ctx, repos, fc)
			return err
		})
		assert.True(t, fc.PlatformFeePercentage.IsZero(), "got %s", fc.PlatformFeePercentage)
	})

	t.Run("straddling the boundary prorates the fee", func(t *testing.T) {
		// 6000 resolved, 10000 transaction, 10000 tier: 6000 of the
		// transaction is overage, so the effective fee is 60% of the
		// configured percentage.
		service, fc, run := setup(t, 10000, 6000)
		run(func(ctx context.Context, repos *billing.Repositories) error {
			_, err := service.FinalizeFeeCalculation(ctx, repos, fc)
			return err
		})
		expected := decimal.NewFromFloat(0.65).
			Mul(decimal.NewFromInt(6000)).
			Div(decimal.NewFromInt(10000))
		assert.True(t, fc.PlatformFeePercentage.Equal(expected),
			"got %s want %s", fc.PlatformFeePercentage, expected)
	})
}

// txDo runs fn inside a transaction against the test database.
func txDo(t *testing.T, db *gorm.DB, fn func(ctx context.Context, repos *billing.Repositories) error) {
	t.Helper()
	txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
	require.NoError(t, txManager.Do(context.Background(), fn))
}

func persistenceRepos(db *gorm.DB) *billing.Repositories {
	return persistence.NewRepositories(db)
}
