package billing

import (
	"context"
	"testing"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func utcDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// seedBillingPeriod inserts a monthly subscription with one billing
// period holding a single static item worth unitPrice.
func seedBillingPeriod(t *testing.T, db *gorm.DB, orgID, priceID uuid.UUID, start, end time.Time, unitPrice int64) {
	t.Helper()
	repos := persistence.NewRepositories(db)
	ctx := context.Background()

	unit := billing.IntervalUnitMonth
	count := 1
	sub := &billing.Subscription{
		BaseEntity:             shared.NewBaseEntity(),
		OrganizationID:         orgID,
		CustomerID:             uuid.New(),
		PriceID:                priceID,
		Name:                   "Pro Subscription",
		Status:                 billing.SubscriptionStatusActive,
		Renews:                 true,
		IntervalUnit:           &unit,
		IntervalCount:          &count,
		BillingCycleAnchorDate: start,
		Livemode:               true,
	}
	require.NoError(t, repos.Subscriptions.Insert(ctx, sub))

	period := billing.NewBillingPeriod(sub.ID, start, end, true)
	require.NoError(t, repos.BillingPeriods.Insert(ctx, period))
	require.NoError(t, repos.BillingPeriods.InsertItems(ctx, []billing.BillingPeriodItem{{
		BaseEntity:      shared.NewBaseEntity(),
		BillingPeriodID: period.ID,
		Name:            "Pro Subscription",
		Type:            billing.BillingPeriodItemTypeStatic,
		Quantity:        1,
		UnitPrice:       unitPrice,
		Livemode:        true,
	}}))
}

func TestCalculateMRRByMonth(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unsupported granularity", func(t *testing.T) {
		service := NewRevenueService(nil, nil)
		_, err := service.CalculateMRRByMonth(ctx, uuid.New(), MRRCalculationParams{
			StartDate:   utcDay(2026, time.March, 1),
			EndDate:     utcDay(2026, time.March, 31),
			Granularity: "week",
		})
		assert.ErrorIs(t, err, ErrUnsupportedGranularity)
	})

	t.Run("rejects inverted date ranges", func(t *testing.T) {
		service := NewRevenueService(nil, nil)
		_, err := service.CalculateMRRByMonth(ctx, uuid.New(), MRRCalculationParams{
			StartDate: utcDay(2026, time.April, 1),
			EndDate:   utcDay(2026, time.March, 1),
		})
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("months without periods report zero", func(t *testing.T) {
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
		service := NewRevenueService(txManager, nil)

		buckets, err := service.CalculateMRRByMonth(ctx, org.ID, MRRCalculationParams{
			StartDate: utcDay(2026, time.January, 1),
			EndDate:   utcDay(2026, time.February, 28),
		})
		require.NoError(t, err)
		require.Len(t, buckets, 2)
		assert.True(t, buckets[0].Amount.IsZero())
		assert.True(t, buckets[1].Amount.IsZero())
		assert.Equal(t, utcDay(2026, time.January, 1), buckets[0].Month)
	})

	t.Run("full month period contributes its monthly value", func(t *testing.T) {
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		seedBillingPeriod(t, db, org.ID, uuid.New(),
			utcDay(2026, time.March, 1), utcDay(2026, time.March, 31), 1200)

		txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
		service := NewRevenueService(txManager, nil)

		buckets, err := service.CalculateMRRByMonth(ctx, org.ID, MRRCalculationParams{
			StartDate:   utcDay(2026, time.March, 1),
			EndDate:     utcDay(2026, time.March, 31),
			Granularity: RevenueGranularityMonth,
		})
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.True(t, buckets[0].Amount.Equal(decimal.NewFromInt(1200)),
			"got %s", buckets[0].Amount)
	})

	t.Run("straddling period splits across both months", func(t *testing.T) {
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		// 30-day period: 16 days in March, 14 in April.
		seedBillingPeriod(t, db, org.ID, uuid.New(),
			utcDay(2026, time.March, 16), utcDay(2026, time.April, 14), 1200)

		txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
		service := NewRevenueService(txManager, nil)

		buckets, err := service.CalculateMRRByMonth(ctx, org.ID, MRRCalculationParams{
			StartDate: utcDay(2026, time.March, 1),
			EndDate:   utcDay(2026, time.April, 30),
		})
		require.NoError(t, err)
		require.Len(t, buckets, 2)

		march := decimal.NewFromInt(1200).Mul(decimal.NewFromInt(16)).Div(decimal.NewFromInt(30))
		april := decimal.NewFromInt(1200).Mul(decimal.NewFromInt(14)).Div(decimal.NewFromInt(30))
		assert.True(t, buckets[0].Amount.Equal(march), "march got %s want %s", buckets[0].Amount, march)
		assert.True(t, buckets[1].Amount.Equal(april), "april got %s want %s", buckets[1].Amount, april)
		assert.True(t, buckets[0].Amount.Add(buckets[1].Amount).Equal(decimal.NewFromInt(1200)))
	})

	t.Run("product filter excludes other products", func(t *testing.T) {
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		repos := persistence.NewRepositories(db)

		pricingModel := billing.NewPricingModel(org.ID, "Standard", true, true)
		require.NoError(t, repos.PricingModels.SafeInsert(ctx, pricingModel))
		product := billing.NewProduct(pricingModel.ID, org.ID, "Pro", "pro", false, true)
		require.NoError(t, repos.Products.Insert(ctx, product))
		price := &billing.Price{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: org.ID,
			PricingModelID: pricingModel.ID,
			ProductID:      &product.ID,
			Name:           "Pro Monthly",
			Slug:           "pro-monthly",
			Type:           billing.PriceTypeSubscription,
			Active:         true,
			UnitPrice:      1200,
			Currency:       "USD",
			Livemode:       true,
		}
		require.NoError(t, repos.Prices.Insert(ctx, price))

		seedBillingPeriod(t, db, org.ID, price.ID,
			utcDay(2026, time.March, 1), utcDay(2026, time.March, 31), 1200)

		txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
		service := NewRevenueService(txManager, nil)
		params := MRRCalculationParams{
			StartDate: utcDay(2026, time.March, 1),
			EndDate:   utcDay(2026, time.March, 31),
		}

		productID := product.ID
		params.ProductID = &productID
		buckets, err := service.CalculateMRRByMonth(ctx, org.ID, params)
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.True(t, buckets[0].Amount.Equal(decimal.NewFromInt(1200)))

		other := uuid.New()
		params.ProductID = &other
		buckets, err = service.CalculateMRRByMonth(ctx, org.ID, params)
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.True(t, buckets[0].Amount.IsZero())
	})
}
