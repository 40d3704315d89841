package billing

import (
	"context"
	"testing"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUsageTest(t *testing.T) (*gorm.DB, *UsageService, *billing.PricingModel, AuthContext) {
	t.Helper()
	db := setupBookkeepingDB(t)
	org := seedOrganization(t, db)
	repos := persistence.NewRepositories(db)

	pricingModel := billing.NewPricingModel(org.ID, "Standard", true, true)
	require.NoError(t, repos.PricingModels.SafeInsert(context.Background(), pricingModel))

	txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})
	service := NewUsageService(txManager, nil)
	return db, service, pricingModel, AuthContext{OrganizationID: org.ID, Livemode: true}
}

func TestCreateUsageMeter(t *testing.T) {
	ctx := context.Background()

	t.Run("meter without a billable price gets a default shadow price", func(t *testing.T) {
		_, service, pricingModel, auth := setupUsageTest(t)

		result, err := service.CreateUsageMeter(ctx, UsageMeterPayload{
			PricingModelID:  pricingModel.ID,
			Name:            "API Calls",
			Slug:            "api_calls",
			AggregationType: billing.UsageMeterAggregationSum,
		}, auth)
		require.NoError(t, err)

		assert.Equal(t, "api_calls", result.Meter.Slug)
		assert.Equal(t, billing.UsageMeterAggregationSum, result.Meter.AggregationType)

		noCharge := result.NoChargePrice
		require.NotNil(t, noCharge)
		assert.Equal(t, "api_calls"+billing.NoChargePriceSlugSuffix, noCharge.Slug)
		assert.Equal(t, billing.PriceTypeUsage, noCharge.Type)
		assert.Equal(t, int64(0), noCharge.UnitPrice)
		assert.True(t, noCharge.IsDefault)
		assert.Nil(t, result.Price)
	})

	t.Run("billable price demotes the shadow price", func(t *testing.T) {
		_, service, pricingModel, auth := setupUsageTest(t)

		result, err := service.CreateUsageMeter(ctx, UsageMeterPayload{
			PricingModelID:  pricingModel.ID,
			Name:            "Compute Seconds",
			Slug:            "compute_seconds",
			AggregationType: billing.UsageMeterAggregationMaximumDuringPeriod,
			Price: &UsagePriceFields{
				UnitPrice:          5,
				UsageEventsPerUnit: 0,
			},
		}, auth)
		require.NoError(t, err)

		require.NotNil(t, result.Price)
		assert.True(t, result.Price.IsDefault)
		assert.False(t, result.NoChargePrice.IsDefault)
		assert.Equal(t, "compute_seconds", result.Price.Slug)
		// Empty price name falls back to the meter name; zero events
		// per unit falls back to one.
		assert.Equal(t, "Compute Seconds", result.Price.Name)
		require.NotNil(t, result.Price.UsageEventsPerUnit)
		assert.Equal(t, int64(1), *result.Price.UsageEventsPerUnit)
	})

	t.Run("duplicate meter slug is rejected", func(t *testing.T) {
		_, service, pricingModel, auth := setupUsageTest(t)
		payload := UsageMeterPayload{
			PricingModelID:  pricingModel.ID,
			Name:            "API Calls",
			Slug:            "api_calls",
			AggregationType: billing.UsageMeterAggregationSum,
		}

		_, err := service.CreateUsageMeter(ctx, payload, auth)
		require.NoError(t, err)

		_, err = service.CreateUsageMeter(ctx, payload, auth)
		assert.ErrorIs(t, err, ErrUsageMeterSlugTaken)
	})

	t.Run("price slug collision rolls the meter back", func(t *testing.T) {
		db, service, pricingModel, auth := setupUsageTest(t)
		repos := persistence.NewRepositories(db)

		existing := &billing.Price{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: auth.OrganizationID,
			PricingModelID: pricingModel.ID,
			Name:           "Taken",
			Slug:           "api_calls",
			Type:           billing.PriceTypeSinglePayment,
			Active:         true,
			UnitPrice:      100,
			Currency:       "USD",
			Livemode:       true,
		}
		require.NoError(t, repos.Prices.Insert(ctx, existing))

		_, err := service.CreateUsageMeter(ctx, UsageMeterPayload{
			PricingModelID:  pricingModel.ID,
			Name:            "API Calls",
			Slug:            "api_calls",
			AggregationType: billing.UsageMeterAggregationSum,
			Price:           &UsagePriceFields{UnitPrice: 5},
		}, auth)
		assert.ErrorIs(t, err, ErrUsagePriceSlugTaken)

		var meterCount int64
		require.NoError(t, db.Model(&models.UsageMeterModel{}).Count(&meterCount).Error)
		assert.Equal(t, int64(0), meterCount)
	})

	t.Run("foreign pricing model is forbidden", func(t *testing.T) {
		_, service, pricingModel, _ := setupUsageTest(t)

		foreign := AuthContext{OrganizationID: uuid.New(), Livemode: true}
		_, err := service.CreateUsageMeter(ctx, UsageMeterPayload{
			PricingModelID:  pricingModel.ID,
			Name:            "API Calls",
			Slug:            "api_calls",
			AggregationType: billing.UsageMeterAggregationSum,
		}, foreign)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}
