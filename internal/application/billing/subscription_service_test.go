package billing

import (
	"context"
	"testing"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/infrastructure/persistence"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()

	type subscriptionFixture struct {
		db        *gorm.DB
		txManager *persistence.GormTransactionManager
		repos     *billing.Repositories
		org       *billing.Organization
		customer  *billing.Customer
	}

	setup := func(t *testing.T) *subscriptionFixture {
		t.Helper()
		db := setupBookkeepingDB(t)
		org := seedOrganization(t, db)
		repos := persistence.NewRepositories(db)

		customer := &billing.Customer{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: org.ID,
			Email:          "subscriber@example.com",
			Name:           "Subscriber",
			ExternalID:     "ext_sub",
			Livemode:       true,
		}
		require.NoError(t, repos.Customers.Insert(ctx, customer))

		return &subscriptionFixture{
			db:        db,
			txManager: persistence.NewGormTransactionManager(&persistence.Database{DB: db}),
			repos:     repos,
			org:       org,
			customer:  customer,
		}
	}

	create := func(t *testing.T, txManager *persistence.GormTransactionManager, input billing.CreateSubscriptionInput) *billing.SubscriptionCreationResult {
		t.Helper()
		service := NewSubscriptionService(nil)
		var result *billing.SubscriptionCreationResult
		err := txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
			var err error
			result, err = service.CreateSubscription(ctx, repos, input)
			return err
		})
		require.NoError(t, err)
		return result
	}

	t.Run("single payment plan does not renew", func(t *testing.T) {
		f := setup(t)
		price := &billing.Price{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: f.org.ID,
			PricingModelID: uuid.New(),
			Name:           "Lifetime",
			Slug:           "lifetime",
			Type:           billing.PriceTypeSinglePayment,
			Active:         true,
			UnitPrice:      4200,
			Currency:       "USD",
			Livemode:       true,
		}
		require.NoError(t, f.repos.Prices.Insert(ctx, price))

		result := create(t, f.txManager, billing.CreateSubscriptionInput{
			Organization: f.org,
			Customer:     f.customer,
			Price:        price,
			Name:         "Lifetime Deal",
			Livemode:     true,
		})

		sub := result.Subscription
		assert.False(t, sub.Renews)
		assert.Equal(t, billing.SubscriptionStatusActive, sub.Status)
		assert.Nil(t, sub.IntervalUnit)
		assert.Nil(t, sub.IntervalCount)
		assert.Nil(t, sub.CurrentBillingPeriodStart)
		assert.Nil(t, sub.CurrentBillingPeriodEnd)

		require.Len(t, result.SubscriptionItems, 1)
		assert.Equal(t, int64(4200), result.SubscriptionItems[0].UnitPrice)

		// Non-renewing subscriptions get no billing period rows.
		var periodCount int64
		require.NoError(t, f.db.Model(&models.BillingPeriodModel{}).Count(&periodCount).Error)
		assert.Equal(t, int64(0), periodCount)
	})

	t.Run("recurring plan opens its first billing period", func(t *testing.T) {
		f := setup(t)
		unit := billing.IntervalUnitMonth
		count := 1
		price := &billing.Price{
			BaseEntity:     shared.NewBaseEntity(),
			OrganizationID: f.org.ID,
			PricingModelID: uuid.New(),
			Name:           "Pro Monthly",
			Slug:           "pro-monthly",
			Type:           billing.PriceTypeSubscription,
			Active:         true,
			UnitPrice:      1200,
			Currency:       "USD",
			IntervalUnit:   &unit,
			IntervalCount:  &count,
			Livemode:       true,
		}
		require.NoError(t, f.repos.Prices.Insert(ctx, price))

		start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
		result := create(t, f.txManager, billing.CreateSubscriptionInput{
			Organization: f.org,
			Customer:     f.customer,
			Price:        price,
			Name:         "Pro Subscription",
			StartDate:    start,
			Livemode:     true,
		})

		sub := result.Subscription
		assert.True(t, sub.Renews)
		require.NotNil(t, sub.CurrentBillingPeriodStart)
		require.NotNil(t, sub.CurrentBillingPeriodEnd)
		assert.True(t, sub.CurrentBillingPeriodStart.Equal(start))
		assert.True(t, sub.CurrentBillingPeriodEnd.Equal(start.AddDate(0, 1, 0)))

		var periodCount, itemCount int64
		require.NoError(t, f.db.Model(&models.BillingPeriodModel{}).Count(&periodCount).Error)
		require.NoError(t, f.db.Model(&models.BillingPeriodItemModel{}).Count(&itemCount).Error)
		assert.Equal(t, int64(1), periodCount)
		assert.Equal(t, int64(1), itemCount)
	})
}
