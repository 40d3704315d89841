package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	// ErrSubscriptionCustomerRequired is returned when provisioning is
	// attempted without a customer
	ErrSubscriptionCustomerRequired = errors.New("subscription provisioning requires a customer")
	// ErrSubscriptionPriceRequired is returned when provisioning is
	// attempted without a price
	ErrSubscriptionPriceRequired = errors.New("subscription provisioning requires a price")
)

// SubscriptionService provisions subscriptions inside a caller-owned
// transaction. Renewal behavior follows the price: recurring prices
// produce renewing subscriptions with a first billing period,
// single-payment prices produce non-renewing subscriptions with nil
// period bounds and no billing period rows.
type SubscriptionService struct {
	logger *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{logger: logger}
}

var _ billing.SubscriptionProvisioner = (*SubscriptionService)(nil)

// CreateSubscription creates the subscription, its items and, for
// renewing subscriptions, the first billing period with one static
// item per subscription item. The caller commits or rolls back.
func (s *SubscriptionService) CreateSubscription(
	ctx context.Context,
	repos *billing.Repositories,
	input billing.CreateSubscriptionInput,
) (*billing.SubscriptionCreationResult, error) {
	if input.Customer == nil {
		return nil, ErrSubscriptionCustomerRequired
	}
	if input.Price == nil {
		return nil, ErrSubscriptionPriceRequired
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}
	name := input.Name
	if name == "" && input.Product != nil {
		name = input.Product.Name + " Subscription"
	}

	status := billing.SubscriptionStatusActive
	if input.TrialEnd != nil && input.TrialEnd.After(startDate) {
		status = billing.SubscriptionStatusTrialing
	}

	sub := &billing.Subscription{
		BaseEntity:             shared.NewBaseEntity(),
		OrganizationID:         input.Organization.ID,
		CustomerID:             input.Customer.ID,
		PriceID:                input.Price.ID,
		Name:                   name,
		Status:                 status,
		Renews:                 input.Price.IsRecurring(),
		TrialEnd:               input.TrialEnd,
		BillingCycleAnchorDate: startDate,
		Livemode:               input.Livemode,
	}

	unit, count, recurring := input.Price.Interval()
	if recurring {
		periodStart := startDate
		periodEnd := addInterval(periodStart, unit, count)
		sub.IntervalUnit = &unit
		sub.IntervalCount = &count
		sub.CurrentBillingPeriodStart = &periodStart
		sub.CurrentBillingPeriodEnd = &periodEnd
	}

	if err := repos.Subscriptions.Insert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to insert subscription: %w", err)
	}

	items := []billing.SubscriptionItem{{
		BaseEntity:     shared.NewBaseEntity(),
		SubscriptionID: sub.ID,
		PriceID:        input.Price.ID,
		Name:           name,
		Quantity:       quantity,
		UnitPrice:      input.Price.UnitPrice,
		Livemode:       input.Livemode,
	}}
	if err := repos.Subscriptions.InsertItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to insert subscription items: %w", err)
	}

	if recurring {
		period := billing.NewBillingPeriod(sub.ID, *sub.CurrentBillingPeriodStart, *sub.CurrentBillingPeriodEnd, input.Livemode)
		if err := repos.BillingPeriods.Insert(ctx, period); err != nil {
			return nil, fmt.Errorf("failed to insert billing period: %w", err)
		}
		periodItems := make([]billing.BillingPeriodItem, 0, len(items))
		for i := range items {
			periodItems = append(periodItems, billing.BillingPeriodItem{
				BaseEntity:      shared.NewBaseEntity(),
				BillingPeriodID: period.ID,
				Name:            items[i].Name,
				Type:            billing.BillingPeriodItemTypeStatic,
				Quantity:        items[i].Quantity,
				UnitPrice:       items[i].UnitPrice,
				Livemode:        input.Livemode,
			})
		}
		if err := repos.BillingPeriods.InsertItems(ctx, periodItems); err != nil {
			return nil, fmt.Errorf("failed to insert billing period items: %w", err)
		}
	}

	s.logger.Info("Created subscription",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("customer_id", input.Customer.ID.String()),
		zap.Bool("renews", sub.Renews),
		zap.String("status", string(sub.Status)))

	return &billing.SubscriptionCreationResult{
		Subscription:      sub,
		SubscriptionItems: items,
		Events:            []shared.DomainEvent{billing.NewSubscriptionCreatedEvent(sub)},
	}, nil
}

// addInterval advances t by one recurrence interval
func addInterval(t time.Time, unit billing.IntervalUnit, count int) time.Time {
	switch unit {
	case billing.IntervalUnitDay:
		return t.AddDate(0, 0, count)
	case billing.IntervalUnitWeek:
		return t.AddDate(0, 0, 7*count)
	case billing.IntervalUnitMonth:
		return t.AddDate(0, count, 0)
	case billing.IntervalUnitYear:
		return t.AddDate(count, 0, 0)
	default:
		return t.AddDate(0, count, 0)
	}
}
