package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUsageMeterSlugTaken rejects duplicate meter slugs within a
	// pricing model
	ErrUsageMeterSlugTaken = errors.New("usage meter slug already exists in pricing model")
	// ErrUsagePriceSlugTaken rejects a usage price slug collision within
	// a pricing model
	ErrUsagePriceSlugTaken = errors.New("usage price slug already exists in pricing model")
)

// UsageService sets up usage meters and their prices. Every meter gets
// a shadow zero-cost fallback price so metered usage always resolves
// to some price, even before the organization configures a billable
// one.
type UsageService struct {
	txManager billing.TransactionManager
	logger    *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(txManager billing.TransactionManager, logger *zap.Logger) *UsageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageService{txManager: txManager, logger: logger}
}

// UsagePriceFields configures the optional billable price created
// alongside a meter.
type UsagePriceFields struct {
	Name               string
	UnitPrice          int64
	UsageEventsPerUnit int64
}

// UsageMeterPayload is the input to usage meter creation
type UsageMeterPayload struct {
	PricingModelID  uuid.UUID
	Name            string
	Slug            string
	AggregationType billing.UsageMeterAggregationType
	Price           *UsagePriceFields
}

// UsageMeterCreationResult is what usage meter creation returns.
// Price is nil when no billable price was requested.
type UsageMeterCreationResult struct {
	Meter         *billing.UsageMeter
	NoChargePrice *billing.Price
	Price         *billing.Price
}

// CreateUsageMeter creates a meter, its shadow no-charge price and,
// when requested, a billable price. The shadow price starts as the
// meter's default and is demoted when a billable price is created in
// the same call. Slug collisions on either price roll the whole setup
// back.
func (s *UsageService) CreateUsageMeter(
	ctx context.Context,
	payload UsageMeterPayload,
	auth AuthContext,
) (*UsageMeterCreationResult, error) {
	result := &UsageMeterCreationResult{}
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		model, err := repos.PricingModels.FindByID(ctx, payload.PricingModelID)
		if err != nil {
			return fmt.Errorf("failed to load pricing model: %w", err)
		}
		if model.OrganizationID != auth.OrganizationID {
			return shared.ErrForbidden
		}
		org, err := repos.Organizations.FindByID(ctx, auth.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to load organization: %w", err)
		}

		taken, err := repos.UsageMeters.ExistsBySlug(ctx, model.ID, payload.Slug)
		if err != nil {
			return fmt.Errorf("failed to check meter slug: %w", err)
		}
		if taken {
			return ErrUsageMeterSlugTaken
		}

		meter := billing.NewUsageMeter(auth.OrganizationID, model.ID, payload.Name, payload.Slug, payload.AggregationType, auth.Livemode)
		if err := repos.UsageMeters.Insert(ctx, meter); err != nil {
			return fmt.Errorf("failed to insert usage meter: %w", err)
		}

		noCharge, err := s.insertUsagePrice(ctx, repos, usagePriceSpec{
			org:           org,
			model:         model,
			meter:         meter,
			name:          meter.Name + " (no charge)",
			slug:          meter.Slug + billing.NoChargePriceSlugSuffix,
			unitPrice:     0,
			eventsPerUnit: 1,
			isDefault:     payload.Price == nil,
			livemode:      auth.Livemode,
		})
		if err != nil {
			return err
		}

		result.Meter = meter
		result.NoChargePrice = noCharge

		if payload.Price == nil {
			return nil
		}
		eventsPerUnit := payload.Price.UsageEventsPerUnit
		if eventsPerUnit <= 0 {
			eventsPerUnit = 1
		}
		name := payload.Price.Name
		if name == "" {
			name = meter.Name
		}
		price, err := s.insertUsagePrice(ctx, repos, usagePriceSpec{
			org:           org,
			model:         model,
			meter:         meter,
			name:          name,
			slug:          meter.Slug,
			unitPrice:     payload.Price.UnitPrice,
			eventsPerUnit: eventsPerUnit,
			isDefault:     true,
			livemode:      auth.Livemode,
		})
		if err != nil {
			return err
		}
		result.Price = price
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created usage meter",
		zap.String("usage_meter_id", result.Meter.ID.String()),
		zap.String("slug", result.Meter.Slug),
		zap.Bool("has_billable_price", result.Price != nil))
	return result, nil
}

type usagePriceSpec struct {
	org           *billing.Organization
	model         *billing.PricingModel
	meter         *billing.UsageMeter
	name          string
	slug          string
	unitPrice     int64
	eventsPerUnit int64
	isDefault     bool
	livemode      bool
}

func (s *UsageService) insertUsagePrice(ctx context.Context, repos *billing.Repositories, spec usagePriceSpec) (*billing.Price, error) {
	taken, err := repos.Prices.ExistsBySlug(ctx, spec.model.ID, spec.slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check price slug: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrUsagePriceSlugTaken, spec.slug)
	}
	eventsPerUnit := spec.eventsPerUnit
	price := &billing.Price{
		BaseEntity:         shared.NewBaseEntity(),
		OrganizationID:     spec.org.ID,
		PricingModelID:     spec.model.ID,
		UsageMeterID:       &spec.meter.ID,
		Name:               spec.name,
		Slug:               spec.slug,
		Type:               billing.PriceTypeUsage,
		IsDefault:          spec.isDefault,
		Active:             true,
		UnitPrice:          spec.unitPrice,
		Currency:           spec.org.DefaultCurrency,
		UsageEventsPerUnit: &eventsPerUnit,
		Livemode:           spec.livemode,
	}
	if err := repos.Prices.Insert(ctx, price); err != nil {
		return nil, fmt.Errorf("failed to insert usage price: %w", err)
	}
	return price, nil
}
