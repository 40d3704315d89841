package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UsageMeterAggregationType determines how usage events roll up into a
// billable balance.
type UsageMeterAggregationType string

const (
	UsageMeterAggregationSum                 UsageMeterAggregationType = "sum"
	UsageMeterAggregationCountDistinctProps  UsageMeterAggregationType = "count_distinct_properties"
	UsageMeterAggregationLastDuringPeriod    UsageMeterAggregationType = "last_during_period"
	UsageMeterAggregationMaximumDuringPeriod UsageMeterAggregationType = "maximum_during_period"
)

// IsValid checks if the aggregation type is valid
func (t UsageMeterAggregationType) IsValid() bool {
	switch t {
	case UsageMeterAggregationSum, UsageMeterAggregationCountDistinctProps,
		UsageMeterAggregationLastDuringPeriod, UsageMeterAggregationMaximumDuringPeriod:
		return true
	}
	return false
}

// NoChargePriceSlugSuffix is appended to a meter's slug to form the
// slug of its shadow zero-cost fallback price.
const NoChargePriceSlugSuffix = "_no_charge"

// UsageMeter meters consumption under a pricing model. Slug is unique
// per pricing model.
type UsageMeter struct {
	shared.BaseEntity
	OrganizationID  uuid.UUID
	PricingModelID  uuid.UUID
	Name            string
	Slug            string
	AggregationType UsageMeterAggregationType
	Livemode        bool
}

// NewUsageMeter creates a usage meter under a pricing model
func NewUsageMeter(organizationID, pricingModelID uuid.UUID, name, slug string, aggregation UsageMeterAggregationType, livemode bool) *UsageMeter {
	if aggregation == "" {
		aggregation = UsageMeterAggregationSum
	}
	return &UsageMeter{
		BaseEntity:      shared.NewBaseEntity(),
		OrganizationID:  organizationID,
		PricingModelID:  pricingModelID,
		Name:            name,
		Slug:            slug,
		AggregationType: aggregation,
		Livemode:        livemode,
	}
}
