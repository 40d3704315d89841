package billing

import (
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BillingPeriod is one charge cycle of a renewing subscription
type BillingPeriod struct {
	shared.BaseEntity
	SubscriptionID uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	Livemode       bool
}

// NewBillingPeriod creates a billing period for a subscription
func NewBillingPeriod(subscriptionID uuid.UUID, start, end time.Time, livemode bool) *BillingPeriod {
	return &BillingPeriod{
		BaseEntity:     shared.NewBaseEntity(),
		SubscriptionID: subscriptionID,
		StartDate:      start,
		EndDate:        end,
		Livemode:       livemode,
	}
}

// BillingPeriodItemType tags a billing period item as a fixed charge
// or a usage-derived one.
type BillingPeriodItemType string

const (
	BillingPeriodItemTypeStatic BillingPeriodItemType = "static"
	BillingPeriodItemTypeUsage  BillingPeriodItemType = "usage"
)

// BillingPeriodItem is a line-level charge attached to one billing
// period; the unit of MRR aggregation. Usage items carry the meter
// they were derived from and the events-per-unit conversion factor.
type BillingPeriodItem struct {
	shared.BaseEntity
	BillingPeriodID    uuid.UUID
	Name               string
	Type               BillingPeriodItemType
	Quantity           int64
	UnitPrice          int64
	UsageMeterID       *uuid.UUID
	UsageEventsPerUnit *int64
	Livemode           bool
}

// UsageOverage is the metered balance for one usage meter within a
// billing period, fed into subscription fee calculation.
type UsageOverage struct {
	UsageMeterID uuid.UUID
	Balance      int64
}
