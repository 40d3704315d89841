package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PriceType distinguishes how a price charges
type PriceType string

const (
	PriceTypeSinglePayment PriceType = "single_payment"
	PriceTypeSubscription  PriceType = "subscription"
	PriceTypeUsage         PriceType = "usage"
)

// IsValid checks if the price type is valid
func (t PriceType) IsValid() bool {
	switch t {
	case PriceTypeSinglePayment, PriceTypeSubscription, PriceTypeUsage:
		return true
	}
	return false
}

// IntervalUnit is the recurrence unit of a subscription price
type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "day"
	IntervalUnitWeek  IntervalUnit = "week"
	IntervalUnitMonth IntervalUnit = "month"
	IntervalUnitYear  IntervalUnit = "year"
)

// IsValid checks if the interval unit is valid
func (u IntervalUnit) IsValid() bool {
	switch u {
	case IntervalUnitDay, IntervalUnitWeek, IntervalUnitMonth, IntervalUnitYear:
		return true
	}
	return false
}

// Price belongs to a product, or stands alone with a usage meter when
// Type is usage (ProductID nil). UnitPrice is in minor currency units.
// IntervalUnit/IntervalCount are nil unless Type is subscription.
type Price struct {
	shared.BaseEntity
	OrganizationID     uuid.UUID
	PricingModelID     uuid.UUID
	ProductID          *uuid.UUID
	UsageMeterID       *uuid.UUID
	Name               string
	Slug               string
	Type               PriceType
	IsDefault          bool
	Active             bool
	UnitPrice          int64
	Currency           valueobject.Currency
	IntervalUnit       *IntervalUnit
	IntervalCount      *int
	TrialPeriodDays    *int
	UsageEventsPerUnit *int64
	Livemode           bool
}

// IsRecurring reports whether the price renews on an interval
func (p *Price) IsRecurring() bool {
	return p.Type == PriceTypeSubscription && p.IntervalUnit != nil
}

// Interval returns the recurrence interval, defaulting the count to 1
// when unset. ok is false for non-recurring prices.
func (p *Price) Interval() (unit IntervalUnit, count int, ok bool) {
	if !p.IsRecurring() {
		return "", 0, false
	}
	count = 1
	if p.IntervalCount != nil && *p.IntervalCount > 0 {
		count = *p.IntervalCount
	}
	return *p.IntervalUnit, count, true
}
