package billing

import (
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SubscriptionStatus represents the lifecycle of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
)

// IsValid checks if the status is a valid SubscriptionStatus
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing,
		SubscriptionStatusCanceled, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// Subscription ties a customer to a recurring (or, for single-payment
// default plans, non-renewing) price. Non-renewing subscriptions have
// nil billing period bounds and no billing period rows.
type Subscription struct {
	shared.BaseEntity
	OrganizationID            uuid.UUID
	CustomerID                uuid.UUID
	PriceID                   uuid.UUID
	Name                      string
	Status                    SubscriptionStatus
	Renews                    bool
	TrialEnd                  *time.Time
	CurrentBillingPeriodStart *time.Time
	CurrentBillingPeriodEnd   *time.Time
	BillingCycleAnchorDate    time.Time
	IntervalUnit              *IntervalUnit
	IntervalCount             *int
	Livemode                  bool
}

// SubscriptionItem is one priced line on a subscription
type SubscriptionItem struct {
	shared.BaseEntity
	SubscriptionID uuid.UUID
	PriceID        uuid.UUID
	Name           string
	Quantity       int64
	UnitPrice      int64
	Livemode       bool
}

// Interval returns the subscription's recurrence interval, defaulting
// the count to 1. ok is false for non-renewing subscriptions.
func (s *Subscription) Interval() (unit IntervalUnit, count int, ok bool) {
	if !s.Renews || s.IntervalUnit == nil {
		return "", 0, false
	}
	count = 1
	if s.IntervalCount != nil && *s.IntervalCount > 0 {
		count = *s.IntervalCount
	}
	return *s.IntervalUnit, count, true
}
