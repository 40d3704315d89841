package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedGranularity rejects aggregation granularities other
	// than month
	ErrUnsupportedGranularity = errors.New("revenue aggregation supports only month granularity")
	// ErrInvalidDateRange rejects ranges whose end precedes their start
	ErrInvalidDateRange = errors.New("revenue aggregation end date precedes start date")
)

// RevenueGranularity is the bucket size of a revenue aggregation
type RevenueGranularity string

// RevenueGranularityMonth is the only supported granularity
const RevenueGranularityMonth RevenueGranularity = "month"

// MRRCalculationParams bounds a monthly recurring revenue query.
// ProductID optionally narrows the aggregation to billing periods whose
// subscription price belongs to one product.
type MRRCalculationParams struct {
	StartDate   time.Time
	EndDate     time.Time
	Granularity RevenueGranularity
	ProductID   *uuid.UUID
}

// MRRBucket is one month of recurring revenue. Month is the first
// instant of the calendar month in UTC. Amount is in minor currency
// units, kept decimal because proration produces fractional values.
type MRRBucket struct {
	Month  time.Time       `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// RevenueService aggregates billing period items into recurring
// revenue time series.
type RevenueService struct {
	txManager billing.TransactionManager
	logger    *zap.Logger
}

// NewRevenueService creates a new RevenueService
func NewRevenueService(txManager billing.TransactionManager, logger *zap.Logger) *RevenueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevenueService{txManager: txManager, logger: logger}
}

// CalculateMRRByMonth returns one bucket per calendar month touching
// [StartDate, EndDate], zero-amount months included. Each overlapping
// billing period contributes its items' value normalized to a monthly
// equivalent and scaled by the fraction of the period inside the
// month, so a period straddling two months splits across both buckets.
func (s *RevenueService) CalculateMRRByMonth(
	ctx context.Context,
	organizationID uuid.UUID,
	params MRRCalculationParams,
) ([]MRRBucket, error) {
	if params.Granularity != "" && params.Granularity != RevenueGranularityMonth {
		return nil, ErrUnsupportedGranularity
	}
	if params.EndDate.Before(params.StartDate) {
		return nil, ErrInvalidDateRange
	}

	var buckets []MRRBucket
	err := s.txManager.Do(ctx, func(ctx context.Context, repos *billing.Repositories) error {
		for month := monthStart(params.StartDate); !month.After(params.EndDate); month = month.AddDate(0, 1, 0) {
			monthEnd := month.AddDate(0, 1, 0).Add(-time.Nanosecond)
			views, err := repos.BillingPeriods.FindOverlapping(ctx, organizationID, month, monthEnd, params.ProductID)
			if err != nil {
				return fmt.Errorf("failed to load billing periods for %s: %w", month.Format("2006-01"), err)
			}

			amount := decimal.Zero
			for i := range views {
				view := &views[i]
				itemsValue := billing.CalculateBillingPeriodItemsValue(view.Items)
				if itemsValue == 0 {
					continue
				}
				monthly, err := billing.NormalizeToMonthlyValue(itemsValue, view.IntervalUnit, view.IntervalCount)
				if err != nil {
					return fmt.Errorf("billing period %s: %w", view.Period.ID, err)
				}
				overlapDays, totalDays := billing.CalculateOverlapDays(&view.Period, month, monthEnd)
				if overlapDays <= 0 || totalDays <= 0 {
					continue
				}
				// Multiply by the overlap before dividing so whole-month
				// values stay exact.
				amount = amount.Add(monthly.
					Mul(decimal.NewFromInt(overlapDays)).
					Div(decimal.NewFromInt(totalDays)))
			}
			buckets = append(buckets, MRRBucket{Month: month, Amount: amount})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// monthStart truncates a time to the first instant of its UTC month
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
