package persistence

import (
	"context"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository
type GormSubscriptionRepository struct {
	db *gorm.DB
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)

// FindByID retrieves a subscription by its id
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Insert persists a new subscription
func (r *GormSubscriptionRepository) Insert(ctx context.Context, subscription *billing.Subscription) error {
	var model models.SubscriptionModel
	model.FromDomain(subscription)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// Update persists changes to an existing subscription
func (r *GormSubscriptionRepository) Update(ctx context.Context, subscription *billing.Subscription) error {
	var model models.SubscriptionModel
	model.FromDomain(subscription)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// InsertItems persists new subscription items
func (r *GormSubscriptionRepository) InsertItems(ctx context.Context, items []billing.SubscriptionItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.SubscriptionItemModel, len(items))
	for i := range items {
		rows[i].FromDomain(&items[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GormBillingPeriodRepository implements billing.BillingPeriodRepository
type GormBillingPeriodRepository struct {
	db *gorm.DB
}

var _ billing.BillingPeriodRepository = (*GormBillingPeriodRepository)(nil)

// FindByID retrieves a billing period by its id
func (r *GormBillingPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	var model models.BillingPeriodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindItems retrieves a billing period's items
func (r *GormBillingPeriodRepository) FindItems(ctx context.Context, billingPeriodID uuid.UUID) ([]billing.BillingPeriodItem, error) {
	var rows []models.BillingPeriodItemModel
	err := r.db.WithContext(ctx).
		Where("billing_period_id = ?", billingPeriodID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	items := make([]billing.BillingPeriodItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}

// Insert persists a new billing period
func (r *GormBillingPeriodRepository) Insert(ctx context.Context, period *billing.BillingPeriod) error {
	var model models.BillingPeriodModel
	model.FromDomain(period)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// InsertItems persists new billing period items
func (r *GormBillingPeriodRepository) InsertItems(ctx context.Context, items []billing.BillingPeriodItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.BillingPeriodItemModel, len(items))
	for i := range items {
		rows[i].FromDomain(&items[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// billingPeriodJoinRow is the scan target for the overlap query
type billingPeriodJoinRow struct {
	models.BillingPeriodModel
	SubPriceID       uuid.UUID `gorm:"column:sub_price_id"`
	SubIntervalUnit  *string   `gorm:"column:sub_interval_unit"`
	SubIntervalCount *int      `gorm:"column:sub_interval_count"`
}

// FindOverlapping retrieves every billing period of the organization
// overlapping [start, end], joined with its subscription's price and
// interval. productID narrows to periods whose subscription price
// belongs to that product.
func (r *GormBillingPeriodRepository) FindOverlapping(ctx context.Context, organizationID uuid.UUID, start, end time.Time, productID *uuid.UUID) ([]billing.BillingPeriodView, error) {
	query := r.db.WithContext(ctx).
		Table("billing_periods").
		Select("billing_periods.*, subscriptions.price_id AS sub_price_id, subscriptions.interval_unit AS sub_interval_unit, subscriptions.interval_count AS sub_interval_count").
		Joins("JOIN subscriptions ON subscriptions.id = billing_periods.subscription_id").
		Where("subscriptions.organization_id = ?", organizationID).
		Where("billing_periods.start_date <= ? AND billing_periods.end_date >= ?", end, start)
	if productID != nil {
		query = query.
			Joins("JOIN prices ON prices.id = subscriptions.price_id").
			Where("prices.product_id = ?", *productID)
	}

	var rows []billingPeriodJoinRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	views := make([]billing.BillingPeriodView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		items, err := r.FindItems(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		view := billing.BillingPeriodView{
			Period:        *row.BillingPeriodModel.ToDomain(),
			Items:         items,
			PriceID:       row.SubPriceID,
			IntervalCount: 1,
		}
		if row.SubIntervalUnit != nil {
			view.IntervalUnit = billing.IntervalUnit(*row.SubIntervalUnit)
		}
		if row.SubIntervalCount != nil && *row.SubIntervalCount > 0 {
			view.IntervalCount = *row.SubIntervalCount
		}
		views = append(views, view)
	}
	return views, nil
}
