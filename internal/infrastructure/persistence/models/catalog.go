package models

import (
	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// OrganizationModel is the persistence model for organizations
type OrganizationModel struct {
	BaseModel
	Name               string `gorm:"type:varchar(255);not null"`
	CountryCode        string `gorm:"type:varchar(2);not null"`
	DefaultCurrency    string `gorm:"type:varchar(3);not null"`
	ContractType       string `gorm:"type:varchar(32);not null"`
	ProcessorAccountID string `gorm:"type:varchar(255)"`
	FeePercentage      string `gorm:"type:varchar(16);not null;default:'0'"`
	MonthlyFreeTier    int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string { return "organizations" }

// ToDomain converts the persistence model to a domain Organization
func (m *OrganizationModel) ToDomain() *billing.Organization {
	return &billing.Organization{
		BaseEntity:         m.BaseModel.ToDomain(),
		Name:               m.Name,
		CountryCode:        valueobject.CountryCode(m.CountryCode),
		DefaultCurrency:    valueobject.Currency(m.DefaultCurrency),
		ContractType:       billing.ContractType(m.ContractType),
		ProcessorAccountID: m.ProcessorAccountID,
		FeePercentage:      m.FeePercentage,
		MonthlyFreeTier:    m.MonthlyFreeTier,
	}
}

// FromDomain populates the persistence model from a domain Organization
func (m *OrganizationModel) FromDomain(o *billing.Organization) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.Name = o.Name
	m.CountryCode = string(o.CountryCode)
	m.DefaultCurrency = string(o.DefaultCurrency)
	m.ContractType = string(o.ContractType)
	m.ProcessorAccountID = o.ProcessorAccountID
	m.FeePercentage = o.FeePercentage
	m.MonthlyFreeTier = o.MonthlyFreeTier
}

// PricingModelModel is the persistence model for pricing models
type PricingModelModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_pricing_models_org_livemode"`
	Name           string    `gorm:"type:varchar(255);not null"`
	IsDefault      bool      `gorm:"not null;default:false"`
	Livemode       bool      `gorm:"not null;index:idx_pricing_models_org_livemode"`
}

// TableName returns the table name for GORM
func (PricingModelModel) TableName() string { return "pricing_models" }

// ToDomain converts the persistence model to a domain PricingModel
func (m *PricingModelModel) ToDomain() *billing.PricingModel {
	return &billing.PricingModel{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		IsDefault:      m.IsDefault,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain PricingModel
func (m *PricingModelModel) FromDomain(p *billing.PricingModel) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OrganizationID = p.OrganizationID
	m.Name = p.Name
	m.IsDefault = p.IsDefault
	m.Livemode = p.Livemode
}

// ProductModel is the persistence model for products
type ProductModel struct {
	BaseModel
	PricingModelID uuid.UUID `gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Slug           string    `gorm:"type:varchar(255);not null"`
	Description    string    `gorm:"type:text"`
	IsDefault      bool      `gorm:"column:is_default;not null;default:false"`
	Active         bool      `gorm:"not null;default:true"`
	Livemode       bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string { return "products" }

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *billing.Product {
	return &billing.Product{
		BaseEntity:     m.BaseModel.ToDomain(),
		PricingModelID: m.PricingModelID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		Slug:           m.Slug,
		Description:    m.Description,
		Default:        m.IsDefault,
		Active:         m.Active,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *billing.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.PricingModelID = p.PricingModelID
	m.OrganizationID = p.OrganizationID
	m.Name = p.Name
	m.Slug = p.Slug
	m.Description = p.Description
	m.IsDefault = p.Default
	m.Active = p.Active
	m.Livemode = p.Livemode
}

// PriceModel is the persistence model for prices
type PriceModel struct {
	BaseModel
	OrganizationID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	PricingModelID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_prices_model_slug,priority:1"`
	ProductID          *uuid.UUID `gorm:"type:uuid;index"`
	UsageMeterID       *uuid.UUID `gorm:"type:uuid;index"`
	Name               string     `gorm:"type:varchar(255);not null"`
	Slug               string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_prices_model_slug,priority:2"`
	Type               string     `gorm:"type:varchar(32);not null"`
	IsDefault          bool       `gorm:"not null;default:false"`
	Active             bool       `gorm:"not null;default:true"`
	UnitPrice          int64      `gorm:"not null"`
	Currency           string     `gorm:"type:varchar(3);not null"`
	IntervalUnit       *string    `gorm:"type:varchar(16)"`
	IntervalCount      *int
	TrialPeriodDays    *int
	UsageEventsPerUnit *int64
	Livemode           bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PriceModel) TableName() string { return "prices" }

// ToDomain converts the persistence model to a domain Price
func (m *PriceModel) ToDomain() *billing.Price {
	price := &billing.Price{
		BaseEntity:         m.BaseModel.ToDomain(),
		OrganizationID:     m.OrganizationID,
		PricingModelID:     m.PricingModelID,
		ProductID:          m.ProductID,
		UsageMeterID:       m.UsageMeterID,
		Name:               m.Name,
		Slug:               m.Slug,
		Type:               billing.PriceType(m.Type),
		IsDefault:          m.IsDefault,
		Active:             m.Active,
		UnitPrice:          m.UnitPrice,
		Currency:           valueobject.Currency(m.Currency),
		IntervalCount:      m.IntervalCount,
		TrialPeriodDays:    m.TrialPeriodDays,
		UsageEventsPerUnit: m.UsageEventsPerUnit,
		Livemode:           m.Livemode,
	}
	if m.IntervalUnit != nil {
		unit := billing.IntervalUnit(*m.IntervalUnit)
		price.IntervalUnit = &unit
	}
	return price
}

// FromDomain populates the persistence model from a domain Price
func (m *PriceModel) FromDomain(p *billing.Price) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OrganizationID = p.OrganizationID
	m.PricingModelID = p.PricingModelID
	m.ProductID = p.ProductID
	m.UsageMeterID = p.UsageMeterID
	m.Name = p.Name
	m.Slug = p.Slug
	m.Type = string(p.Type)
	m.IsDefault = p.IsDefault
	m.Active = p.Active
	m.UnitPrice = p.UnitPrice
	m.Currency = string(p.Currency)
	if p.IntervalUnit != nil {
		unit := string(*p.IntervalUnit)
		m.IntervalUnit = &unit
	} else {
		m.IntervalUnit = nil
	}
	m.IntervalCount = p.IntervalCount
	m.TrialPeriodDays = p.TrialPeriodDays
	m.UsageEventsPerUnit = p.UsageEventsPerUnit
	m.Livemode = p.Livemode
}

// UsageMeterModel is the persistence model for usage meters
type UsageMeterModel struct {
	BaseModel
	OrganizationID  uuid.UUID `gorm:"type:uuid;not null;index"`
	PricingModelID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_meters_model_slug,priority:1"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Slug            string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_usage_meters_model_slug,priority:2"`
	AggregationType string    `gorm:"type:varchar(64);not null"`
	Livemode        bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageMeterModel) TableName() string { return "usage_meters" }

// ToDomain converts the persistence model to a domain UsageMeter
func (m *UsageMeterModel) ToDomain() *billing.UsageMeter {
	return &billing.UsageMeter{
		BaseEntity:      m.BaseModel.ToDomain(),
		OrganizationID:  m.OrganizationID,
		PricingModelID:  m.PricingModelID,
		Name:            m.Name,
		Slug:            m.Slug,
		AggregationType: billing.UsageMeterAggregationType(m.AggregationType),
		Livemode:        m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain UsageMeter
func (m *UsageMeterModel) FromDomain(u *billing.UsageMeter) {
	m.FromDomainBaseEntity(u.BaseEntity)
	m.OrganizationID = u.OrganizationID
	m.PricingModelID = u.PricingModelID
	m.Name = u.Name
	m.Slug = u.Slug
	m.AggregationType = string(u.AggregationType)
	m.Livemode = u.Livemode
}

// DiscountModel is the persistence model for discounts
type DiscountModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Code           string    `gorm:"type:varchar(64);not null"`
	AmountType     string    `gorm:"type:varchar(16);not null"`
	Amount         int64     `gorm:"not null"`
	Active         bool      `gorm:"not null;default:true"`
	Livemode       bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountModel) TableName() string { return "discounts" }

// ToDomain converts the persistence model to a domain Discount
func (m *DiscountModel) ToDomain() *billing.Discount {
	return &billing.Discount{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		Code:           m.Code,
		AmountType:     billing.DiscountAmountType(m.AmountType),
		Amount:         m.Amount,
		Active:         m.Active,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Discount
func (m *DiscountModel) FromDomain(d *billing.Discount) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.OrganizationID = d.OrganizationID
	m.Name = d.Name
	m.Code = d.Code
	m.AmountType = string(d.AmountType)
	m.Amount = d.Amount
	m.Active = d.Active
	m.Livemode = d.Livemode
}

// DiscountRedemptionModel is the persistence model for discount
// redemptions. The unique (discount_id, purchase_id) pair backs the
// upsert that keeps reconciliation replays from double-redeeming.
type DiscountRedemptionModel struct {
	BaseModel
	DiscountID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_redemptions_discount_purchase,priority:1"`
	PurchaseID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_redemptions_discount_purchase,priority:2"`
	SubscriptionID *uuid.UUID `gorm:"type:uuid;index"`
	DiscountName   string     `gorm:"type:varchar(255);not null"`
	DiscountCode   string     `gorm:"type:varchar(64);not null"`
	AmountType     string     `gorm:"type:varchar(16);not null"`
	Amount         int64      `gorm:"not null"`
	FullyRedeemed  bool       `gorm:"not null;default:false"`
	Livemode       bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountRedemptionModel) TableName() string { return "discount_redemptions" }

// ToDomain converts the persistence model to a domain DiscountRedemption
func (m *DiscountRedemptionModel) ToDomain() *billing.DiscountRedemption {
	return &billing.DiscountRedemption{
		BaseEntity:     m.BaseModel.ToDomain(),
		DiscountID:     m.DiscountID,
		PurchaseID:     m.PurchaseID,
		SubscriptionID: m.SubscriptionID,
		DiscountName:   m.DiscountName,
		DiscountCode:   m.DiscountCode,
		AmountType:     billing.DiscountAmountType(m.AmountType),
		Amount:         m.Amount,
		FullyRedeemed:  m.FullyRedeemed,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain DiscountRedemption
func (m *DiscountRedemptionModel) FromDomain(r *billing.DiscountRedemption) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.DiscountID = r.DiscountID
	m.PurchaseID = r.PurchaseID
	m.SubscriptionID = r.SubscriptionID
	m.DiscountName = r.DiscountName
	m.DiscountCode = r.DiscountCode
	m.AmountType = string(r.AmountType)
	m.Amount = r.Amount
	m.FullyRedeemed = r.FullyRedeemed
	m.Livemode = r.Livemode
}
