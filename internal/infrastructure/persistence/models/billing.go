package models

import (
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for customers
type CustomerModel struct {
	BaseModel
	OrganizationID      uuid.UUID `gorm:"type:uuid;not null;index:idx_customers_org_processor"`
	Email               string    `gorm:"type:varchar(255);not null"`
	Name                string    `gorm:"type:varchar(255)"`
	ExternalID          string    `gorm:"type:varchar(255);not null"`
	ProcessorCustomerID *string   `gorm:"type:varchar(255);index:idx_customers_org_processor"`
	PricingModelID      *uuid.UUID `gorm:"type:uuid"`
	Livemode            bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string { return "customers" }

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *billing.Customer {
	return &billing.Customer{
		BaseEntity:          m.BaseModel.ToDomain(),
		OrganizationID:      m.OrganizationID,
		Email:               m.Email,
		Name:                m.Name,
		ExternalID:          m.ExternalID,
		ProcessorCustomerID: m.ProcessorCustomerID,
		PricingModelID:      m.PricingModelID,
		Livemode:            m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(c *billing.Customer) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.OrganizationID = c.OrganizationID
	m.Email = c.Email
	m.Name = c.Name
	m.ExternalID = c.ExternalID
	m.ProcessorCustomerID = c.ProcessorCustomerID
	m.PricingModelID = c.PricingModelID
	m.Livemode = c.Livemode
}

// PurchaseModel is the persistence model for purchases
type PurchaseModel struct {
	AggregateModel
	OrganizationID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID           uuid.UUID `gorm:"type:uuid;not null;index"`
	PriceID              uuid.UUID `gorm:"type:uuid;not null"`
	Name                 string    `gorm:"type:varchar(255);not null"`
	Status               string    `gorm:"type:varchar(16);not null"`
	PurchaseDate         *time.Time
	FirstInvoiceValue    *int64
	PricePerBillingCycle *int64
	Livemode             bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseModel) TableName() string { return "purchases" }

// ToDomain converts the persistence model to a domain Purchase
func (m *PurchaseModel) ToDomain() *billing.Purchase {
	return &billing.Purchase{
		BaseAggregateRoot:    m.AggregateModel.ToDomainAggregate(),
		OrganizationID:       m.OrganizationID,
		CustomerID:           m.CustomerID,
		PriceID:              m.PriceID,
		Name:                 m.Name,
		Status:               billing.PurchaseStatus(m.Status),
		PurchaseDate:         m.PurchaseDate,
		FirstInvoiceValue:    m.FirstInvoiceValue,
		PricePerBillingCycle: m.PricePerBillingCycle,
		Livemode:             m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Purchase
func (m *PurchaseModel) FromDomain(p *billing.Purchase) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.OrganizationID = p.OrganizationID
	m.CustomerID = p.CustomerID
	m.PriceID = p.PriceID
	m.Name = p.Name
	m.Status = string(p.Status)
	m.PurchaseDate = p.PurchaseDate
	m.FirstInvoiceValue = p.FirstInvoiceValue
	m.PricePerBillingCycle = p.PricePerBillingCycle
	m.Livemode = p.Livemode
}

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	AggregateModel
	OrganizationID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	PurchaseID      *uuid.UUID `gorm:"type:uuid;index"`
	BillingPeriodID *uuid.UUID `gorm:"type:uuid;index"`
	InvoiceNumber   string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status          string     `gorm:"type:varchar(40);not null"`
	Currency        string     `gorm:"type:varchar(3);not null"`
	Livemode        bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string { return "invoices" }

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregate(),
		OrganizationID:    m.OrganizationID,
		CustomerID:        m.CustomerID,
		PurchaseID:        m.PurchaseID,
		BillingPeriodID:   m.BillingPeriodID,
		InvoiceNumber:     m.InvoiceNumber,
		Status:            billing.InvoiceStatus(m.Status),
		Currency:          valueobject.Currency(m.Currency),
		Livemode:          m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(i *billing.Invoice) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.OrganizationID = i.OrganizationID
	m.CustomerID = i.CustomerID
	m.PurchaseID = i.PurchaseID
	m.BillingPeriodID = i.BillingPeriodID
	m.InvoiceNumber = i.InvoiceNumber
	m.Status = string(i.Status)
	m.Currency = string(i.Currency)
	m.Livemode = i.Livemode
}

// InvoiceLineItemModel is the persistence model for invoice line items
type InvoiceLineItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	PriceID     *uuid.UUID `gorm:"type:uuid"`
	Description string     `gorm:"type:text;not null"`
	Quantity    int64      `gorm:"not null"`
	Price       int64      `gorm:"not null"`
	Livemode    bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string { return "invoice_line_items" }

// ToDomain converts the persistence model to a domain InvoiceLineItem
func (m *InvoiceLineItemModel) ToDomain() billing.InvoiceLineItem {
	return billing.InvoiceLineItem{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		PriceID:     m.PriceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		Price:       m.Price,
		Livemode:    m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain InvoiceLineItem
func (m *InvoiceLineItemModel) FromDomain(i *billing.InvoiceLineItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.InvoiceID = i.InvoiceID
	m.PriceID = i.PriceID
	m.Description = i.Description
	m.Quantity = i.Quantity
	m.Price = i.Price
	m.Livemode = i.Livemode
}

// PaymentModel is the persistence model for payments
type PaymentModel struct {
	BaseModel
	OrganizationID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_payments_org_livemode_date"`
	CustomerID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	InvoiceID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	PurchaseID        *uuid.UUID `gorm:"type:uuid;index"`
	Amount            int64      `gorm:"not null"`
	RefundedAmount    int64      `gorm:"not null;default:0"`
	Refunded          bool       `gorm:"not null;default:false"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	Status            string     `gorm:"type:varchar(16);not null"`
	ChargeDate        time.Time  `gorm:"not null;index:idx_payments_org_livemode_date,priority:3"`
	ProcessorChargeID string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PaymentMethod     string     `gorm:"type:varchar(32);not null"`
	Livemode          bool       `gorm:"not null;index:idx_payments_org_livemode_date,priority:2"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string { return "payments" }

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:        m.BaseModel.ToDomain(),
		OrganizationID:    m.OrganizationID,
		CustomerID:        m.CustomerID,
		InvoiceID:         m.InvoiceID,
		PurchaseID:        m.PurchaseID,
		Amount:            m.Amount,
		RefundedAmount:    m.RefundedAmount,
		Refunded:          m.Refunded,
		Currency:          valueobject.Currency(m.Currency),
		Status:            billing.PaymentStatus(m.Status),
		ChargeDate:        m.ChargeDate,
		ProcessorChargeID: m.ProcessorChargeID,
		PaymentMethod:     billing.PaymentMethod(m.PaymentMethod),
		Livemode:          m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OrganizationID = p.OrganizationID
	m.CustomerID = p.CustomerID
	m.InvoiceID = p.InvoiceID
	m.PurchaseID = p.PurchaseID
	m.Amount = p.Amount
	m.RefundedAmount = p.RefundedAmount
	m.Refunded = p.Refunded
	m.Currency = string(p.Currency)
	m.Status = string(p.Status)
	m.ChargeDate = p.ChargeDate
	m.ProcessorChargeID = p.ProcessorChargeID
	m.PaymentMethod = string(p.PaymentMethod)
	m.Livemode = p.Livemode
}

// CheckoutSessionModel is the persistence model for checkout sessions
type CheckoutSessionModel struct {
	AggregateModel
	OrganizationID    uuid.UUID                     `gorm:"type:uuid;not null;index"`
	Type              string                        `gorm:"type:varchar(16);not null"`
	Status            string                        `gorm:"type:varchar(16);not null"`
	CustomerID        *uuid.UUID                    `gorm:"type:uuid;index"`
	PurchaseID        *uuid.UUID                    `gorm:"type:uuid;index"`
	InvoiceID         *uuid.UUID                    `gorm:"type:uuid;index"`
	PriceID           *uuid.UUID                    `gorm:"type:uuid"`
	Quantity          int64                         `gorm:"not null;default:1"`
	CustomerName      *string                       `gorm:"type:varchar(255)"`
	CustomerEmail     *string                       `gorm:"type:varchar(255)"`
	BillingAddress    *valueobject.BillingAddress   `gorm:"type:jsonb"`
	PaymentMethodType *string                       `gorm:"type:varchar(32)"`
	DiscountID        *uuid.UUID                    `gorm:"type:uuid"`
	PaymentIntentID   *string                       `gorm:"type:varchar(255);index"`
	SuccessURL        string                        `gorm:"type:text"`
	CancelURL         string                        `gorm:"type:text"`
	Livemode          bool                          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckoutSessionModel) TableName() string { return "checkout_sessions" }

// ToDomain converts the persistence model to a domain CheckoutSession
func (m *CheckoutSessionModel) ToDomain() *billing.CheckoutSession {
	session := &billing.CheckoutSession{
		BaseAggregateRoot: m.AggregateModel.ToDomainAggregate(),
		OrganizationID:    m.OrganizationID,
		Type:              billing.CheckoutSessionType(m.Type),
		Status:            billing.CheckoutSessionStatus(m.Status),
		CustomerID:        m.CustomerID,
		PurchaseID:        m.PurchaseID,
		InvoiceID:         m.InvoiceID,
		PriceID:           m.PriceID,
		Quantity:          m.Quantity,
		CustomerName:      m.CustomerName,
		CustomerEmail:     m.CustomerEmail,
		BillingAddress:    m.BillingAddress,
		DiscountID:        m.DiscountID,
		PaymentIntentID:   m.PaymentIntentID,
		SuccessURL:        m.SuccessURL,
		CancelURL:         m.CancelURL,
		Livemode:          m.Livemode,
	}
	if m.PaymentMethodType != nil {
		method := billing.PaymentMethod(*m.PaymentMethodType)
		session.PaymentMethodType = &method
	}
	return session
}

// FromDomain populates the persistence model from a domain CheckoutSession
func (m *CheckoutSessionModel) FromDomain(s *billing.CheckoutSession) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.OrganizationID = s.OrganizationID
	m.Type = string(s.Type)
	m.Status = string(s.Status)
	m.CustomerID = s.CustomerID
	m.PurchaseID = s.PurchaseID
	m.InvoiceID = s.InvoiceID
	m.PriceID = s.PriceID
	m.Quantity = s.Quantity
	m.CustomerName = s.CustomerName
	m.CustomerEmail = s.CustomerEmail
	m.BillingAddress = s.BillingAddress
	if s.PaymentMethodType != nil {
		method := string(*s.PaymentMethodType)
		m.PaymentMethodType = &method
	} else {
		m.PaymentMethodType = nil
	}
	m.DiscountID = s.DiscountID
	m.PaymentIntentID = s.PaymentIntentID
	m.SuccessURL = s.SuccessURL
	m.CancelURL = s.CancelURL
	m.Livemode = s.Livemode
}

// FeeCalculationModel is the persistence model for fee calculations.
// Percentages are stored as decimal strings to avoid float drift.
type FeeCalculationModel struct {
	BaseModel
	OrganizationID             uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Type                       string                     `gorm:"type:varchar(40);not null"`
	CheckoutSessionID          *uuid.UUID                 `gorm:"type:uuid;index:idx_fee_calcs_session_created"`
	BillingPeriodID            *uuid.UUID                 `gorm:"type:uuid;index"`
	PurchaseID                 *uuid.UUID                 `gorm:"type:uuid"`
	PriceID                    *uuid.UUID                 `gorm:"type:uuid"`
	DiscountID                 *uuid.UUID                 `gorm:"type:uuid"`
	Currency                   string                     `gorm:"type:varchar(3);not null"`
	BaseAmount                 int64                      `gorm:"not null"`
	DiscountAmountFixed        int64                      `gorm:"not null;default:0"`
	PretaxTotal                int64                      `gorm:"not null;default:0"`
	PlatformFeePercentage      string                     `gorm:"type:varchar(32);not null;default:'0'"`
	InternationalFeePercentage string                     `gorm:"type:varchar(32);not null;default:'0'"`
	PaymentMethodFeeFixed      int64                      `gorm:"not null;default:0"`
	TaxAmountFixed             int64                      `gorm:"not null;default:0"`
	TaxCalculationID           string                     `gorm:"type:varchar(255)"`
	PaymentMethodType          string                     `gorm:"type:varchar(32)"`
	BillingAddress             valueobject.BillingAddress `gorm:"type:jsonb"`
	InternalNotes              string                     `gorm:"type:text"`
	Livemode                   bool                       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeeCalculationModel) TableName() string { return "fee_calculations" }

// ToDomain converts the persistence model to a domain FeeCalculation
func (m *FeeCalculationModel) ToDomain() *billing.FeeCalculation {
	platformPct, _ := decimal.NewFromString(m.PlatformFeePercentage)
	internationalPct, _ := decimal.NewFromString(m.InternationalFeePercentage)
	return &billing.FeeCalculation{
		BaseEntity:                 m.BaseModel.ToDomain(),
		OrganizationID:             m.OrganizationID,
		Type:                       billing.FeeCalculationType(m.Type),
		CheckoutSessionID:          m.CheckoutSessionID,
		BillingPeriodID:            m.BillingPeriodID,
		PurchaseID:                 m.PurchaseID,
		PriceID:                    m.PriceID,
		DiscountID:                 m.DiscountID,
		Currency:                   valueobject.Currency(m.Currency),
		BaseAmount:                 m.BaseAmount,
		DiscountAmountFixed:        m.DiscountAmountFixed,
		PretaxTotal:                m.PretaxTotal,
		PlatformFeePercentage:      platformPct,
		InternationalFeePercentage: internationalPct,
		PaymentMethodFeeFixed:      m.PaymentMethodFeeFixed,
		TaxAmountFixed:             m.TaxAmountFixed,
		TaxCalculationID:           m.TaxCalculationID,
		PaymentMethodType:          billing.PaymentMethod(m.PaymentMethodType),
		BillingAddress:             m.BillingAddress,
		InternalNotes:              m.InternalNotes,
		Livemode:                   m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain FeeCalculation
func (m *FeeCalculationModel) FromDomain(f *billing.FeeCalculation) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.OrganizationID = f.OrganizationID
	m.Type = string(f.Type)
	m.CheckoutSessionID = f.CheckoutSessionID
	m.BillingPeriodID = f.BillingPeriodID
	m.PurchaseID = f.PurchaseID
	m.PriceID = f.PriceID
	m.DiscountID = f.DiscountID
	m.Currency = string(f.Currency)
	m.BaseAmount = f.BaseAmount
	m.DiscountAmountFixed = f.DiscountAmountFixed
	m.PretaxTotal = f.PretaxTotal
	m.PlatformFeePercentage = f.PlatformFeePercentage.String()
	m.InternationalFeePercentage = f.InternationalFeePercentage.String()
	m.PaymentMethodFeeFixed = f.PaymentMethodFeeFixed
	m.TaxAmountFixed = f.TaxAmountFixed
	m.TaxCalculationID = f.TaxCalculationID
	m.PaymentMethodType = string(f.PaymentMethodType)
	m.BillingAddress = f.BillingAddress
	m.InternalNotes = f.InternalNotes
	m.Livemode = f.Livemode
}

// SubscriptionModel is the persistence model for subscriptions
type SubscriptionModel struct {
	BaseModel
	OrganizationID            uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID                uuid.UUID `gorm:"type:uuid;not null;index"`
	PriceID                   uuid.UUID `gorm:"type:uuid;not null"`
	Name                      string    `gorm:"type:varchar(255);not null"`
	Status                    string    `gorm:"type:varchar(16);not null"`
	Renews                    bool      `gorm:"not null"`
	TrialEnd                  *time.Time
	CurrentBillingPeriodStart *time.Time
	CurrentBillingPeriodEnd   *time.Time
	BillingCycleAnchorDate    time.Time `gorm:"not null"`
	IntervalUnit              *string   `gorm:"type:varchar(16)"`
	IntervalCount             *int
	Livemode                  bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string { return "subscriptions" }

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	sub := &billing.Subscription{
		BaseEntity:                m.BaseModel.ToDomain(),
		OrganizationID:            m.OrganizationID,
		CustomerID:                m.CustomerID,
		PriceID:                   m.PriceID,
		Name:                      m.Name,
		Status:                    billing.SubscriptionStatus(m.Status),
		Renews:                    m.Renews,
		TrialEnd:                  m.TrialEnd,
		CurrentBillingPeriodStart: m.CurrentBillingPeriodStart,
		CurrentBillingPeriodEnd:   m.CurrentBillingPeriodEnd,
		BillingCycleAnchorDate:    m.BillingCycleAnchorDate,
		IntervalCount:             m.IntervalCount,
		Livemode:                  m.Livemode,
	}
	if m.IntervalUnit != nil {
		unit := billing.IntervalUnit(*m.IntervalUnit)
		sub.IntervalUnit = &unit
	}
	return sub
}

// FromDomain populates the persistence model from a domain Subscription
func (m *SubscriptionModel) FromDomain(s *billing.Subscription) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.OrganizationID = s.OrganizationID
	m.CustomerID = s.CustomerID
	m.PriceID = s.PriceID
	m.Name = s.Name
	m.Status = string(s.Status)
	m.Renews = s.Renews
	m.TrialEnd = s.TrialEnd
	m.CurrentBillingPeriodStart = s.CurrentBillingPeriodStart
	m.CurrentBillingPeriodEnd = s.CurrentBillingPeriodEnd
	m.BillingCycleAnchorDate = s.BillingCycleAnchorDate
	if s.IntervalUnit != nil {
		unit := string(*s.IntervalUnit)
		m.IntervalUnit = &unit
	} else {
		m.IntervalUnit = nil
	}
	m.IntervalCount = s.IntervalCount
	m.Livemode = s.Livemode
}

// SubscriptionItemModel is the persistence model for subscription items
type SubscriptionItemModel struct {
	BaseModel
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	PriceID        uuid.UUID `gorm:"type:uuid;not null"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Quantity       int64     `gorm:"not null"`
	UnitPrice      int64     `gorm:"not null"`
	Livemode       bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubscriptionItemModel) TableName() string { return "subscription_items" }

// ToDomain converts the persistence model to a domain SubscriptionItem
func (m *SubscriptionItemModel) ToDomain() billing.SubscriptionItem {
	return billing.SubscriptionItem{
		BaseEntity:     m.BaseModel.ToDomain(),
		SubscriptionID: m.SubscriptionID,
		PriceID:        m.PriceID,
		Name:           m.Name,
		Quantity:       m.Quantity,
		UnitPrice:      m.UnitPrice,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain SubscriptionItem
func (m *SubscriptionItemModel) FromDomain(i *billing.SubscriptionItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.SubscriptionID = i.SubscriptionID
	m.PriceID = i.PriceID
	m.Name = i.Name
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.Livemode = i.Livemode
}

// BillingPeriodModel is the persistence model for billing periods
type BillingPeriodModel struct {
	BaseModel
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	StartDate      time.Time `gorm:"not null;index"`
	EndDate        time.Time `gorm:"not null;index"`
	Livemode       bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingPeriodModel) TableName() string { return "billing_periods" }

// ToDomain converts the persistence model to a domain BillingPeriod
func (m *BillingPeriodModel) ToDomain() *billing.BillingPeriod {
	return &billing.BillingPeriod{
		BaseEntity:     m.BaseModel.ToDomain(),
		SubscriptionID: m.SubscriptionID,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		Livemode:       m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain BillingPeriod
func (m *BillingPeriodModel) FromDomain(p *billing.BillingPeriod) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.SubscriptionID = p.SubscriptionID
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Livemode = p.Livemode
}

// BillingPeriodItemModel is the persistence model for billing period items
type BillingPeriodItemModel struct {
	BaseModel
	BillingPeriodID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name               string     `gorm:"type:varchar(255);not null"`
	Type               string     `gorm:"type:varchar(16);not null"`
	Quantity           int64      `gorm:"not null"`
	UnitPrice          int64      `gorm:"not null"`
	UsageMeterID       *uuid.UUID `gorm:"type:uuid"`
	UsageEventsPerUnit *int64
	Livemode           bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingPeriodItemModel) TableName() string { return "billing_period_items" }

// ToDomain converts the persistence model to a domain BillingPeriodItem
func (m *BillingPeriodItemModel) ToDomain() billing.BillingPeriodItem {
	return billing.BillingPeriodItem{
		BaseEntity:         m.BaseModel.ToDomain(),
		BillingPeriodID:    m.BillingPeriodID,
		Name:               m.Name,
		Type:               billing.BillingPeriodItemType(m.Type),
		Quantity:           m.Quantity,
		UnitPrice:          m.UnitPrice,
		UsageMeterID:       m.UsageMeterID,
		UsageEventsPerUnit: m.UsageEventsPerUnit,
		Livemode:           m.Livemode,
	}
}

// FromDomain populates the persistence model from a domain BillingPeriodItem
func (m *BillingPeriodItemModel) FromDomain(i *billing.BillingPeriodItem) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.BillingPeriodID = i.BillingPeriodID
	m.Name = i.Name
	m.Type = string(i.Type)
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.UsageMeterID = i.UsageMeterID
	m.UsageEventsPerUnit = i.UsageEventsPerUnit
	m.Livemode = i.Livemode
}
