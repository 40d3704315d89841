package handler

import (
	"time"

	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// CreateCustomerRequest is the request body for customer creation
type CreateCustomerRequest struct {
	OrganizationID      string  `json:"organization_id" binding:"omitempty,uuid"`
	Email               string  `json:"email" binding:"required,email"`
	Name                string  `json:"name" binding:"required,max=255"`
	ExternalID          string  `json:"external_id" binding:"max=255"`
	PricingModelID      *string `json:"pricing_model_id" binding:"omitempty,uuid"`
	ProcessorCustomerID *string `json:"processor_customer_id"`
}

// ToPayload converts the request to the application payload
func (r *CreateCustomerRequest) ToPayload() billingapp.CustomerPayload {
	payload := billingapp.CustomerPayload{
		Email:               r.Email,
		Name:                r.Name,
		ExternalID:          r.ExternalID,
		ProcessorCustomerID: r.ProcessorCustomerID,
	}
	if r.OrganizationID != "" {
		payload.OrganizationID = uuid.MustParse(r.OrganizationID)
	}
	if r.PricingModelID != nil {
		id := uuid.MustParse(*r.PricingModelID)
		payload.PricingModelID = &id
	}
	return payload
}

// CustomerResponse is the customer representation returned by the API
type CustomerResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrganizationID      uuid.UUID  `json:"organization_id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	ExternalID          string     `json:"external_id,omitempty"`
	ProcessorCustomerID *string    `json:"processor_customer_id,omitempty"`
	PricingModelID      *uuid.UUID `json:"pricing_model_id,omitempty"`
	Livemode            bool       `json:"livemode"`
	CreatedAt           time.Time  `json:"created_at"`
}

// NewCustomerResponse converts a domain customer to its API shape
func NewCustomerResponse(c *billing.Customer) CustomerResponse {
	return CustomerResponse{
		ID:                  c.ID,
		OrganizationID:      c.OrganizationID,
		Email:               c.Email,
		Name:                c.Name,
		ExternalID:          c.ExternalID,
		ProcessorCustomerID: c.ProcessorCustomerID,
		PricingModelID:      c.PricingModelID,
		Livemode:            c.Livemode,
		CreatedAt:           c.CreatedAt,
	}
}

// SubscriptionResponse is the subscription representation returned by
// the API.
type SubscriptionResponse struct {
	ID                        uuid.UUID  `json:"id"`
	CustomerID                uuid.UUID  `json:"customer_id"`
	PriceID                   uuid.UUID  `json:"price_id"`
	Name                      string     `json:"name"`
	Status                    string     `json:"status"`
	Renews                    bool       `json:"renews"`
	TrialEnd                  *time.Time `json:"trial_end,omitempty"`
	CurrentBillingPeriodStart *time.Time `json:"current_billing_period_start,omitempty"`
	CurrentBillingPeriodEnd   *time.Time `json:"current_billing_period_end,omitempty"`
}

// NewSubscriptionResponse converts a domain subscription to its API shape
func NewSubscriptionResponse(s *billing.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                        s.ID,
		CustomerID:                s.CustomerID,
		PriceID:                   s.PriceID,
		Name:                      s.Name,
		Status:                    string(s.Status),
		Renews:                    s.Renews,
		TrialEnd:                  s.TrialEnd,
		CurrentBillingPeriodStart: s.CurrentBillingPeriodStart,
		CurrentBillingPeriodEnd:   s.CurrentBillingPeriodEnd,
	}
}

// CreateCustomerResponse bundles the created customer with the
// auto-subscription outcome when one was provisioned.
type CreateCustomerResponse struct {
	Customer     CustomerResponse      `json:"customer"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
}

// CreatePricingModelRequest is the request body for pricing model creation
type CreatePricingModelRequest struct {
	Name                    string  `json:"name" binding:"required,max=255"`
	IsDefault               bool    `json:"is_default"`
	DefaultPlanIntervalUnit *string `json:"default_plan_interval_unit" binding:"omitempty,oneof=day week month year"`
}

// ToPayload converts the request to the application payload
func (r *CreatePricingModelRequest) ToPayload() billingapp.PricingModelPayload {
	payload := billingapp.PricingModelPayload{
		Name:      r.Name,
		IsDefault: r.IsDefault,
	}
	if r.DefaultPlanIntervalUnit != nil {
		unit := billing.IntervalUnit(*r.DefaultPlanIntervalUnit)
		payload.DefaultPlanIntervalUnit = &unit
	}
	return payload
}

// PricingModelResponse is the pricing model representation returned by
// the API, including the free default plan created alongside it.
type PricingModelResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Name           string     `json:"name"`
	IsDefault      bool       `json:"is_default"`
	Livemode       bool       `json:"livemode"`
	ProductID      *uuid.UUID `json:"default_product_id,omitempty"`
	PriceID        *uuid.UUID `json:"default_price_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewPricingModelResponse converts the creation result to its API shape
func NewPricingModelResponse(result *billingapp.PricingModelCreationResult) PricingModelResponse {
	resp := PricingModelResponse{
		ID:             result.PricingModel.ID,
		OrganizationID: result.PricingModel.OrganizationID,
		Name:           result.PricingModel.Name,
		IsDefault:      result.PricingModel.IsDefault,
		Livemode:       result.PricingModel.Livemode,
		CreatedAt:      result.PricingModel.CreatedAt,
	}
	if result.DefaultProduct != nil {
		resp.ProductID = &result.DefaultProduct.ID
	}
	if result.DefaultPrice != nil {
		resp.PriceID = &result.DefaultPrice.ID
	}
	return resp
}

// UpdateInvoiceRequest carries a full replacement view of an invoice
// and its line items. Line items without an id are created; persisted
// line items missing from the list are deleted.
type UpdateInvoiceRequest struct {
	Invoice   InvoiceFields           `json:"invoice" binding:"required"`
	LineItems []InvoiceLineItemFields `json:"line_items" binding:"dive"`
}

// InvoiceFields is the mutable invoice surface of an update
type InvoiceFields struct {
	ID            string `json:"id" binding:"required,uuid"`
	Status        string `json:"status" binding:"omitempty,oneof=draft open awaiting_payment_confirmation paid uncollectible void"`
	InvoiceNumber string `json:"invoice_number" binding:"max=64"`
}

// InvoiceLineItemFields is one line item in an invoice update
type InvoiceLineItemFields struct {
	ID          *string `json:"id" binding:"omitempty,uuid"`
	PriceID     *string `json:"price_id" binding:"omitempty,uuid"`
	Description string  `json:"description" binding:"required,max=500"`
	Quantity    int64   `json:"quantity" binding:"required,min=1"`
	Price       int64   `json:"price" binding:"min=0"`
}

// ToPayload converts the request to the application payload
func (r *UpdateInvoiceRequest) ToPayload() billingapp.InvoiceUpdatePayload {
	payload := billingapp.InvoiceUpdatePayload{
		Invoice: billing.Invoice{
			Status:        billing.InvoiceStatus(r.Invoice.Status),
			InvoiceNumber: r.Invoice.InvoiceNumber,
		},
	}
	payload.Invoice.ID = uuid.MustParse(r.Invoice.ID)

	for _, item := range r.LineItems {
		lineItem := billing.InvoiceLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
		if item.ID != nil {
			lineItem.ID = uuid.MustParse(*item.ID)
		}
		if item.PriceID != nil {
			priceID := uuid.MustParse(*item.PriceID)
			lineItem.PriceID = &priceID
		}
		payload.LineItems = append(payload.LineItems, lineItem)
	}
	return payload
}

// InvoiceResponse is the invoice representation returned by the API
type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Status        string    `json:"status"`
	Currency      string    `json:"currency"`
	Livemode      bool      `json:"livemode"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewInvoiceResponse converts a domain invoice to its API shape
func NewInvoiceResponse(i *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            i.ID,
		CustomerID:    i.CustomerID,
		InvoiceNumber: i.InvoiceNumber,
		Status:        string(i.Status),
		Currency:      string(i.Currency),
		Livemode:      i.Livemode,
		UpdatedAt:     i.UpdatedAt,
	}
}
