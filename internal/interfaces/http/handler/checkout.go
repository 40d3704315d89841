package handler

import (
	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/flowbill/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler exposes checkout session editing endpoints
type CheckoutHandler struct {
	BaseHandler
	service *billingapp.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(service *billingapp.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RegisterRoutes registers checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/checkout-sessions/:id", h.EditCheckoutSession)
	rg.PUT("/checkout-sessions/:id/billing-address", h.EditBillingAddress)
}

// BillingAddressFields is the address shape accepted by the API
type BillingAddressFields struct {
	Line1      string `json:"line1" binding:"required,max=255"`
	Line2      string `json:"line2" binding:"max=255"`
	City       string `json:"city" binding:"max=255"`
	State      string `json:"state" binding:"max=64"`
	PostalCode string `json:"postal_code" binding:"max=32"`
	Country    string `json:"country" binding:"required,len=2"`
}

func (f *BillingAddressFields) toDomain() (valueobject.BillingAddress, error) {
	return valueobject.NewBillingAddress(f.Line1, f.Line2, f.City, f.State, f.PostalCode, f.Country)
}

// EditCheckoutSessionRequest is a field-level patch on an open session
type EditCheckoutSessionRequest struct {
	PriceID           *string               `json:"price_id" binding:"omitempty,uuid"`
	Quantity          *int64                `json:"quantity" binding:"omitempty,min=1"`
	CustomerEmail     *string               `json:"customer_email" binding:"omitempty,email"`
	CustomerName      *string               `json:"customer_name" binding:"omitempty,max=255"`
	BillingAddress    *BillingAddressFields `json:"billing_address"`
	PaymentMethodType *string               `json:"payment_method_type" binding:"omitempty,oneof=card link us_bank_account sepa_debit"`
	DiscountID        *string               `json:"discount_id" binding:"omitempty,uuid"`
	ClearDiscount     bool                  `json:"clear_discount"`
	SuccessURL        *string               `json:"success_url" binding:"omitempty,url"`
	CancelURL         *string               `json:"cancel_url" binding:"omitempty,url"`
	PurchaseID        *string               `json:"purchase_id" binding:"omitempty,uuid"`
}

// CheckoutSessionResponse is the session representation returned by the API
type CheckoutSessionResponse struct {
	ID                uuid.UUID  `json:"id"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	CustomerID        *uuid.UUID `json:"customer_id,omitempty"`
	PurchaseID        *uuid.UUID `json:"purchase_id,omitempty"`
	PriceID           *uuid.UUID `json:"price_id,omitempty"`
	Quantity          int64      `json:"quantity"`
	CustomerName      *string    `json:"customer_name,omitempty"`
	CustomerEmail     *string    `json:"customer_email,omitempty"`
	PaymentMethodType *string    `json:"payment_method_type,omitempty"`
	DiscountID        *uuid.UUID `json:"discount_id,omitempty"`
	Livemode          bool       `json:"livemode"`
}

// NewCheckoutSessionResponse converts a domain session to its API shape
func NewCheckoutSessionResponse(s *billing.CheckoutSession) CheckoutSessionResponse {
	resp := CheckoutSessionResponse{
		ID:            s.ID,
		Type:          string(s.Type),
		Status:        string(s.Status),
		CustomerID:    s.CustomerID,
		PurchaseID:    s.PurchaseID,
		PriceID:       s.PriceID,
		Quantity:      s.Quantity,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		DiscountID:    s.DiscountID,
		Livemode:      s.Livemode,
	}
	if s.PaymentMethodType != nil {
		method := string(*s.PaymentMethodType)
		resp.PaymentMethodType = &method
	}
	return resp
}

// FeeCalculationResponse is the fee breakdown returned alongside an
// edited session.
type FeeCalculationResponse struct {
	ID             uuid.UUID `json:"id"`
	BaseAmount     int64     `json:"base_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	TaxAmount      int64     `json:"tax_amount"`
	TotalDue       int64     `json:"total_due"`
	Currency       string    `json:"currency"`
}

// NewFeeCalculationResponse converts a fee calculation to its API shape
func NewFeeCalculationResponse(fc *billing.FeeCalculation) FeeCalculationResponse {
	return FeeCalculationResponse{
		ID:             fc.ID,
		BaseAmount:     fc.BaseAmount,
		DiscountAmount: fc.DiscountAmountFixed,
		TaxAmount:      fc.TaxAmountFixed,
		TotalDue:       billing.CalculateTotalDueAmount(fc),
		Currency:       string(fc.Currency),
	}
}

// EditCheckoutSessionResponse bundles the edited session with its
// refreshed fee calculation.
type EditCheckoutSessionResponse struct {
	Session        CheckoutSessionResponse `json:"session"`
	FeeCalculation *FeeCalculationResponse `json:"fee_calculation,omitempty"`
}

func newEditResponse(result *billingapp.EditCheckoutSessionResult) EditCheckoutSessionResponse {
	resp := EditCheckoutSessionResponse{
		Session: NewCheckoutSessionResponse(result.Session),
	}
	if result.FeeCalculation != nil {
		fee := NewFeeCalculationResponse(result.FeeCalculation)
		resp.FeeCalculation = &fee
	}
	return resp
}

// EditCheckoutSession merges a field-level patch into an open session
// and refreshes its fee calculation.
func (h *CheckoutHandler) EditCheckoutSession(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid checkout session id")
		return
	}

	var req EditCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	edit := billing.CheckoutSessionEdit{
		Quantity:      req.Quantity,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		ClearDiscount: req.ClearDiscount,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	}
	if req.PriceID != nil {
		id := uuid.MustParse(*req.PriceID)
		edit.PriceID = &id
	}
	if req.DiscountID != nil {
		id := uuid.MustParse(*req.DiscountID)
		edit.DiscountID = &id
	}
	if req.PaymentMethodType != nil {
		method := billing.PaymentMethod(*req.PaymentMethodType)
		edit.PaymentMethodType = &method
	}
	if req.BillingAddress != nil {
		address, err := req.BillingAddress.toDomain()
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		edit.BillingAddress = &address
	}

	params := billingapp.EditCheckoutSessionParams{
		CheckoutSessionID: uuid.MustParse(idReq.ID),
		Edit:              edit,
	}
	if req.PurchaseID != nil {
		id := uuid.MustParse(*req.PurchaseID)
		params.PurchaseID = &id
	}

	result, err := h.service.EditCheckoutSession(c.Request.Context(), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newEditResponse(result))
}

// EditBillingAddress sets the session's billing address, refreshing
// the fee calculation when the tax jurisdiction changed.
func (h *CheckoutHandler) EditBillingAddress(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid checkout session id")
		return
	}

	var req BillingAddressFields
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	address, err := req.toDomain()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.EditCheckoutSessionBillingAddress(c.Request.Context(), uuid.MustParse(idReq.ID), address)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newEditResponse(result))
}
