package handler

import (
	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookkeepingHandler exposes customer, pricing model and invoice
// bookkeeping endpoints.
type BookkeepingHandler struct {
	BaseHandler
	service *billingapp.BookkeepingService
}

// NewBookkeepingHandler creates a new BookkeepingHandler
func NewBookkeepingHandler(service *billingapp.BookkeepingService) *BookkeepingHandler {
	return &BookkeepingHandler{service: service}
}

// RegisterRoutes registers bookkeeping routes
func (h *BookkeepingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/customers", h.CreateCustomer)
	rg.POST("/pricing-models", h.CreatePricingModel)
	rg.PUT("/invoices/:id", h.UpdateInvoice)
}

// CreateCustomer creates a customer under the authenticated
// organization and reports the auto-subscription outcome.
func (h *BookkeepingHandler) CreateCustomer(c *gin.Context) {
	auth, ok := getAuthContext(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.CreateCustomer(c.Request.Context(), req.ToPayload(), auth)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := CreateCustomerResponse{
		Customer: NewCustomerResponse(outcome.Value.Customer),
	}
	if outcome.Value.Subscription != nil {
		sub := NewSubscriptionResponse(outcome.Value.Subscription)
		resp.Subscription = &sub
	}
	h.Created(c, resp)
}

// CreatePricingModel creates a pricing model with its free default plan
func (h *BookkeepingHandler) CreatePricingModel(c *gin.Context) {
	auth, ok := getAuthContext(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreatePricingModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreatePricingModel(c.Request.Context(), req.ToPayload(), auth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NewPricingModelResponse(result))
}

// UpdateInvoice reconciles an invoice and its line items against the
// submitted replacement view.
func (h *BookkeepingHandler) UpdateInvoice(c *gin.Context) {
	auth, ok := getAuthContext(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid invoice id")
		return
	}
	invoiceID := uuid.MustParse(idReq.ID)

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.service.UpdateInvoice(c.Request.Context(), invoiceID, req.ToPayload(), auth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewInvoiceResponse(invoice))
}
