package handler

import (
	"time"

	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RevenueHandler exposes revenue aggregation endpoints
type RevenueHandler struct {
	BaseHandler
	service *billingapp.RevenueService
}

// NewRevenueHandler creates a new RevenueHandler
func NewRevenueHandler(service *billingapp.RevenueService) *RevenueHandler {
	return &RevenueHandler{service: service}
}

// RegisterRoutes registers revenue routes
func (h *RevenueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/revenue/mrr", h.CalculateMRR)
}

// MRRRequest carries the aggregation window as query parameters
type MRRRequest struct {
	StartDate   string `form:"start_date" binding:"required"`
	EndDate     string `form:"end_date" binding:"required"`
	Granularity string `form:"granularity" binding:"omitempty,oneof=month"`
	ProductID   string `form:"product_id" binding:"omitempty,uuid"`
}

// CalculateMRR returns the per-month recurring revenue series over the
// requested window.
func (h *RevenueHandler) CalculateMRR(c *gin.Context) {
	auth, ok := getAuthContext(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req MRRRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		h.BadRequest(c, "start_date must be RFC 3339")
		return
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		h.BadRequest(c, "end_date must be RFC 3339")
		return
	}

	params := billingapp.MRRCalculationParams{
		StartDate:   startDate,
		EndDate:     endDate,
		Granularity: billingapp.RevenueGranularity(req.Granularity),
	}
	if req.ProductID != "" {
		productID := uuid.MustParse(req.ProductID)
		params.ProductID = &productID
	}

	buckets, err := h.service.CalculateMRRByMonth(c.Request.Context(), auth.OrganizationID, params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, buckets)
}
