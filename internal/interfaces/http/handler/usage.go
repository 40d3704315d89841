package handler

import (
	"time"

	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UsageHandler exposes usage metering setup endpoints
type UsageHandler struct {
	BaseHandler
	service *billingapp.UsageService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(service *billingapp.UsageService) *UsageHandler {
	return &UsageHandler{service: service}
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage-meters", h.CreateUsageMeter)
}

// UsagePriceRequest describes the billable usage price created with a meter
type UsagePriceRequest struct {
	Name               string `json:"name" binding:"required,max=255"`
	UnitPrice          int64  `json:"unit_price" binding:"min=0"`
	UsageEventsPerUnit int64  `json:"usage_events_per_unit" binding:"omitempty,min=1"`
}

// CreateUsageMeterRequest is the request body for usage meter creation
type CreateUsageMeterRequest struct {
	PricingModelID  string             `json:"pricing_model_id" binding:"required,uuid"`
	Name            string             `json:"name" binding:"required,max=255"`
	Slug            string             `json:"slug" binding:"required,max=128"`
	AggregationType string             `json:"aggregation_type" binding:"omitempty,oneof=sum count_distinct_properties last_during_period maximum_during_period"`
	Price           *UsagePriceRequest `json:"price"`
}

// UsagePriceResponse is a usage price in the API response
type UsagePriceResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	UnitPrice          int64     `json:"unit_price"`
	UsageEventsPerUnit *int64    `json:"usage_events_per_unit,omitempty"`
	IsDefault          bool      `json:"is_default"`
}

func newUsagePriceResponse(p *billing.Price) *UsagePriceResponse {
	if p == nil {
		return nil
	}
	return &UsagePriceResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		UnitPrice:          p.UnitPrice,
		UsageEventsPerUnit: p.UsageEventsPerUnit,
		IsDefault:          p.IsDefault,
	}
}

// CreateUsageMeterResponse is the meter plus the prices created with it
type CreateUsageMeterResponse struct {
	ID              uuid.UUID           `json:"id"`
	PricingModelID  uuid.UUID           `json:"pricing_model_id"`
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	AggregationType string              `json:"aggregation_type"`
	Livemode        bool                `json:"livemode"`
	CreatedAt       time.Time           `json:"created_at"`
	NoChargePrice   *UsagePriceResponse `json:"no_charge_price,omitempty"`
	Price           *UsagePriceResponse `json:"price,omitempty"`
}

// CreateUsageMeter creates a usage meter with its shadow no-charge
// price and, when requested, a billable price.
func (h *UsageHandler) CreateUsageMeter(c *gin.Context) {
	auth, ok := getAuthContext(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateUsageMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payload := billingapp.UsageMeterPayload{
		PricingModelID:  uuid.MustParse(req.PricingModelID),
		Name:            req.Name,
		Slug:            req.Slug,
		AggregationType: billing.UsageMeterAggregationType(req.AggregationType),
	}
	if req.Price != nil {
		eventsPerUnit := req.Price.UsageEventsPerUnit
		if eventsPerUnit == 0 {
			eventsPerUnit = 1
		}
		payload.Price = &billingapp.UsagePriceFields{
			Name:               req.Price.Name,
			UnitPrice:          req.Price.UnitPrice,
			UsageEventsPerUnit: eventsPerUnit,
		}
	}

	result, err := h.service.CreateUsageMeter(c.Request.Context(), payload, auth)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, CreateUsageMeterResponse{
		ID:              result.Meter.ID,
		PricingModelID:  result.Meter.PricingModelID,
		Name:            result.Meter.Name,
		Slug:            result.Meter.Slug,
		AggregationType: string(result.Meter.AggregationType),
		Livemode:        result.Meter.Livemode,
		CreatedAt:       result.Meter.CreatedAt,
		NoChargePrice:   newUsagePriceResponse(result.NoChargePrice),
		Price:           newUsagePriceResponse(result.Price),
	})
}
