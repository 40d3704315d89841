package handler

import (
	"errors"
	"net/http"

	billingapp "github.com/flowbill/backend/internal/application/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/interfaces/http/dto"
	"github.com/flowbill/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getAuthContext builds the authenticated organization scope from the
// JWT claims the middleware stored.
func getAuthContext(c *gin.Context) (billingapp.AuthContext, bool) {
	organizationID, ok := middleware.GetOrganizationID(c)
	if !ok {
		return billingapp.AuthContext{}, false
	}
	return billingapp.AuthContext{
		OrganizationID: organizationID,
		Livemode:       middleware.GetLivemode(c),
	}, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// applicationErrorStatus maps well-known application errors onto HTTP
// semantics. Unmapped errors fall through to 500.
var applicationErrorStatus = []struct {
	err    error
	status int
	code   string
}{
	{billingapp.ErrCheckoutSessionNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
	{billingapp.ErrCheckoutSessionNotOpen, http.StatusUnprocessableEntity, "INVALID_STATE"},
	{billingapp.ErrPurchaseNotPending, http.StatusUnprocessableEntity, "INVALID_STATE"},
	{billingapp.ErrMissingFeeCalculation, http.StatusUnprocessableEntity, "INVALID_STATE"},
	{billingapp.ErrInvoiceIDMismatch, http.StatusBadRequest, dto.ErrCodeBadRequest},
	{billingapp.ErrCustomerOrganizationMismatch, http.StatusBadRequest, dto.ErrCodeBadRequest},
	{billingapp.ErrUsageMeterSlugTaken, http.StatusConflict, dto.ErrCodeConflict},
	{billingapp.ErrUsagePriceSlugTaken, http.StatusConflict, dto.ErrCodeConflict},
	{billingapp.ErrUnsupportedGranularity, http.StatusBadRequest, dto.ErrCodeBadRequest},
	{billingapp.ErrInvalidDateRange, http.StatusBadRequest, dto.ErrCodeBadRequest},
}

// HandleError converts domain and application errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		statusCode := dto.GetHTTPStatus(domainErr.Code)
		h.Error(c, statusCode, domainErr.Code, domainErr.Message)
		return
	}

	for _, mapping := range applicationErrorStatus {
		if errors.Is(err, mapping.err) {
			h.Error(c, mapping.status, mapping.code, mapping.err.Error())
			return
		}
	}

	h.InternalError(c, "An unexpected error occurred")
}
