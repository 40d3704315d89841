package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PricingModel groups the products and prices a customer can buy.
// At most one pricing model is the default per (organization,
// livemode) pair; the repository's SafeInsert enforces the invariant
// by demoting any prior default inside the same transaction.
type PricingModel struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Name           string
	IsDefault      bool
	Livemode       bool
}

// NewPricingModel creates a pricing model for an organization
func NewPricingModel(organizationID uuid.UUID, name string, isDefault, livemode bool) *PricingModel {
	return &PricingModel{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Name:           name,
		IsDefault:      isDefault,
		Livemode:       livemode,
	}
}
