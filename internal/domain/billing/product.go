package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Product is a sellable item under a pricing model. The default,
// active product of an organization's default pricing model is the one
// used for auto-subscription at customer creation.
type Product struct {
	shared.BaseEntity
	PricingModelID uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Slug           string
	Description    string
	Default        bool
	Active         bool
	Livemode       bool
}

// NewProduct creates an active product under a pricing model
func NewProduct(pricingModelID, organizationID uuid.UUID, name, slug string, isDefault, livemode bool) *Product {
	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		PricingModelID: pricingModelID,
		OrganizationID: organizationID,
		Name:           name,
		Slug:           slug,
		Default:        isDefault,
		Active:         true,
		Livemode:       livemode,
	}
}
