package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer belongs to one organization. ProcessorCustomerID links the
// customer to the external payment processor; a customer created
// without one gets it provisioned during bookkeeping.
// PricingModelID is optional and defaults to the organization's
// default pricing model for the customer's livemode when unset.
type Customer struct {
	shared.BaseEntity
	OrganizationID      uuid.UUID
	Email               string
	Name                string
	ExternalID          string
	ProcessorCustomerID *string
	PricingModelID      *uuid.UUID
	Livemode            bool
}

// HasProcessorCustomer reports whether a processor-side customer exists
func (c *Customer) HasProcessorCustomer() bool {
	return c.ProcessorCustomerID != nil && *c.ProcessorCustomerID != ""
}

// SetProcessorCustomerID links the customer to its processor identity
func (c *Customer) SetProcessorCustomerID(id string) {
	c.ProcessorCustomerID = &id
}
