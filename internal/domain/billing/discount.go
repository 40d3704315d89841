package billing

import (
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DiscountAmountType distinguishes fixed-amount from percentage discounts
type DiscountAmountType string

const (
	DiscountAmountTypeFixed   DiscountAmountType = "fixed"
	DiscountAmountTypePercent DiscountAmountType = "percent"
)

// IsValid checks if the amount type is valid
func (t DiscountAmountType) IsValid() bool {
	return t == DiscountAmountTypeFixed || t == DiscountAmountTypePercent
}

// Discount is a reusable price reduction. Fixed amounts are in minor
// currency units; percent amounts are whole percentage points and are
// clamped to 100 at calculation time.
type Discount struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Name           string
	Code           string
	AmountType     DiscountAmountType
	Amount         int64
	Active         bool
	Livemode       bool
}

// DiscountRedemption snapshots a discount's terms against one purchase
// or subscription at time of use. Later edits to the Discount record
// never affect an existing redemption.
type DiscountRedemption struct {
	shared.BaseEntity
	DiscountID     uuid.UUID
	PurchaseID     *uuid.UUID
	SubscriptionID *uuid.UUID
	DiscountName   string
	DiscountCode   string
	AmountType     DiscountAmountType
	Amount         int64
	FullyRedeemed  bool
	Livemode       bool
}

// NewDiscountRedemption snapshots the discount for a purchase
func NewDiscountRedemption(discount *Discount, purchaseID uuid.UUID, livemode bool) *DiscountRedemption {
	return &DiscountRedemption{
		BaseEntity:   shared.NewBaseEntity(),
		DiscountID:   discount.ID,
		PurchaseID:   &purchaseID,
		DiscountName: discount.Name,
		DiscountCode: discount.Code,
		AmountType:   discount.AmountType,
		Amount:       discount.Amount,
		Livemode:     livemode,
	}
}

// AsDiscount reprojects the snapshot as a Discount for fee math
func (r *DiscountRedemption) AsDiscount() *Discount {
	return &Discount{
		BaseEntity: shared.BaseEntity{ID: r.DiscountID},
		Name:       r.DiscountName,
		Code:       r.DiscountCode,
		AmountType: r.AmountType,
		Amount:     r.Amount,
	}
}
