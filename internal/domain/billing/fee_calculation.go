package billing

import (
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeCalculationType tags what a fee calculation belongs to
type FeeCalculationType string

const (
	FeeCalculationTypeCheckoutSessionPayment FeeCalculationType = "checkout_session_payment"
	FeeCalculationTypeSubscriptionPayment    FeeCalculationType = "subscription_payment_period"
)

// NoTaxCalculationPrefix marks synthetic tax calculation ids recorded
// when the tax collaborator was skipped for a zero discount-inclusive
// amount. The id stays opaque to downstream consumers; the prefix only
// lets re-finalization tell "tax skipped" from "tax missing".
const NoTaxCalculationPrefix = "notaxoverride_"

// NewNoTaxCalculationID builds a synthetic tax calculation id
func NewNoTaxCalculationID() string {
	return NoTaxCalculationPrefix + uuid.NewString()
}

// FeeCalculation is a computed, versioned snapshot of the monetary
// components for one checkout session or one billing period. It is
// re-created, never mutated, whenever a fee-relevant input changes;
// the latest row for a session/period is authoritative. The only
// in-place update is finalization, which runs after the pre-tax
// numbers are fixed.
type FeeCalculation struct {
	shared.BaseEntity
	OrganizationID             uuid.UUID
	Type                       FeeCalculationType
	CheckoutSessionID          *uuid.UUID
	BillingPeriodID            *uuid.UUID
	PurchaseID                 *uuid.UUID
	PriceID                    *uuid.UUID
	DiscountID                 *uuid.UUID
	Currency                   valueobject.Currency
	BaseAmount                 int64
	DiscountAmountFixed        int64
	PretaxTotal                int64
	PlatformFeePercentage      decimal.Decimal
	InternationalFeePercentage decimal.Decimal
	PaymentMethodFeeFixed      int64
	TaxAmountFixed             int64
	TaxCalculationID           string
	PaymentMethodType          PaymentMethod
	BillingAddress             valueobject.BillingAddress
	InternalNotes              string
	Livemode                   bool
}

// DiscountInclusiveAmount is the base amount net of the (clamped)
// discount, never negative.
func (f *FeeCalculation) DiscountInclusiveAmount() int64 {
	discount := f.DiscountAmountFixed
	if discount < 0 {
		discount = 0
	}
	amount := f.BaseAmount - discount
	if amount < 0 {
		return 0
	}
	return amount
}

// AppendInternalNote appends an audit note to InternalNotes. Append,
// never overwrite: finalization history must stay readable.
func (f *FeeCalculation) AppendInternalNote(note string) {
	stamped := fmt.Sprintf("%s (%s)", note, time.Now().UTC().Format(time.RFC3339))
	if f.InternalNotes == "" {
		f.InternalNotes = stamped
		return
	}
	f.InternalNotes = f.InternalNotes + "; " + stamped
}

// FeeInputsChanged reports whether a fee-relevant input differs from
// another calculation's: price, billing address jurisdiction, discount
// or payment method. Used to decide between reusing the latest
// calculation and creating a new one.
func (f *FeeCalculation) FeeInputsChanged(priceID *uuid.UUID, address valueobject.BillingAddress, discountID *uuid.UUID, method PaymentMethod) bool {
	if !uuidPtrEqual(f.PriceID, priceID) {
		return true
	}
	if !f.BillingAddress.SameTaxJurisdiction(address) {
		return true
	}
	if !uuidPtrEqual(f.DiscountID, discountID) {
		return true
	}
	return f.PaymentMethodType != method
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
