package billing

import (
	"time"

	"github.com/flowbill/backend/internal/domain/shared/valueobject"
)

// ChargeStatus is the processor-side outcome of a charge
type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusFailed    ChargeStatus = "failed"
)

// PaymentStatusFromChargeStatus maps a processor charge outcome onto
// the payment lifecycle.
func PaymentStatusFromChargeStatus(status ChargeStatus) PaymentStatus {
	switch status {
	case ChargeStatusSucceeded:
		return PaymentStatusSucceeded
	case ChargeStatusPending:
		return PaymentStatusProcessing
	default:
		return PaymentStatusFailed
	}
}

// ProcessorCharge is the processor-neutral shape of a charge callback
// consumed by the checkout session reconciler. The payment processor
// adapter maps its SDK types into this.
type ProcessorCharge struct {
	ID                   string
	Status               ChargeStatus
	Amount               int64
	RefundedAmount       int64
	Refunded             bool
	Currency             valueobject.Currency
	ProcessorCustomerID  string
	PaymentIntentID      string
	PaymentMethod        PaymentMethod
	PaymentMethodCountry string
	BillingName          string
	BillingEmail         string
	ChargeDate           time.Time
	Livemode             bool
}

// ProcessorSetupIntent is the processor-neutral shape of a setup
// intent callback. Setup intents carry no charge; they confirm a
// payment method for sessions with nothing due today (trials,
// zero-amount checkouts).
type ProcessorSetupIntent struct {
	ID                  string
	Succeeded           bool
	ProcessorCustomerID string
	PaymentMethod       PaymentMethod
	Livemode            bool
}
