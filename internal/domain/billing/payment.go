package billing

import (
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents one processor charge outcome
type PaymentStatus string

const (
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusProcessing, PaymentStatusCanceled,
		PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// PaymentMethod is the payment-method type used for a charge
type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodLink          PaymentMethod = "link"
	PaymentMethodUSBankAccount PaymentMethod = "us_bank_account"
	PaymentMethodSEPADebit     PaymentMethod = "sepa_debit"
)

// Payment represents one processor charge outcome. ProcessorChargeID
// is the reconciliation idempotency key: every payment has at most one
// originating charge id, and a charge id maps to at most one payment.
type Payment struct {
	shared.BaseEntity
	OrganizationID    uuid.UUID
	CustomerID        uuid.UUID
	InvoiceID         uuid.UUID
	PurchaseID        *uuid.UUID
	Amount            int64
	RefundedAmount    int64
	Refunded          bool
	Currency          valueobject.Currency
	Status            PaymentStatus
	ChargeDate        time.Time
	ProcessorChargeID string
	PaymentMethod     PaymentMethod
	Livemode          bool
}

// EffectiveAmount is the payment's contribution toward settling its
// invoice: the charged amount net of refunds, never negative. A fully
// refunded payment contributes 0.
func (p *Payment) EffectiveAmount() int64 {
	if p.Refunded {
		return 0
	}
	effective := p.Amount - p.RefundedAmount
	if effective < 0 {
		return 0
	}
	return effective
}
