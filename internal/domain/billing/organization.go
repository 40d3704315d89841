package billing

import (
	"fmt"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ContractType determines how the platform contracts with the payment
// processor on behalf of the organization. MerchantOfRecord means the
// platform owns the tax obligation and tax is calculated at checkout;
// Platform means the organization settles tax itself and tax
// calculation is skipped unconditionally.
type ContractType string

const (
	ContractTypePlatform         ContractType = "platform"
	ContractTypeMerchantOfRecord ContractType = "merchant_of_record"
)

// IsValid checks if the contract type is valid
func (t ContractType) IsValid() bool {
	return t == ContractTypePlatform || t == ContractTypeMerchantOfRecord
}

// Organization is the processor account identity all billing entities
// hang off.
type Organization struct {
	shared.BaseEntity
	Name               string
	CountryCode        valueobject.CountryCode
	DefaultCurrency    valueobject.Currency
	ContractType       ContractType
	ProcessorAccountID string
	// FeePercentage is the configured platform fee, stored as a decimal
	// string (e.g. "0.65" = 0.65%).
	FeePercentage string
	// MonthlyFreeTier is the fee-free processed volume per calendar
	// month, in minor currency units.
	MonthlyFreeTier int64
}

// FeePercentageValue parses the stored fee percentage string
func (o *Organization) FeePercentageValue() (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(o.FeePercentage)
	if err != nil {
		return decimal.Zero, fmt.Errorf("organization %s has invalid fee percentage %q: %w", o.ID, o.FeePercentage, err)
	}
	return pct, nil
}

// IsMerchantOfRecord reports whether tax is calculated for this organization
func (o *Organization) IsMerchantOfRecord() bool {
	return o.ContractType == ContractTypeMerchantOfRecord
}
