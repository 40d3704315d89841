package billing

import (
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Payment-method fee schedule, in percentage points and minor units.
var (
	cardFeePercentage        = decimal.NewFromFloat(2.9)
	bankDebitFeePercentage   = decimal.NewFromFloat(0.8)
	internationalFeeBase     = decimal.NewFromFloat(1.5)
	cardCrossBorderSurcharge = decimal.NewFromFloat(1.5)
)

const (
	cardFeeFixed         int64 = 30
	usBankAccountFeeCap  int64 = 500
	sepaDebitFeeCap      int64 = 600
	percentDiscountLimit int64 = 100
)

// CalculateInvoiceBaseAmount sums price x quantity over the line items
func CalculateInvoiceBaseAmount(lineItems []InvoiceLineItem) int64 {
	var total int64
	for i := range lineItems {
		total += lineItems[i].Price * lineItems[i].Quantity
	}
	return total
}

// CalculateDiscountAmount computes the discount against a base amount.
// Fixed discounts apply verbatim; percent discounts are clamped to
// 100% and rounded to a whole minor unit. A nil discount is 0.
func CalculateDiscountAmount(baseAmount int64, discount *Discount) int64 {
	if discount == nil {
		return 0
	}
	switch discount.AmountType {
	case DiscountAmountTypeFixed:
		return discount.Amount
	case DiscountAmountTypePercent:
		percent := discount.Amount
		if percent > percentDiscountLimit {
			percent = percentDiscountLimit
		}
		return decimal.NewFromInt(baseAmount).
			Mul(decimal.NewFromInt(percent)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	default:
		return 0
	}
}

// CalculatePlatformFeePercentage parses the organization's configured
// fee percentage.
func CalculatePlatformFeePercentage(org *Organization) (decimal.Decimal, error) {
	return org.FeePercentageValue()
}

// CalculateInternationalFeePercentage returns the cross-border fee
// percentage for a charge. Merchant-of-record organizations pay no
// international fee on US payers; same-country charges pay none
// either. Card and SEPA debit carry a cross-border surcharge on top
// of the base rate. An unrecognized payer country is an error, never
// a silent default.
func CalculateInternationalFeePercentage(
	method PaymentMethod,
	paymentMethodCountry valueobject.CountryCode,
	org *Organization,
) (decimal.Decimal, error) {
	if !paymentMethodCountry.IsValid() {
		return decimal.Zero, fmt.Errorf(
			"invalid payment method country %q for organization %s", paymentMethodCountry, org.ID)
	}
	if org.IsMerchantOfRecord() && paymentMethodCountry == "US" {
		return decimal.Zero, nil
	}
	if paymentMethodCountry == org.CountryCode {
		return decimal.Zero, nil
	}
	fee := internationalFeeBase
	if method == PaymentMethodCard || method == PaymentMethodSEPADebit {
		fee = fee.Add(cardCrossBorderSurcharge)
	}
	return fee, nil
}

// CalculatePaymentMethodFeeAmount applies the method-specific fee
// schedule to an amount in minor units. Unknown methods fall back to
// the card schedule. Non-positive amounts carry no fee.
func CalculatePaymentMethodFeeAmount(amount int64, method PaymentMethod) int64 {
	if amount <= 0 {
		return 0
	}
	percentOf := func(pct decimal.Decimal) int64 {
		return decimal.NewFromInt(amount).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	}
	switch method {
	case PaymentMethodUSBankAccount:
		return minInt64(percentOf(bankDebitFeePercentage), usBankAccountFeeCap)
	case PaymentMethodSEPADebit:
		return minInt64(percentOf(bankDebitFeePercentage), sepaDebitFeeCap)
	case PaymentMethodCard, PaymentMethodLink:
		return percentOf(cardFeePercentage) + cardFeeFixed
	default:
		// Unknown methods are charged like cards.
		return percentOf(cardFeePercentage) + cardFeeFixed
	}
}

// CalculateTotalFeeAmount sums every fee component of a calculation:
// platform fee and international fee on the discount-inclusive amount,
// plus the fixed payment-method fee and tax, rounded to a whole minor
// unit. Negative percentage components are rejected rather than
// silently clamped.
func CalculateTotalFeeAmount(fc *FeeCalculation) (int64, error) {
	if fc.PlatformFeePercentage.IsNegative() {
		return 0, fmt.Errorf("fee calculation %s has negative platform fee percentage %s", fc.ID, fc.PlatformFeePercentage)
	}
	if fc.InternationalFeePercentage.IsNegative() {
		return 0, fmt.Errorf("fee calculation %s has negative international fee percentage %s", fc.ID, fc.InternationalFeePercentage)
	}
	discountInclusive := decimal.NewFromInt(fc.DiscountInclusiveAmount())
	platformFee := discountInclusive.Mul(fc.PlatformFeePercentage).Div(decimal.NewFromInt(100))
	internationalFee := discountInclusive.Mul(fc.InternationalFeePercentage).Div(decimal.NewFromInt(100))
	total := platformFee.
		Add(internationalFee).
		Add(decimal.NewFromInt(fc.PaymentMethodFeeFixed)).
		Add(decimal.NewFromInt(fc.TaxAmountFixed)).
		Round(0).
		IntPart()
	return total, nil
}

// CalculateTotalDueAmount is what the customer owes: base minus
// discount plus tax, floored at zero.
func CalculateTotalDueAmount(fc *FeeCalculation) int64 {
	due := fc.DiscountInclusiveAmount() + fc.TaxAmountFixed
	if due < 0 {
		return 0
	}
	return due
}

// NormalizeToMonthlyValue converts a recurring amount to its monthly
// equivalent. Weeks and days use average month lengths (52/12 weeks,
// 365/12 days per month).
func NormalizeToMonthlyValue(amount int64, unit IntervalUnit, intervalCount int) (decimal.Decimal, error) {
	if intervalCount <= 0 {
		return decimal.Zero, fmt.Errorf("interval count must be positive, got %d", intervalCount)
	}
	value := decimal.NewFromInt(amount)
	count := decimal.NewFromInt(int64(intervalCount))
	switch unit {
	case IntervalUnitMonth:
		return value.Div(count), nil
	case IntervalUnitYear:
		return value.Div(decimal.NewFromInt(12).Mul(count)), nil
	case IntervalUnitWeek:
		return value.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12)).Div(count), nil
	case IntervalUnitDay:
		return value.Mul(decimal.NewFromInt(365)).Div(decimal.NewFromInt(12)).Div(count), nil
	default:
		return decimal.Zero, fmt.Errorf("unrecognized interval unit %q", unit)
	}
}

// CalculateOverlapDays returns the inclusive day counts behind a
// period's overlap with [rangeStart, rangeEnd]: the days of the period
// inside the range and the period's total days. Callers that scale an
// amount should multiply by the overlap before dividing by the total;
// dividing first truncates the decimal and loses exactness.
func CalculateOverlapDays(period *BillingPeriod, rangeStart, rangeEnd time.Time) (overlapDays, totalDays int64) {
	overlapStart := maxDate(period.StartDate, rangeStart)
	overlapEnd := minDate(period.EndDate, rangeEnd)
	if overlapEnd.Before(overlapStart) {
		return 0, 0
	}
	overlapDays = differenceInDays(overlapEnd, overlapStart) + 1
	totalDays = differenceInDays(period.EndDate, period.StartDate) + 1
	if overlapDays > totalDays {
		overlapDays = totalDays
	}
	return overlapDays, totalDays
}

// CalculateOverlapPercentage is the fraction of a billing period that
// falls inside [rangeStart, rangeEnd]. Day counts are inclusive of
// both boundary days. Returns 0 when disjoint and 1 when the period
// is fully contained in the range.
func CalculateOverlapPercentage(period *BillingPeriod, rangeStart, rangeEnd time.Time) decimal.Decimal {
	overlapDays, totalDays := CalculateOverlapDays(period, rangeStart, rangeEnd)
	if overlapDays <= 0 || totalDays <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(overlapDays).Div(decimal.NewFromInt(totalDays))
}

// CalculateBillingPeriodItemsValue sums quantity x unit price over the
// given billing period items.
func CalculateBillingPeriodItemsValue(items []BillingPeriodItem) int64 {
	var total int64
	for i := range items {
		total += items[i].Quantity * items[i].UnitPrice
	}
	return total
}

// differenceInDays counts whole calendar days from a to b, ignoring
// the time-of-day components.
func differenceInDays(b, a time.Time) int64 {
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	return int64(bd.Sub(ad).Hours() / 24)
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
