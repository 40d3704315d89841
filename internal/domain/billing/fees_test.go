package billing

import (
	"testing"
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDiscountAmount(t *testing.T) {
	t.Run("nil discount is zero", func(t *testing.T) {
		assert.Equal(t, int64(0), CalculateDiscountAmount(1000, nil))
	})

	t.Run("fixed discount applies verbatim", func(t *testing.T) {
		discount := &Discount{AmountType: DiscountAmountTypeFixed, Amount: 250}
		assert.Equal(t, int64(250), CalculateDiscountAmount(1000, discount))
	})

	t.Run("percent discount rounds to whole minor unit", func(t *testing.T) {
		discount := &Discount{AmountType: DiscountAmountTypePercent, Amount: 15}
		// 15% of 999 = 149.85, rounds to 150
		assert.Equal(t, int64(150), CalculateDiscountAmount(999, discount))
	})

	t.Run("percent discount clamps to 100", func(t *testing.T) {
		discount := &Discount{AmountType: DiscountAmountTypePercent, Amount: 150}
		assert.Equal(t, int64(1000), CalculateDiscountAmount(1000, discount))
	})

	t.Run("unknown amount type is zero", func(t *testing.T) {
		discount := &Discount{AmountType: "bogus", Amount: 50}
		assert.Equal(t, int64(0), CalculateDiscountAmount(1000, discount))
	})
}

func TestCalculateInternationalFeePercentage(t *testing.T) {
	org := &Organization{
		BaseEntity:   shared.NewBaseEntity(),
		CountryCode:  "US",
		ContractType: ContractTypeMerchantOfRecord,
	}

	t.Run("invalid payer country is an error", func(t *testing.T) {
		_, err := CalculateInternationalFeePercentage(PaymentMethodCard, "USA", org)
		assert.Error(t, err)
	})

	t.Run("merchant of record pays nothing on US payers", func(t *testing.T) {
		pct, err := CalculateInternationalFeePercentage(PaymentMethodCard, "US", org)
		require.NoError(t, err)
		assert.True(t, pct.IsZero())
	})

	t.Run("same country pays nothing", func(t *testing.T) {
		frOrg := &Organization{
			BaseEntity:   shared.NewBaseEntity(),
			CountryCode:  "FR",
			ContractType: ContractTypePlatform,
		}
		pct, err := CalculateInternationalFeePercentage(PaymentMethodCard, "FR", frOrg)
		require.NoError(t, err)
		assert.True(t, pct.IsZero())
	})

	t.Run("cross-border card carries surcharge", func(t *testing.T) {
		pct, err := CalculateInternationalFeePercentage(PaymentMethodCard, "GB", org)
		require.NoError(t, err)
		assert.True(t, pct.Equal(decimal.NewFromFloat(3.0)), "got %s", pct)
	})

	t.Run("cross-border bank debit pays base rate only", func(t *testing.T) {
		pct, err := CalculateInternationalFeePercentage(PaymentMethodUSBankAccount, "GB", org)
		require.NoError(t, err)
		assert.True(t, pct.Equal(decimal.NewFromFloat(1.5)), "got %s", pct)
	})
}

func TestCalculatePaymentMethodFeeAmount(t *testing.T) {
	t.Run("card fee is percentage plus fixed", func(t *testing.T) {
		// 2.9% of 10000 = 290, plus 30 fixed
		assert.Equal(t, int64(320), CalculatePaymentMethodFeeAmount(10000, PaymentMethodCard))
	})

	t.Run("us bank account fee is capped", func(t *testing.T) {
		// 0.8% of 100000 = 800, capped at 500
		assert.Equal(t, int64(500), CalculatePaymentMethodFeeAmount(100000, PaymentMethodUSBankAccount))
	})

	t.Run("sepa debit fee is capped at its own limit", func(t *testing.T) {
		// 0.8% of 100000 = 800, capped at 600
		assert.Equal(t, int64(600), CalculatePaymentMethodFeeAmount(100000, PaymentMethodSEPADebit))
	})

	t.Run("unknown method charged like card", func(t *testing.T) {
		assert.Equal(t,
			CalculatePaymentMethodFeeAmount(10000, PaymentMethodCard),
			CalculatePaymentMethodFeeAmount(10000, PaymentMethod("crypto")))
	})

	t.Run("non-positive amount carries no fee", func(t *testing.T) {
		assert.Equal(t, int64(0), CalculatePaymentMethodFeeAmount(0, PaymentMethodCard))
		assert.Equal(t, int64(0), CalculatePaymentMethodFeeAmount(-500, PaymentMethodCard))
	})
}

func TestCalculateTotalFeeAmount(t *testing.T) {
	base := func() *FeeCalculation {
		return &FeeCalculation{
			BaseEntity:                 shared.NewBaseEntity(),
			BaseAmount:                 10000,
			DiscountAmountFixed:        1000,
			PlatformFeePercentage:      decimal.NewFromFloat(0.65),
			InternationalFeePercentage: decimal.NewFromFloat(1.5),
			PaymentMethodFeeFixed:      291,
			TaxAmountFixed:             720,
		}
	}

	t.Run("sums all components on the discount-inclusive amount", func(t *testing.T) {
		fc := base()
		total, err := CalculateTotalFeeAmount(fc)
		require.NoError(t, err)
		// 9000*0.65% + 9000*1.5% + 291 + 720 = 58.5 + 135 + 291 + 720
		// = 1204.5, rounds half away from zero to 1205.
		assert.Equal(t, int64(1205), total)
	})

	t.Run("negative platform fee percentage is rejected", func(t *testing.T) {
		fc := base()
		fc.PlatformFeePercentage = decimal.NewFromFloat(-0.5)
		_, err := CalculateTotalFeeAmount(fc)
		assert.Error(t, err)
	})

	t.Run("negative international fee percentage is rejected", func(t *testing.T) {
		fc := base()
		fc.InternationalFeePercentage = decimal.NewFromFloat(-1)
		_, err := CalculateTotalFeeAmount(fc)
		assert.Error(t, err)
	})
}

func TestCalculateTotalDueAmount(t *testing.T) {
	t.Run("base minus discount plus tax", func(t *testing.T) {
		fc := &FeeCalculation{BaseAmount: 10000, DiscountAmountFixed: 1000, TaxAmountFixed: 720}
		assert.Equal(t, int64(9720), CalculateTotalDueAmount(fc))
	})

	t.Run("discount exceeding base floors at tax", func(t *testing.T) {
		fc := &FeeCalculation{BaseAmount: 500, DiscountAmountFixed: 9999, TaxAmountFixed: 100}
		assert.Equal(t, int64(100), CalculateTotalDueAmount(fc))
	})

	t.Run("never negative", func(t *testing.T) {
		fc := &FeeCalculation{BaseAmount: 0, DiscountAmountFixed: 0, TaxAmountFixed: -50}
		assert.Equal(t, int64(0), CalculateTotalDueAmount(fc))
	})
}

func TestDiscountInclusiveAmount(t *testing.T) {
	t.Run("negative stored discount treated as zero", func(t *testing.T) {
		fc := &FeeCalculation{BaseAmount: 1000, DiscountAmountFixed: -200}
		assert.Equal(t, int64(1000), fc.DiscountInclusiveAmount())
	})

	t.Run("floors at zero", func(t *testing.T) {
		fc := &FeeCalculation{BaseAmount: 100, DiscountAmountFixed: 500}
		assert.Equal(t, int64(0), fc.DiscountInclusiveAmount())
	})
}

func TestNormalizeToMonthlyValue(t *testing.T) {
	t.Run("month passes through", func(t *testing.T) {
		v, err := NormalizeToMonthlyValue(1200, IntervalUnitMonth, 1)
		require.NoError(t, err)
		assert.True(t, v.Equal(decimal.NewFromInt(1200)))
	})

	t.Run("year divides by twelve", func(t *testing.T) {
		v, err := NormalizeToMonthlyValue(12000, IntervalUnitYear, 1)
		require.NoError(t, err)
		assert.True(t, v.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("every two months halves", func(t *testing.T) {
		v, err := NormalizeToMonthlyValue(1000, IntervalUnitMonth, 2)
		require.NoError(t, err)
		assert.True(t, v.Equal(decimal.NewFromInt(500)))
	})

	t.Run("week uses average month length", func(t *testing.T) {
		v, err := NormalizeToMonthlyValue(120, IntervalUnitWeek, 1)
		require.NoError(t, err)
		// 120 * 52 / 12 = 520
		assert.True(t, v.Equal(decimal.NewFromInt(520)), "got %s", v)
	})

	t.Run("non-positive interval count is an error", func(t *testing.T) {
		_, err := NormalizeToMonthlyValue(1000, IntervalUnitMonth, 0)
		assert.Error(t, err)
	})

	t.Run("unrecognized unit is an error", func(t *testing.T) {
		_, err := NormalizeToMonthlyValue(1000, IntervalUnit("fortnight"), 1)
		assert.Error(t, err)
	})
}

func TestCalculateOverlapPercentage(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	period := &BillingPeriod{StartDate: day(1), EndDate: day(31)}

	t.Run("fully contained period is one", func(t *testing.T) {
		pct := CalculateOverlapPercentage(period, day(1), day(31))
		assert.True(t, pct.Equal(decimal.NewFromInt(1)), "got %s", pct)
	})

	t.Run("disjoint range is zero", func(t *testing.T) {
		pct := CalculateOverlapPercentage(period, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC))
		assert.True(t, pct.IsZero())
	})

	t.Run("partial overlap counts inclusive days", func(t *testing.T) {
		// Overlap days 1 through 16 inclusive: 16 of 31 days.
		pct := CalculateOverlapPercentage(period, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), day(16))
		expected := decimal.NewFromInt(16).Div(decimal.NewFromInt(31))
		assert.True(t, pct.Equal(expected), "got %s want %s", pct, expected)
	})

	t.Run("day counts are exposed for exact scaling", func(t *testing.T) {
		overlap, total := CalculateOverlapDays(period, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), day(16))
		assert.Equal(t, int64(16), overlap)
		assert.Equal(t, int64(31), total)

		overlap, total = CalculateOverlapDays(period, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, int64(0), overlap)
		assert.Equal(t, int64(0), total)
	})
}

func TestCalculateInvoiceBaseAmount(t *testing.T) {
	items := []InvoiceLineItem{
		{Quantity: 2, Price: 500},
		{Quantity: 1, Price: 250},
	}
	assert.Equal(t, int64(1250), CalculateInvoiceBaseAmount(items))
	assert.Equal(t, int64(0), CalculateInvoiceBaseAmount(nil))
}

func TestFeeInputsChanged(t *testing.T) {
	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)

	priceID := shared.NewBaseEntity().ID
	fc := &FeeCalculation{
		PriceID:           &priceID,
		BillingAddress:    address,
		PaymentMethodType: PaymentMethodCard,
	}

	t.Run("identical inputs unchanged", func(t *testing.T) {
		assert.False(t, fc.FeeInputsChanged(&priceID, address, nil, PaymentMethodCard))
	})

	t.Run("different payment method changes", func(t *testing.T) {
		assert.True(t, fc.FeeInputsChanged(&priceID, address, nil, PaymentMethodLink))
	})

	t.Run("same jurisdiction different street unchanged", func(t *testing.T) {
		moved, err := valueobject.NewBillingAddress("9 Elm St", "", "Springfield", "IL", "62701", "US")
		require.NoError(t, err)
		assert.False(t, fc.FeeInputsChanged(&priceID, moved, nil, PaymentMethodCard))
	})

	t.Run("different jurisdiction changes", func(t *testing.T) {
		elsewhere, err := valueobject.NewBillingAddress("1 Main St", "", "Portland", "OR", "97201", "US")
		require.NoError(t, err)
		assert.True(t, fc.FeeInputsChanged(&priceID, elsewhere, nil, PaymentMethodCard))
	})
}
