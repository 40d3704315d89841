package billing

import (
	"testing"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProductSession() *CheckoutSession {
	priceID := uuid.New()
	return &CheckoutSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    uuid.New(),
		Type:              CheckoutSessionTypeProduct,
		Status:            CheckoutSessionStatusOpen,
		PriceID:           &priceID,
		Quantity:          1,
	}
}

func TestCheckoutSessionStatusIsTerminal(t *testing.T) {
	assert.False(t, CheckoutSessionStatusOpen.IsTerminal())
	assert.True(t, CheckoutSessionStatusPending.IsTerminal())
	assert.True(t, CheckoutSessionStatusSucceeded.IsTerminal())
	assert.True(t, CheckoutSessionStatusFailed.IsTerminal())
}

func TestCheckoutSessionCart(t *testing.T) {
	t.Run("product session resolves a product cart", func(t *testing.T) {
		s := openProductSession()
		s.Quantity = 3
		cart, err := s.Cart()
		require.NoError(t, err)
		productCart, ok := cart.(ProductCart)
		require.True(t, ok)
		assert.Equal(t, *s.PriceID, productCart.PriceID)
		assert.Equal(t, int64(3), productCart.Quantity)
	})

	t.Run("non-positive quantity defaults to one", func(t *testing.T) {
		s := openProductSession()
		s.Quantity = 0
		cart, err := s.Cart()
		require.NoError(t, err)
		assert.Equal(t, int64(1), cart.(ProductCart).Quantity)
	})

	t.Run("product session without price is invalid", func(t *testing.T) {
		s := openProductSession()
		s.PriceID = nil
		_, err := s.Cart()
		assert.Error(t, err)
	})

	t.Run("invoice session resolves an invoice cart", func(t *testing.T) {
		invoiceID := uuid.New()
		s := &CheckoutSession{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			Type:              CheckoutSessionTypeInvoice,
			Status:            CheckoutSessionStatusOpen,
			InvoiceID:         &invoiceID,
		}
		cart, err := s.Cart()
		require.NoError(t, err)
		assert.Equal(t, invoiceID, cart.(InvoiceCart).InvoiceID)
	})

	t.Run("unknown type is invalid", func(t *testing.T) {
		s := openProductSession()
		s.Type = "subscription"
		_, err := s.Cart()
		assert.Error(t, err)
	})
}

func TestCheckoutSessionFeeReady(t *testing.T) {
	address, err := valueobject.NewBillingAddress("1 Main St", "", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)
	card := PaymentMethodCard

	t.Run("ready with address, method and price", func(t *testing.T) {
		s := openProductSession()
		s.BillingAddress = &address
		s.PaymentMethodType = &card
		assert.True(t, s.FeeReady())
	})

	t.Run("not ready without address", func(t *testing.T) {
		s := openProductSession()
		s.PaymentMethodType = &card
		assert.False(t, s.FeeReady())
	})

	t.Run("not ready without payment method", func(t *testing.T) {
		s := openProductSession()
		s.BillingAddress = &address
		assert.False(t, s.FeeReady())
	})

	t.Run("not ready with nothing to charge for", func(t *testing.T) {
		s := openProductSession()
		s.PriceID = nil
		s.BillingAddress = &address
		s.PaymentMethodType = &card
		assert.False(t, s.FeeReady())
	})
}

func TestCheckoutSessionApplyEdit(t *testing.T) {
	t.Run("absent fields keep prior values", func(t *testing.T) {
		s := openProductSession()
		email := "buyer@example.com"
		s.CustomerEmail = &email

		s.ApplyEdit(CheckoutSessionEdit{})
		assert.Equal(t, &email, s.CustomerEmail)
		assert.Equal(t, int64(1), s.Quantity)
	})

	t.Run("non-positive quantity is ignored", func(t *testing.T) {
		s := openProductSession()
		zero := int64(0)
		s.ApplyEdit(CheckoutSessionEdit{Quantity: &zero})
		assert.Equal(t, int64(1), s.Quantity)
	})

	t.Run("clear discount wins over discount id", func(t *testing.T) {
		s := openProductSession()
		existing := uuid.New()
		s.DiscountID = &existing

		replacement := uuid.New()
		s.ApplyEdit(CheckoutSessionEdit{DiscountID: &replacement, ClearDiscount: true})
		assert.Nil(t, s.DiscountID)
	})

	t.Run("patch replaces present fields", func(t *testing.T) {
		s := openProductSession()
		newPrice := uuid.New()
		quantity := int64(5)
		link := PaymentMethodLink
		successURL := "https://example.com/done"

		s.ApplyEdit(CheckoutSessionEdit{
			PriceID:           &newPrice,
			Quantity:          &quantity,
			PaymentMethodType: &link,
			SuccessURL:        &successURL,
		})
		assert.Equal(t, newPrice, *s.PriceID)
		assert.Equal(t, int64(5), s.Quantity)
		assert.Equal(t, link, *s.PaymentMethodType)
		assert.Equal(t, successURL, s.SuccessURL)
	})
}

func TestCheckoutSessionCaptureBillingDetails(t *testing.T) {
	s := openProductSession()
	existing := "Original Name"
	s.CustomerName = &existing

	s.CaptureBillingDetails("", "payer@example.com")
	assert.Equal(t, "Original Name", *s.CustomerName)
	require.NotNil(t, s.CustomerEmail)
	assert.Equal(t, "payer@example.com", *s.CustomerEmail)
}

func TestCheckoutSessionStatusFromChargeStatus(t *testing.T) {
	assert.Equal(t, CheckoutSessionStatusSucceeded, CheckoutSessionStatusFromChargeStatus(ChargeStatusSucceeded))
	assert.Equal(t, CheckoutSessionStatusPending, CheckoutSessionStatusFromChargeStatus(ChargeStatusPending))
	assert.Equal(t, CheckoutSessionStatusFailed, CheckoutSessionStatusFromChargeStatus(ChargeStatusFailed))
}
