package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// StripeClient implements billing.ProcessorClient against the Stripe
// API. Two API clients are held, one per mode; every call routes on the
// livemode flag so test-mode traffic can never touch live keys.
type StripeClient struct {
	live   *client.API
	test   *client.API
	logger *zap.Logger
}

var _ billing.ProcessorClient = (*StripeClient)(nil)

// NewStripeClient creates a Stripe-backed processor client. liveKey may
// be empty outside production; calls with livemode=true then fail fast.
func NewStripeClient(liveKey, testKey string, logger *zap.Logger) (*StripeClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if liveKey != "" && !strings.HasPrefix(liveKey, "sk_live") {
		return nil, fmt.Errorf("stripe: live secret key does not look like a live key")
	}
	if testKey != "" && !strings.HasPrefix(testKey, "sk_test") {
		return nil, fmt.Errorf("stripe: test secret key does not look like a test key")
	}

	c := &StripeClient{logger: logger}
	if liveKey != "" {
		c.live = client.New(liveKey, nil)
	}
	if testKey != "" {
		c.test = client.New(testKey, nil)
	}
	return c, nil
}

func (c *StripeClient) api(livemode bool) (*client.API, error) {
	if livemode {
		if c.live == nil {
			return nil, fmt.Errorf("stripe: no live secret key configured")
		}
		return c.live, nil
	}
	if c.test == nil {
		return nil, fmt.Errorf("stripe: no test secret key configured")
	}
	return c.test, nil
}

// CreateCustomer creates a Stripe customer and returns its id
func (c *StripeClient) CreateCustomer(ctx context.Context, email, name string, livemode bool) (string, error) {
	api, err := c.api(livemode)
	if err != nil {
		return "", err
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}

	cust, err := api.Customers.New(params)
	if err != nil {
		c.logger.Error("Failed to create Stripe customer",
			zap.String("email", email),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	c.logger.Info("Created Stripe customer",
		zap.String("customer_id", cust.ID),
		zap.Bool("livemode", livemode))
	return cust.ID, nil
}

// CreateTaxCalculation runs a Stripe Tax calculation for the given
// amount and billing address.
func (c *StripeClient) CreateTaxCalculation(ctx context.Context, input billing.TaxCalculationInput) (*billing.TaxCalculationResult, error) {
	api, err := c.api(input.Livemode)
	if err != nil {
		return nil, err
	}

	address, ok := input.BillingAddress.(valueobject.BillingAddress)
	if !ok || address.IsZero() {
		return nil, fmt.Errorf("stripe: tax calculation requires a billing address")
	}

	reference := "checkout"
	if input.PriceID != nil {
		reference = "price_" + input.PriceID.String()
	} else if input.PurchaseID != nil {
		reference = "purchase_" + input.PurchaseID.String()
	}

	params := &stripe.TaxCalculationParams{
		Currency: stripe.String(strings.ToLower(input.Currency)),
		LineItems: []*stripe.TaxCalculationLineItemParams{
			{
				Amount:    stripe.Int64(input.Amount),
				Reference: stripe.String(reference),
			},
		},
		CustomerDetails: &stripe.TaxCalculationCustomerDetailsParams{
			Address: &stripe.AddressParams{
				Line1:      stripe.String(address.Line1),
				Line2:      stripe.String(address.Line2),
				City:       stripe.String(address.City),
				State:      stripe.String(address.State),
				PostalCode: stripe.String(address.PostalCode),
				Country:    stripe.String(address.Country.String()),
			},
			AddressSource: stripe.String(string(stripe.TaxCalculationCustomerDetailsAddressSourceBilling)),
		},
	}
	params.Context = ctx

	calc, err := api.TaxCalculations.New(params)
	if err != nil {
		c.logger.Error("Failed to create Stripe tax calculation",
			zap.String("organization_id", input.OrganizationID.String()),
			zap.Int64("amount", input.Amount),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create tax calculation: %w", err)
	}

	return &billing.TaxCalculationResult{
		TaxAmount:     calc.TaxAmountExclusive,
		CalculationID: calc.ID,
	}, nil
}

// UpdatePaymentIntent pushes a new amount and application fee onto an
// open payment intent. Called whenever a checkout edit changes what is
// due so the processor never captures a stale amount.
func (c *StripeClient) UpdatePaymentIntent(ctx context.Context, id string, amount, applicationFeeAmount int64, livemode bool) error {
	api, err := c.api(livemode)
	if err != nil {
		return err
	}

	params := &stripe.PaymentIntentParams{
		Amount: stripe.Int64(amount),
	}
	params.Context = ctx
	if applicationFeeAmount > 0 {
		params.ApplicationFeeAmount = stripe.Int64(applicationFeeAmount)
	}

	if _, err := api.PaymentIntents.Update(id, params); err != nil {
		c.logger.Error("Failed to update Stripe payment intent",
			zap.String("payment_intent_id", id),
			zap.Int64("amount", amount),
			zap.Error(err))
		return fmt.Errorf("stripe: failed to update payment intent: %w", err)
	}

	c.logger.Debug("Updated Stripe payment intent",
		zap.String("payment_intent_id", id),
		zap.Int64("amount", amount),
		zap.Int64("application_fee_amount", applicationFeeAmount))
	return nil
}

// ChargeFromStripe maps a Stripe charge webhook object onto the
// processor-neutral charge shape the reconciler consumes.
func ChargeFromStripe(ch *stripe.Charge) billing.ProcessorCharge {
	charge := billing.ProcessorCharge{
		ID:             ch.ID,
		Status:         chargeStatusFromStripe(ch.Status),
		Amount:         ch.Amount,
		RefundedAmount: ch.AmountRefunded,
		Refunded:       ch.Refunded,
		Currency:       valueobject.Currency(strings.ToUpper(string(ch.Currency))),
		ChargeDate:     time.Unix(ch.Created, 0),
		Livemode:       ch.Livemode,
	}
	if ch.Customer != nil {
		charge.ProcessorCustomerID = ch.Customer.ID
	}
	if ch.PaymentIntent != nil {
		charge.PaymentIntentID = ch.PaymentIntent.ID
	}
	if ch.BillingDetails != nil {
		charge.BillingName = ch.BillingDetails.Name
		charge.BillingEmail = ch.BillingDetails.Email
	}
	if ch.PaymentMethodDetails != nil {
		charge.PaymentMethod = paymentMethodFromStripe(string(ch.PaymentMethodDetails.Type))
		if ch.PaymentMethodDetails.Card != nil {
			charge.PaymentMethodCountry = ch.PaymentMethodDetails.Card.Country
		}
	}
	return charge
}

// SetupIntentFromStripe maps a Stripe setup intent webhook object onto
// the processor-neutral setup intent shape.
func SetupIntentFromStripe(si *stripe.SetupIntent) billing.ProcessorSetupIntent {
	intent := billing.ProcessorSetupIntent{
		ID:        si.ID,
		Succeeded: si.Status == stripe.SetupIntentStatusSucceeded,
		Livemode:  si.Livemode,
	}
	if si.Customer != nil {
		intent.ProcessorCustomerID = si.Customer.ID
	}
	if si.PaymentMethod != nil {
		intent.PaymentMethod = paymentMethodFromStripe(string(si.PaymentMethod.Type))
	}
	return intent
}

func chargeStatusFromStripe(status stripe.ChargeStatus) billing.ChargeStatus {
	switch status {
	case stripe.ChargeStatusSucceeded:
		return billing.ChargeStatusSucceeded
	case stripe.ChargeStatusPending:
		return billing.ChargeStatusPending
	default:
		return billing.ChargeStatusFailed
	}
}

func paymentMethodFromStripe(method string) billing.PaymentMethod {
	switch method {
	case "link":
		return billing.PaymentMethodLink
	case "us_bank_account":
		return billing.PaymentMethodUSBankAccount
	case "sepa_debit":
		return billing.PaymentMethodSEPADebit
	default:
		return billing.PaymentMethodCard
	}
}
