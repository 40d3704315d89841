package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/billing"
	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrUsageMeterNotInPeriod is returned when a usage overage
	// references a meter absent from the billing period's items
	ErrUsageMeterNotInPeriod = errors.New("fee calculation: usage overage references a meter absent from the billing period items")
)

// FeeService builds and finalizes fee calculations. Fee calculations
// are insert-only snapshots; the only in-place mutations are
// finalization (free-tier math) and purchase linking.
type FeeService struct {
	processor billing.ProcessorClient
	logger    *zap.Logger
}

// NewFeeService creates a new FeeService
func NewFeeService(processor billing.ProcessorClient, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{processor: processor, logger: logger}
}

// CheckoutFeeCalculationParams carries everything needed to price a
// checkout session.
type CheckoutFeeCalculationParams struct {
	CheckoutSessionID uuid.UUID
	Organization      *billing.Organization
	Price             *billing.Price
	Quantity          int64
	Purchase          *billing.Purchase
	Discount          *billing.Discount
	BillingAddress    valueobject.BillingAddress
	PaymentMethodType billing.PaymentMethod
	Livemode          bool
}

// CreateCheckoutFeeCalculation computes and persists a new fee
// calculation for a checkout session. A purchase's locked-in amounts
// override the price. Merchant-of-record organizations get a tax
// calculation from the processor, skipped with a synthetic calculation
// id when nothing is due after discounts (no point paying for a tax
// call on a zero amount).
func (s *FeeService) CreateCheckoutFeeCalculation(
	ctx context.Context,
	repos *billing.Repositories,
	p CheckoutFeeCalculationParams,
) (*billing.FeeCalculation, error) {
	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	baseAmount := p.Price.UnitPrice * quantity
	if p.Purchase != nil {
		if p.Purchase.FirstInvoiceValue != nil {
			baseAmount = *p.Purchase.FirstInvoiceValue
		} else if p.Purchase.PricePerBillingCycle != nil {
			baseAmount = *p.Purchase.PricePerBillingCycle
		}
	}

	fc, err := s.buildFeeCalculation(ctx, buildFeeCalculationInput{
		organization:      p.Organization,
		calculationType:   billing.FeeCalculationTypeCheckoutSessionPayment,
		checkoutSessionID: &p.CheckoutSessionID,
		priceID:           &p.Price.ID,
		baseAmount:        baseAmount,
		discount:          p.Discount,
		billingAddress:    p.BillingAddress,
		paymentMethodType: p.PaymentMethodType,
		currency:          p.Price.Currency,
		livemode:          p.Livemode,
	})
	if err != nil {
		return nil, err
	}
	if p.Purchase != nil {
		fc.PurchaseID = &p.Purchase.ID
	}
	if err := repos.FeeCalculations.Insert(ctx, fc); err != nil {
		return nil, fmt.Errorf("failed to insert fee calculation: %w", err)
	}

	s.logger.Info("Created checkout fee calculation",
		zap.String("checkout_session_id", p.CheckoutSessionID.String()),
		zap.Int64("base_amount", fc.BaseAmount),
		zap.Int64("discount_amount", fc.DiscountAmountFixed),
		zap.Int64("tax_amount", fc.TaxAmountFixed))
	return fc, nil
}

// InvoiceFeeCalculationParams carries everything needed to price an
// invoice checkout session.
type InvoiceFeeCalculationParams struct {
	CheckoutSessionID uuid.UUID
	Organization      *billing.Organization
	Invoice           *billing.Invoice
	LineItems         []billing.InvoiceLineItem
	BillingAddress    valueobject.BillingAddress
	PaymentMethodType billing.PaymentMethod
	Livemode          bool
}

// CreateInvoiceFeeCalculation computes and persists a new fee
// calculation for an invoice checkout session. The base amount is the
// invoice's line-item total; no price or discount applies.
func (s *FeeService) CreateInvoiceFeeCalculation(
	ctx context.Context,
	repos *billing.Repositories,
	p InvoiceFeeCalculationParams,
) (*billing.FeeCalculation, error) {
	fc, err := s.buildFeeCalculation(ctx, buildFeeCalculationInput{
		organization:      p.Organization,
		calculationType:   billing.FeeCalculationTypeCheckoutSessionPayment,
		checkoutSessionID: &p.CheckoutSessionID,
		baseAmount:        billing.CalculateInvoiceBaseAmount(p.LineItems),
		billingAddress:    p.BillingAddress,
		paymentMethodType: p.PaymentMethodType,
		currency:          p.Invoice.Currency,
		livemode:          p.Livemode,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.FeeCalculations.Insert(ctx, fc); err != nil {
		return nil, fmt.Errorf("failed to insert fee calculation: %w", err)
	}

	s.logger.Info("Created invoice fee calculation",
		zap.String("checkout_session_id", p.CheckoutSessionID.String()),
		zap.String("invoice_id", p.Invoice.ID.String()),
		zap.Int64("base_amount", fc.BaseAmount),
		zap.Int64("tax_amount", fc.TaxAmountFixed))
	return fc, nil
}

// FinalizeFeeCalculation re-reads the organization's month-to-date
// resolved payment volume and settles the effective platform fee
// percentage against the monthly free tier: full percentage once the
// tier is exhausted, zero while the post-transaction volume stays
// inside it, and a pro-rated percentage on the overage portion when
// the transaction straddles the boundary. Appends an audit note and
// persists in place - finalization runs after the pre-tax numbers are
// fixed.
func (s *FeeService) FinalizeFeeCalculation(
	ctx context.Context,
	repos *billing.Repositories,
	fc *billing.FeeCalculation,
) (*billing.FeeCalculation, error) {
	org, err := repos.Organizations.FindByID(ctx, fc.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization for finalization: %w", err)
	}
	configuredPct, err := org.FeePercentageValue()
	if err != nil {
		return nil, err
	}
	resolvedVolume, err := repos.Payments.SumResolvedForMonth(ctx, org.ID, fc.Livemode, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to sum resolved payment volume: %w", err)
	}

	transactionAmount := fc.DiscountInclusiveAmount()
	freeTier := org.MonthlyFreeTier
	effectivePct := configuredPct
	switch {
	case resolvedVolume >= freeTier:
		// Tier exhausted before this transaction.
		effectivePct = configuredPct
	case resolvedVolume+transactionAmount <= freeTier:
		effectivePct = decimal.Zero
	default:
		// Straddles the boundary: charge only the overage portion,
		// expressed as an equivalent percentage of the whole
		// transaction.
		overage := resolvedVolume + transactionAmount - freeTier
		if transactionAmount > 0 {
			effectivePct = configuredPct.
				Mul(decimal.NewFromInt(overage)).
				Div(decimal.NewFromInt(transactionAmount))
		}
	}

	fc.PlatformFeePercentage = effectivePct
	fc.AppendInternalNote(fmt.Sprintf(
		"finalized platform fee: month-to-date resolved volume %d, free tier %d, transaction %d, effective fee %s%%",
		resolvedVolume, freeTier, transactionAmount, effectivePct.String()))
	if err := repos.FeeCalculations.Update(ctx, fc); err != nil {
		return nil, fmt.Errorf("failed to persist finalized fee calculation: %w", err)
	}

	s.logger.Info("Finalized fee calculation",
		zap.String("fee_calculation_id", fc.ID.String()),
		zap.Int64("resolved_volume", resolvedVolume),
		zap.String("effective_fee_percentage", effectivePct.String()))
	return fc, nil
}

// SubscriptionFeeCalculationParams carries everything needed to price
// a billing period.
type SubscriptionFeeCalculationParams struct {
	Organization      *billing.Organization
	Subscription      *billing.Subscription
	BillingPeriod     *billing.BillingPeriod
	Items             []billing.BillingPeriodItem
	UsageOverages     []billing.UsageOverage
	BillingAddress    valueobject.BillingAddress
	PaymentMethodType billing.PaymentMethod
	Currency          valueobject.Currency
	Livemode          bool
}

// CreateAndFinalizeSubscriptionFeeCalculation builds a fee calculation
// for a billing period - static items plus metered usage cost - and
// finalizes it in one call.
func (s *FeeService) CreateAndFinalizeSubscriptionFeeCalculation(
	ctx context.Context,
	repos *billing.Repositories,
	p SubscriptionFeeCalculationParams,
) (*billing.FeeCalculation, error) {
	baseAmount, err := subscriptionBaseAmount(p.Items, p.UsageOverages)
	if err != nil {
		return nil, err
	}

	var discount *billing.Discount
	redemption, err := repos.Discounts.FindCurrentRedemptionBySubscription(ctx, p.Subscription.ID)
	switch {
	case err == nil:
		discount = redemption.AsDiscount()
	case errors.Is(err, shared.ErrNotFound):
		// No active redemption; full price.
	default:
		return nil, fmt.Errorf("failed to load discount redemption: %w", err)
	}

	fc, err := s.buildFeeCalculation(ctx, buildFeeCalculationInput{
		organization:      p.Organization,
		calculationType:   billing.FeeCalculationTypeSubscriptionPayment,
		billingPeriodID:   &p.BillingPeriod.ID,
		baseAmount:        baseAmount,
		discount:          discount,
		billingAddress:    p.BillingAddress,
		paymentMethodType: p.PaymentMethodType,
		currency:          p.Currency,
		livemode:          p.Livemode,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.FeeCalculations.Insert(ctx, fc); err != nil {
		return nil, fmt.Errorf("failed to insert subscription fee calculation: %w", err)
	}
	return s.FinalizeFeeCalculation(ctx, repos, fc)
}

type buildFeeCalculationInput struct {
	organization      *billing.Organization
	calculationType   billing.FeeCalculationType
	checkoutSessionID *uuid.UUID
	billingPeriodID   *uuid.UUID
	priceID           *uuid.UUID
	baseAmount        int64
	discount          *billing.Discount
	billingAddress    valueobject.BillingAddress
	paymentMethodType billing.PaymentMethod
	currency          valueobject.Currency
	livemode          bool
}

// buildFeeCalculation computes every component of a new fee
// calculation snapshot. It does not persist.
func (s *FeeService) buildFeeCalculation(ctx context.Context, in buildFeeCalculationInput) (*billing.FeeCalculation, error) {
	discountAmount := billing.CalculateDiscountAmount(in.baseAmount, in.discount)

	platformPct, err := billing.CalculatePlatformFeePercentage(in.organization)
	if err != nil {
		return nil, err
	}
	internationalPct, err := billing.CalculateInternationalFeePercentage(
		in.paymentMethodType, in.billingAddress.Country, in.organization)
	if err != nil {
		return nil, err
	}

	fc := &billing.FeeCalculation{
		BaseEntity:                 shared.NewBaseEntity(),
		OrganizationID:             in.organization.ID,
		Type:                       in.calculationType,
		CheckoutSessionID:          in.checkoutSessionID,
		BillingPeriodID:            in.billingPeriodID,
		PriceID:                    in.priceID,
		Currency:                   in.currency,
		BaseAmount:                 in.baseAmount,
		DiscountAmountFixed:        discountAmount,
		PlatformFeePercentage:      platformPct,
		InternationalFeePercentage: internationalPct,
		PaymentMethodType:          in.paymentMethodType,
		BillingAddress:             in.billingAddress,
		Livemode:                   in.livemode,
	}
	if in.discount != nil {
		fc.DiscountID = &in.discount.ID
	}

	discountInclusive := fc.DiscountInclusiveAmount()
	fc.PretaxTotal = discountInclusive
	fc.PaymentMethodFeeFixed = billing.CalculatePaymentMethodFeeAmount(discountInclusive, in.paymentMethodType)

	if !in.organization.IsMerchantOfRecord() {
		// Platform contracts settle tax themselves.
		return fc, nil
	}
	if discountInclusive == 0 {
		fc.TaxAmountFixed = 0
		fc.TaxCalculationID = billing.NewNoTaxCalculationID()
		return fc, nil
	}
	taxResult, err := s.processor.CreateTaxCalculation(ctx, billing.TaxCalculationInput{
		OrganizationID: in.organization.ID,
		PriceID:        in.priceID,
		Amount:         discountInclusive,
		Currency:       string(in.currency),
		BillingAddress: in.billingAddress,
		Livemode:       in.livemode,
	})
	if err != nil {
		return nil, fmt.Errorf("tax calculation failed: %w", err)
	}
	fc.TaxAmountFixed = taxResult.TaxAmount
	fc.TaxCalculationID = taxResult.CalculationID
	return fc, nil
}

// subscriptionBaseAmount prices a billing period: static items at
// quantity x unit price, usage overages converted through the matching
// usage item's events-per-unit factor.
func subscriptionBaseAmount(items []billing.BillingPeriodItem, overages []billing.UsageOverage) (int64, error) {
	var total int64
	usageItems := make(map[uuid.UUID]*billing.BillingPeriodItem)
	for i := range items {
		item := &items[i]
		if item.Type == billing.BillingPeriodItemTypeUsage && item.UsageMeterID != nil {
			usageItems[*item.UsageMeterID] = item
			continue
		}
		total += item.Quantity * item.UnitPrice
	}
	for _, overage := range overages {
		item, ok := usageItems[overage.UsageMeterID]
		if !ok {
			return 0, fmt.Errorf("%w: meter %s", ErrUsageMeterNotInPeriod, overage.UsageMeterID)
		}
		eventsPerUnit := int64(1)
		if item.UsageEventsPerUnit != nil && *item.UsageEventsPerUnit > 0 {
			eventsPerUnit = *item.UsageEventsPerUnit
		}
		cost := decimal.NewFromInt(overage.Balance).
			Div(decimal.NewFromInt(eventsPerUnit)).
			Mul(decimal.NewFromInt(item.UnitPrice)).
			Round(0).
			IntPart()
		total += cost
	}
	return total, nil
}
