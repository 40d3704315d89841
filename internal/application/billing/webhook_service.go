package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowbill/backend/internal/domain/shared"
	"github.com/flowbill/backend/internal/infrastructure/payment"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// checkoutSessionMetadataKey is the metadata key the checkout frontend
// stamps onto payment intents and setup intents so charge callbacks can
// be routed back to their session.
const checkoutSessionMetadataKey = "checkout_session_id"

// StripeWebhookService verifies, dedupes and routes Stripe webhook
// events into the checkout reconciler.
type StripeWebhookService struct {
	webhookSecret     string
	testWebhookSecret string
	idempotency       shared.IdempotencyStore
	idempotencyTTL    time.Duration
	checkout          *CheckoutService
	logger            *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	WebhookSecret     string
	TestWebhookSecret string
	Idempotency       shared.IdempotencyStore
	IdempotencyTTL    time.Duration
	Checkout          *CheckoutService
	Logger            *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.IdempotencyTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &StripeWebhookService{
		webhookSecret:     cfg.WebhookSecret,
		testWebhookSecret: cfg.TestWebhookSecret,
		idempotency:       cfg.Idempotency,
		idempotencyTTL:    ttl,
		checkout:          cfg.Checkout,
		logger:            logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the event signature, dedupes by event id and
// dispatches the event. A nil result means the signature check failed;
// any other processing error is returned alongside a populated result
// so the handler can still acknowledge receipt.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.verify(payload, signature)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, event.ID, s.idempotencyTTL)
		if err != nil {
			// Store outage: fall through and process. Reconciliation is
			// idempotent, so a duplicate delivery converges anyway.
			s.logger.Warn("Idempotency store unavailable, processing without dedupe",
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else if !first {
			s.logger.Debug("Skipping duplicate webhook event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
			result.Message = "Duplicate event"
			return result, nil
		}
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Bool("livemode", event.Livemode))

	switch event.Type {
	case "charge.succeeded", "charge.failed", "charge.updated", "charge.refunded":
		err = s.handleCharge(ctx, event)
	case "setup_intent.succeeded":
		err = s.handleSetupIntent(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// verify checks the signature against the live secret first, then the
// test secret. Stripe signs live and test events with different
// endpoint secrets.
func (s *StripeWebhookService) verify(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err == nil {
		return event, nil
	}
	if s.testWebhookSecret != "" && s.testWebhookSecret != s.webhookSecret {
		return webhook.ConstructEvent(payload, signature, s.testWebhookSecret)
	}
	return stripe.Event{}, err
}

func (s *StripeWebhookService) handleCharge(ctx context.Context, event stripe.Event) error {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	sessionID, ok := s.checkoutSessionID(ch.Metadata, ch.ID, string(event.Type))
	if !ok {
		return nil
	}

	charge := payment.ChargeFromStripe(&ch)
	_, err := s.checkout.ProcessChargeForCheckoutSession(ctx, sessionID, &charge)
	if errors.Is(err, ErrCheckoutSessionNotFound) {
		// The session may belong to another environment or a purged
		// record. Acknowledge so Stripe stops retrying.
		s.logger.Warn("Checkout session not found for charge",
			zap.String("checkout_session_id", sessionID.String()),
			zap.String("charge_id", ch.ID))
		return nil
	}
	return err
}

func (s *StripeWebhookService) handleSetupIntent(ctx context.Context, event stripe.Event) error {
	var si stripe.SetupIntent
	if err := json.Unmarshal(event.Data.Raw, &si); err != nil {
		return fmt.Errorf("failed to unmarshal setup intent: %w", err)
	}

	sessionID, ok := s.checkoutSessionID(si.Metadata, si.ID, string(event.Type))
	if !ok {
		return nil
	}

	intent := payment.SetupIntentFromStripe(&si)
	_, err := s.checkout.ProcessSetupIntentForCheckoutSession(ctx, sessionID, &intent)
	if errors.Is(err, ErrCheckoutSessionNotFound) {
		s.logger.Warn("Checkout session not found for setup intent",
			zap.String("checkout_session_id", sessionID.String()),
			zap.String("setup_intent_id", si.ID))
		return nil
	}
	return err
}

func (s *StripeWebhookService) checkoutSessionID(metadata map[string]string, objectID, eventType string) (uuid.UUID, bool) {
	raw, ok := metadata[checkoutSessionMetadataKey]
	if !ok || raw == "" {
		s.logger.Debug("Webhook object carries no checkout session metadata",
			zap.String("object_id", objectID),
			zap.String("event_type", eventType))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn("Invalid checkout session id in webhook metadata",
			zap.String("object_id", objectID),
			zap.String("checkout_session_id", raw))
		return uuid.Nil, false
	}
	return id, true
}
