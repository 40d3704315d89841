package billing

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// memoryIdempotencyStore is an in-memory IdempotencyStore for tests
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{seen: make(map[string]bool)}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *memoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], s.err
}

func (s *memoryIdempotencyStore) Close() error { return nil }

func signedPayload(t *testing.T, eventID, eventType, secret string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"id":"%s","type":"%s","api_version":"%s","livemode":false,"data":{"object":{}}}`,
		eventID, eventType, stripe.APIVersion))
	now := time.Now()
	signature := webhook.ComputeSignature(now, payload, secret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))
	return payload, header
}

func TestProcessWebhook(t *testing.T) {
	t.Run("bad signature yields no result", func(t *testing.T) {
		service := NewStripeWebhookService(StripeWebhookServiceConfig{
			WebhookSecret: testWebhookSecret,
		})
		payload, _ := signedPayload(t, "evt_1", "invoice.created", testWebhookSecret)

		result, err := service.ProcessWebhook(context.Background(), payload, "t=1,v1=deadbeef")
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("unhandled event type is acknowledged", func(t *testing.T) {
		service := NewStripeWebhookService(StripeWebhookServiceConfig{
			WebhookSecret: testWebhookSecret,
			Idempotency:   newMemoryIdempotencyStore(),
		})
		payload, header := signedPayload(t, "evt_2", "invoice.created", testWebhookSecret)

		result, err := service.ProcessWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.True(t, result.Processed)
		assert.Equal(t, "evt_2", result.EventID)
		assert.Equal(t, "Event type not handled", result.Message)
	})

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		service := NewStripeWebhookService(StripeWebhookServiceConfig{
			WebhookSecret: testWebhookSecret,
			Idempotency:   newMemoryIdempotencyStore(),
		})
		payload, header := signedPayload(t, "evt_3", "invoice.created", testWebhookSecret)

		_, err := service.ProcessWebhook(context.Background(), payload, header)
		require.NoError(t, err)

		replay, err := service.ProcessWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.Equal(t, "Duplicate event", replay.Message)
	})

	t.Run("falls back to the test mode secret", func(t *testing.T) {
		service := NewStripeWebhookService(StripeWebhookServiceConfig{
			WebhookSecret:     testWebhookSecret,
			TestWebhookSecret: "whsec_other_secret",
			Idempotency:       newMemoryIdempotencyStore(),
		})
		payload, header := signedPayload(t, "evt_4", "invoice.created", "whsec_other_secret")

		result, err := service.ProcessWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_4", result.EventID)
	})

	t.Run("idempotency store outage does not block processing", func(t *testing.T) {
		store := newMemoryIdempotencyStore()
		store.err = fmt.Errorf("connection refused")
		service := NewStripeWebhookService(StripeWebhookServiceConfig{
			WebhookSecret: testWebhookSecret,
			Idempotency:   store,
		})
		payload, header := signedPayload(t, "evt_5", "invoice.created", testWebhookSecret)

		result, err := service.ProcessWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.True(t, result.Processed)
	})
}
