// AngelaMos | 2026
// stripe_test.go

package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/socialfinance/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway() *StripeGateway {
	return NewStripeGateway(
		config.StripeConfig{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: testWebhookSecret,
		},
		config.BillingConfig{
			Currency:      "usd",
			CallTimeout:   time.Second,
			MaxAttempts:   1,
			RetryInterval: time.Millisecond,
		},
	)
}

// signPayload produces a Stripe-Signature header value for payload using the
// v1 scheme: HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventType string, obj map[string]any) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":          "evt_test",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]any{"object": obj},
	})
	require.NoError(t, err)
	return payload
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	g := newTestGateway()

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"subscription":   "sub_123",
		"payment_intent": "pi_456",
		"amount_paid":    1999,
		"currency":       "usd",
	})

	event, err := g.VerifyWebhook(payload, signPayload(payload, time.Now()))

	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Kind)
	assert.Equal(t, "sub_123", event.SubscriptionID)
	assert.Equal(t, "pi_456", event.PaymentIntentID)
	assert.Equal(t, int64(1999), event.AmountCents)
	assert.Equal(t, "usd", event.Currency)
}

func TestVerifyWebhook_BadSignature(t *testing.T) {
	g := newTestGateway()

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"subscription": "sub_123",
	})

	_, err := g.VerifyWebhook(
		payload,
		fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()),
	)

	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhook_TamperedPayload(t *testing.T) {
	g := newTestGateway()

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"subscription": "sub_123",
	})
	header := signPayload(payload, time.Now())

	tampered := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"subscription": "sub_attacker",
	})

	_, err := g.VerifyWebhook(tampered, header)

	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhook_StaleTimestamp(t *testing.T) {
	g := newTestGateway()

	payload := eventPayload(t, "invoice.payment_succeeded", map[string]any{
		"subscription": "sub_123",
	})

	// Outside the default tolerance window; replayed headers must not verify.
	_, err := g.VerifyWebhook(
		payload,
		signPayload(payload, time.Now().Add(-time.Hour)),
	)

	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestNormalizeEvent_PaymentFailed(t *testing.T) {
	event := normalizeEvent(stripe.Event{
		Type: "invoice.payment_failed",
		Data: &stripe.EventData{
			Object: map[string]any{
				"subscription":   "sub_123",
				"payment_intent": "pi_456",
				"amount_due":     float64(500),
				"currency":       "usd",
			},
		},
	})

	assert.Equal(t, EventPaymentFailed, event.Kind)
	assert.Equal(t, "sub_123", event.SubscriptionID)
	assert.Equal(t, int64(500), event.AmountCents)
}

func TestNormalizeEvent_SubscriptionDeleted(t *testing.T) {
	event := normalizeEvent(stripe.Event{
		Type: "customer.subscription.deleted",
		Data: &stripe.EventData{
			Object: map[string]any{"id": "sub_123"},
		},
	})

	assert.Equal(t, EventSubscriptionDeleted, event.Kind)
	assert.Equal(t, "sub_123", event.SubscriptionID)
}

func TestNormalizeEvent_UnhandledType(t *testing.T) {
	event := normalizeEvent(stripe.Event{
		Type: "charge.refunded",
		Data: &stripe.EventData{Object: map[string]any{"id": "ch_1"}},
	})

	assert.Equal(t, EventIgnored, event.Kind)
	assert.Equal(t, "charge.refunded", event.ProviderType)
	assert.Empty(t, event.SubscriptionID)
}

func TestNormalizeEvent_MissingFields(t *testing.T) {
	event := normalizeEvent(stripe.Event{
		Type: "invoice.payment_succeeded",
		Data: &stripe.EventData{Object: map[string]any{}},
	})

	assert.Equal(t, EventPaymentSucceeded, event.Kind)
	assert.Empty(t, event.SubscriptionID)
	assert.Zero(t, event.AmountCents)
}

func TestBackoffInterval(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffInterval(100*time.Millisecond, 1))
	assert.Equal(t, 400*time.Millisecond, backoffInterval(100*time.Millisecond, 3))
	assert.Equal(t, 500*time.Millisecond, backoffInterval(0, 1))
}
