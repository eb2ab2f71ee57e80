package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/billing"
)

const testWebhookSecret = "pdl_ntfset_test_secret"

// signPaddle produces a Paddle-Signature header for the payload: an
// HMAC-SHA256 over "<ts>:<body>" keyed by the webhook secret.
func signPaddle(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d:%s", ts, payload)
	return fmt.Sprintf("ts=%d;h1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestPaddleProviderRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := billing.NewPaddleProvider(billing.PaddleConfig{})
	require.ErrorIs(t, err, billing.ErrMissingWebhookSecret)
}

func TestPaddleParseSubscriptionCreated(t *testing.T) {
	t.Parallel()

	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: testWebhookSecret})
	require.NoError(t, err)

	payload := []byte(`{
		"event_id": "evt_01h8bzakzx3hm2fmen703n5q45",
		"event_type": "subscription.created",
		"data": {
			"id": "sub_01h8bzam1y3hm2fmen703n5q45",
			"status": "active",
			"custom_data": {"customer_id": "0b043232-52f2-4d47-92a5-9a9f79b0b45f"},
			"items": [{"price": {"id": "pri_pro"}}],
			"current_billing_period": {"ends_at": "2026-09-30T00:00:00Z"}
		}
	}`)

	event, err := provider.ParseWebhook(context.Background(), payload, signPaddle(t, payload))
	require.NoError(t, err)
	require.Equal(t, "evt_01h8bzakzx3hm2fmen703n5q45", event.ID)
	require.Equal(t, billing.EventSubscriptionCreated, event.Type)
	require.Equal(t, "subscription.created", event.ProviderEvent)
	require.Equal(t, "sub_01h8bzam1y3hm2fmen703n5q45", event.SubscriptionID)
	require.Equal(t, "active", event.Status)
	require.Equal(t, "0b043232-52f2-4d47-92a5-9a9f79b0b45f", event.CustomerID)
	require.Equal(t, "pri_pro", event.PlanID)
	require.NotNil(t, event.PeriodEnd)
	require.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), *event.PeriodEnd)
}

func TestPaddleParseCreditPurchase(t *testing.T) {
	t.Parallel()

	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: testWebhookSecret})
	require.NoError(t, err)

	payload := []byte(`{
		"event_id": "evt_01h8bzb0d33hm2fmen703n5q45",
		"event_type": "transaction.completed",
		"data": {
			"id": "txn_01h8bzb1kp3hm2fmen703n5q45",
			"status": "completed",
			"custom_data": {"customer_id": "0b043232-52f2-4d47-92a5-9a9f79b0b45f", "credits": 250},
			"items": [{"price_id": "pri_credit_pack"}]
		}
	}`)

	event, err := provider.ParseWebhook(context.Background(), payload, signPaddle(t, payload))
	require.NoError(t, err)
	require.Equal(t, billing.EventCheckoutCompleted, event.Type)
	require.Equal(t, int64(250), event.Credits)
	require.Equal(t, "pri_credit_pack", event.PlanID)
	require.Nil(t, event.PeriodEnd)
}

func TestPaddleParseRejectsBadSignature(t *testing.T) {
	t.Parallel()

	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: testWebhookSecret})
	require.NoError(t, err)

	payload := []byte(`{"event_id": "evt_x", "event_type": "subscription.created", "data": {}}`)
	tampered := []byte(`{"event_id": "evt_y", "event_type": "subscription.created", "data": {}}`)

	_, err = provider.ParseWebhook(context.Background(), tampered, signPaddle(t, payload))
	require.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
}

func TestPaddleParseRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: testWebhookSecret})
	require.NoError(t, err)

	payload := []byte(`{"data": {}}`)
	_, err = provider.ParseWebhook(context.Background(), payload, signPaddle(t, payload))
	require.ErrorIs(t, err, billing.ErrInvalidEventPayload)
}
