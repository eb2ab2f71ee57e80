package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle webhook adapter.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleProvider verifies Paddle webhook deliveries and normalizes them into
// billing events. It only consumes webhooks; outbound Paddle API calls
// (checkout links, portal sessions) are out of scope for the ledger service.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
	now      func() time.Time
}

// NewPaddleProvider creates a Paddle webhook adapter.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &PaddleProvider{
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		now:      time.Now,
	}, nil
}

// ParseWebhook validates the Paddle-Signature header against the payload and
// returns the normalized event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier operates on an HTTP request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var envelope struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEventPayload, err)
	}
	if envelope.EventID == "" || envelope.EventType == "" {
		return nil, ErrInvalidEventPayload
	}

	event := &Event{
		ID:            envelope.EventID,
		Type:          mapPaddleEventType(envelope.EventType),
		ProviderEvent: envelope.EventType,
		Raw:           envelope.Data,
		ReceivedAt:    p.now().UTC(),
	}

	data := envelope.Data

	if strings.HasPrefix(envelope.EventType, "subscription.") {
		event.SubscriptionID, _ = data["id"].(string)
	} else if subID, ok := data["subscription_id"].(string); ok {
		event.SubscriptionID = subID
	}
	event.Status, _ = data["status"].(string)
	event.CustomerID = paddleCustomString(data, "customer_id")
	event.Credits = paddleCustomInt(data, "credits")
	event.PlanID = paddlePriceID(data)
	event.PeriodEnd = paddlePeriodEnd(data)

	return event, nil
}

func mapPaddleEventType(providerEvent string) EventType {
	switch providerEvent {
	case "subscription.created":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "transaction.payment_succeeded":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	case "transaction.completed":
		return EventCheckoutCompleted
	default:
		return EventType(providerEvent)
	}
}

func paddleCustomString(data map[string]any, key string) string {
	customData, ok := data["custom_data"].(map[string]any)
	if !ok {
		return ""
	}
	value, _ := customData[key].(string)
	return value
}

func paddleCustomInt(data map[string]any, key string) int64 {
	customData, ok := data["custom_data"].(map[string]any)
	if !ok {
		return 0
	}
	switch value := customData[key].(type) {
	case float64:
		return int64(value)
	case string:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func paddlePriceID(data map[string]any) string {
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	// Subscription items nest the price object; transaction items carry a
	// flat price_id.
	if price, ok := item["price"].(map[string]any); ok {
		if priceID, ok := price["id"].(string); ok {
			return priceID
		}
	}
	priceID, _ := item["price_id"].(string)
	return priceID
}

func paddlePeriodEnd(data map[string]any) *time.Time {
	period, ok := data["current_billing_period"].(map[string]any)
	if !ok {
		return nil
	}
	endsAt, ok := period["ends_at"].(string)
	if !ok {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, endsAt)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
