package billing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/billing"
	"github.com/dmitrymomot/creditkit/pkg/idempotency"
	"github.com/dmitrymomot/creditkit/pkg/lock"
)

type stubProvider struct {
	event *billing.Event
	err   error
}

func (p *stubProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	return p.event, p.err
}

func postWebhook(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader(`{}`))
	req.Header.Set("Paddle-Signature", "ts=1;h1=deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandlerAcknowledges(t *testing.T) {
	t.Parallel()

	env := newBillingEnv(t)
	provider := &stubProvider{event: subscriptionCreatedEvent(uuid.New(), "pri_pro")}
	handler := billing.NewWebhookHandler(provider, env.processor, nil)

	rec := postWebhook(t, handler.Router())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newBillingEnv(t)
	provider := &stubProvider{err: billing.ErrWebhookVerificationFailed}
	handler := billing.NewWebhookHandler(provider, env.processor, nil)

	rec := postWebhook(t, handler.Router())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandlerRequestsRedelivery(t *testing.T) {
	t.Parallel()

	processor := billing.NewProcessor(idempotency.NewMemoryStore(), lock.NewMemoryCoordinator())
	processor.Register(billing.EventPaymentFailed, func(ctx context.Context, event *billing.Event) error {
		return context.DeadlineExceeded
	})
	provider := &stubProvider{event: &billing.Event{ID: "evt_x", Type: billing.EventPaymentFailed}}
	handler := billing.NewWebhookHandler(provider, processor, nil)

	rec := postWebhook(t, handler.Router())
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
