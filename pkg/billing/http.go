package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxWebhookBody caps webhook payload size. Paddle payloads are a few KB;
// anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// WebhookHandler translates webhook HTTP deliveries into processor
// decisions and decisions back into status codes the provider understands:
// 2xx stops redelivery, 5xx requests it.
type WebhookHandler struct {
	provider  Provider
	processor *Processor
	log       *slog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
func NewWebhookHandler(provider Provider, processor *Processor, log *slog.Logger) *WebhookHandler {
	if provider == nil {
		panic("billing: provider is required")
	}
	if processor == nil {
		panic("billing: processor is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		provider:  provider,
		processor: processor,
		log:       log,
	}
}

// Router mounts the webhook endpoints.
func (h *WebhookHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhooks/paddle", h.handlePaddle)
	return r
}

func (h *WebhookHandler) handlePaddle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.ErrorContext(ctx, "failed to read webhook body", slog.Any("error", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.provider.ParseWebhook(ctx, payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		if errors.Is(err, ErrWebhookVerificationFailed) || errors.Is(err, ErrInvalidEventPayload) {
			h.log.WarnContext(ctx, "rejected webhook delivery", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.log.ErrorContext(ctx, "failed to parse webhook", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	decision := h.processor.Handle(ctx, event)
	if decision.ShouldRetry() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
