package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/internal/metrics"
	"github.com/diewo77/faktura/internal/payments"
	"github.com/diewo77/faktura/internal/services"
)

// MaxWebhookBytes bounds the webhook body.
const MaxWebhookBytes = 64 << 10

// WebhookHandler credits invoice points for completed checkouts.
type WebhookHandler struct {
	secret string
	ledger *services.Ledger
	log    zerolog.Logger
}

func NewWebhookHandler(secret string, ledger *services.Ledger, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, ledger: ledger, log: log.With().Str("component", "webhook").Logger()}
}

// Handle: POST /api/stripe-webhook. After the signature is verified the
// answer is always 200; downstream failures are reported in an error field.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBytes))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		httpx.JSONError(w, http.StatusBadRequest, "could not read body", nil)
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("signature verification failed")
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		httpx.JSONError(w, http.StatusBadRequest, "Webhook Error: "+err.Error(), nil)
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		h.log.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("event ignored")
		httpx.JSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("malformed checkout session")
		h.ack(w, "Malformed checkout session")
		return
	}
	uid, err := uuid.Parse(cs.Metadata[payments.MetadataUserID])
	if err != nil {
		h.log.Warn().Str("event_id", event.ID).Msg("no user_id in checkout metadata")
		h.ledger.RecordSkipped(r.Context(), event.ID, string(event.Type), payload)
		metrics.WebhookEvents.WithLabelValues("skipped").Inc()
		h.ack(w, "No user_id in metadata")
		return
	}

	res, err := h.ledger.CreditOnce(r.Context(), event.ID, string(event.Type), uid, payload)
	if err != nil {
		// already logged and counted by the ledger
		h.ack(w, "Failed to credit invoice point")
		return
	}
	if !res.Duplicate {
		metrics.WebhookEvents.WithLabelValues("credited").Inc()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *WebhookHandler) ack(w http.ResponseWriter, msg string) {
	httpx.JSON(w, http.StatusOK, map[string]any{"received": true, "error": msg})
}
