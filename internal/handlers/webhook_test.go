package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/diewo77/faktura/internal/models"
)

const testWebhookSecret = "whsec_test_secret"

func checkoutEvent(eventID, userID string) string {
	meta := `{}`
	if userID != "" {
		meta = `{"user_id":"` + userID + `"}`
	}
	return `{"id":"` + eventID + `","object":"event","type":"checkout.session.completed",` +
		`"data":{"object":{"id":"cs_test_1","object":"checkout.session","metadata":` + meta + `}}}`
}

func deliver(t *testing.T, h *WebhookHandler, payload, secret string) *httptest.ResponseRecorder {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/stripe-webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	h.Handle(w, req)
	return w
}

func TestWebhookCreditsPoints(t *testing.T) {
	e := newEnv(t)
	h := NewWebhookHandler(testWebhookSecret, e.ledger, zerolog.Nop())
	uid := uuid.New()

	w := deliver(t, h, checkoutEvent("evt_1", uid.String()), testWebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["received"] != true || body["error"] != nil {
		t.Fatalf("unexpected ack %v", body)
	}
	if got := e.points(t, uid); got != 1 {
		t.Fatalf("new profile should start at 1, got %d", got)
	}

	deliver(t, h, checkoutEvent("evt_2", uid.String()), testWebhookSecret)
	if got := e.points(t, uid); got != 2 {
		t.Fatalf("expected 2 points, got %d", got)
	}

	// redelivery of the same event
	w = deliver(t, h, checkoutEvent("evt_2", uid.String()), testWebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("redelivery: %d", w.Code)
	}
	if got := e.points(t, uid); got != 2 {
		t.Fatalf("redelivery credited again: %d", got)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	h := NewWebhookHandler(testWebhookSecret, e.ledger, zerolog.Nop())
	uid := uuid.New()

	w := deliver(t, h, checkoutEvent("evt_forged", uid.String()), "whsec_wrong")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if got := e.points(t, uid); got != 0 {
		t.Fatalf("forged event credited %d points", got)
	}
	var n int64
	e.db.Model(&models.WebhookEvent{}).Count(&n)
	if n != 0 {
		t.Fatalf("forged event recorded")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stripe-webhook", strings.NewReader(checkoutEvent("evt_x", uid.String())))
	w = httptest.NewRecorder()
	h.Handle(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing signature: expected 400 got %d", w.Code)
	}
}

func TestWebhookWithoutUserID(t *testing.T) {
	e := newEnv(t)
	h := NewWebhookHandler(testWebhookSecret, e.ledger, zerolog.Nop())

	w := deliver(t, h, checkoutEvent("evt_anon", ""), testWebhookSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["received"] != true || body["error"] != "No user_id in metadata" {
		t.Fatalf("unexpected ack %v", body)
	}
	var n int64
	e.db.Model(&models.Profile{}).Count(&n)
	if n != 0 {
		t.Fatalf("profile created without user id")
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	e := newEnv(t)
	h := NewWebhookHandler(testWebhookSecret, e.ledger, zerolog.Nop())

	payload := `{"id":"evt_pi","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`
	w := deliver(t, h, payload, testWebhookSecret)
	if w.Code != http.StatusOK || decodeBody(t, w)["received"] != true {
		t.Fatalf("unexpected %d %s", w.Code, w.Body.String())
	}
}

func TestWebhookBodyLimit(t *testing.T) {
	e := newEnv(t)
	h := NewWebhookHandler(testWebhookSecret, e.ledger, zerolog.Nop())

	big := strings.Repeat("a", MaxWebhookBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe-webhook", strings.NewReader(big))
	w := httptest.NewRecorder()
	h.Handle(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", w.Code)
	}
}
