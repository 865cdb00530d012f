package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/payments"
)

// CheckoutHandler starts the purchase of one invoice point.
type CheckoutHandler struct {
	checkout *payments.Checkout
	log      zerolog.Logger
}

func NewCheckoutHandler(c *payments.Checkout, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: c, log: log}
}

// Create: POST /api/create-checkout-session
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		fail(w, r, h.log, apperr.ErrAuthenticationRequired)
		return
	}
	url, err := h.checkout.Start(r.Context(), uid, message(r, "invoice_point"))
	if err != nil {
		fail(w, r, h.log, apperr.Dependency("create checkout session", err))
		return
	}
	h.log.Info().Stringer("user_id", uid).Msg("checkout session created")
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}
