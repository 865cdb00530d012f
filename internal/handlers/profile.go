package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/services"
)

// ProfileHandler exposes the signed-in user's points and dashboard.
type ProfileHandler struct {
	ledger    *services.Ledger
	dashboard *services.DashboardService
	log       zerolog.Logger
}

func NewProfileHandler(ledger *services.Ledger, dashboard *services.DashboardService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{ledger: ledger, dashboard: dashboard, log: log}
}

// Profile: GET /api/profile
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		fail(w, r, h.log, apperr.ErrAuthenticationRequired)
		return
	}
	points, err := h.ledger.Balance(r.Context(), uid)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": uid, "invoice_points": points})
}

// Dashboard: GET /api/dashboard
func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Summary(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
