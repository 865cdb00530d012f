package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/internal/services"
)

// CompanyHandler serves the company settings printed on invoices.
type CompanyHandler struct {
	svc *services.CompanyService
	log zerolog.Logger
}

func NewCompanyHandler(svc *services.CompanyService, log zerolog.Logger) *CompanyHandler {
	return &CompanyHandler{svc: svc, log: log}
}

// Get: GET /api/settings. Users without settings get an empty record.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Get(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": settings})
}

// Update: PUT /api/settings
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.CompanySettingsInput
	if !decode(w, r, &in) {
		return
	}
	settings, err := h.svc.Save(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "settings_saved"), "data": settings})
}
