package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/internal/services"
)

// ClientHandler serves /api/clients.
type ClientHandler struct {
	svc *services.ClientService
	log zerolog.Logger
}

func NewClientHandler(svc *services.ClientService, log zerolog.Logger) *ClientHandler {
	return &ClientHandler{svc: svc, log: log}
}

// List: GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": clients, "count": len(clients)})
}

// Create: POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Get: GET /api/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Update: PUT /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch services.ClientPatch
	if !decode(w, r, &patch) {
		return
	}
	c, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "client_updated"), "data": c})
}

// Delete: DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "client_deleted")})
}
