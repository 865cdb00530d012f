package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/i18n"
)

// SessionHandler reports and ends the session issued by the identity
// provider. Sign-in itself happens at the provider.
type SessionHandler struct {
	signInURL string
}

func NewSessionHandler(signInURL string) *SessionHandler {
	return &SessionHandler{signInURL: signInURL}
}

// Current: GET /api/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, i18n.T(i18n.LangFrom(r.Context()), "unauthorized"), nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":    s.UserID,
		"email":      s.Email,
		"expires_at": s.ExpiresAt,
	})
}

// Logout clears the session cookie and sends the browser to the sign-in page.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	if httpx.WantsJSON(r) && r.Method != http.MethodGet {
		httpx.JSON(w, http.StatusOK, map[string]any{"signed_out": true})
		return
	}
	http.Redirect(w, r, h.signInURL, http.StatusSeeOther)
}

type devSignInRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// DevSignIn issues a session for local development without the identity
// provider. A missing user_id signs in a fresh user.
func (h *SessionHandler) DevSignIn(authn *auth.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devSignInRequest
		if !decode(w, r, &req) {
			return
		}
		if req.UserID == uuid.Nil {
			req.UserID = uuid.New()
		}
		expires := time.Now().Add(24 * time.Hour)
		token, err := authn.Issue(req.UserID, req.Email, time.Until(expires))
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "could not issue token", nil)
			return
		}
		auth.SetSessionCookie(w, token, expires, r.TLS != nil)
		httpx.JSON(w, http.StatusOK, map[string]any{"user_id": req.UserID, "token": token})
	}
}
