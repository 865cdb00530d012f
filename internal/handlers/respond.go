// Package handlers exposes the JSON API over HTTP.
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/i18n"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/validation"
)

// fail writes err as a JSON error. Classified messages are passed through;
// internal and dependency causes are logged and replaced by a generic text.
func fail(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	e := apperr.From(err)
	lang := i18n.LangFrom(r.Context())
	switch e.Kind {
	case apperr.KindAuthenticationRequired:
		httpx.JSONError(w, e.Status(), i18n.T(lang, "unauthorized"), nil)
	case apperr.KindAuthorizationDenied:
		httpx.JSONError(w, e.Status(), i18n.T(lang, "access_denied"), nil)
	case apperr.KindValidation:
		var details any
		if !e.Violations.Empty() {
			details = e.Violations
		}
		httpx.JSONError(w, e.Status(), e.Message, details)
	case apperr.KindNotFound, apperr.KindDomainRule:
		httpx.JSONError(w, e.Status(), e.Message, nil)
	default:
		log.Error().Err(err).
			Str("kind", e.Kind.String()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		httpx.JSONError(w, e.Status(), i18n.T(lang, "internal_error"), nil)
	}
}

// decode reads the JSON body into dst, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

// pathID parses the {id} path value.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id", validation.Violations{"id": "invalid_id"})
		return uuid.Nil, false
	}
	return id, true
}

func message(r *http.Request, code string) string {
	return i18n.T(i18n.LangFrom(r.Context()), code)
}
