package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/auth"
)

// RequestLogger logs one line per request with status and duration.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			ev := log.Info()
			switch {
			case ww.Status() >= 500:
				ev = log.Error()
			case ww.Status() >= 400:
				ev = log.Warn()
			}
			ev = ev.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context()))
			if uid, ok := auth.UserIDFromContext(r.Context()); ok {
				ev = ev.Stringer("user_id", uid)
			}
			ev.Msg("request")
		})
	}
}
