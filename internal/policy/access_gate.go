package policy

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/httpx"
)

// Route classifies a request path for the access gate.
type Route int

const (
	RoutePublic Route = iota
	RouteStatic
	RouteProtectedPage
	RouteProtectedAPI
)

// DefaultPagePrefixes are the signed-in areas of the web front-end.
var DefaultPagePrefixes = []string{"/dashboard", "/invoices", "/clients", "/settings"}

// DefaultAPIPrefixes are the JSON endpoints that need a session.
var DefaultAPIPrefixes = []string{
	"/api/dashboard",
	"/api/invoices",
	"/api/clients",
	"/api/settings",
	"/api/profile",
	"/api/create-checkout-session",
}

var staticExtensions = map[string]bool{
	".html": true, ".htm": true, ".css": true, ".js": true,
	".jpg": true, ".jpeg": true, ".webp": true, ".png": true, ".gif": true, ".svg": true,
	".ttf": true, ".woff": true, ".woff2": true, ".ico": true,
	".csv": true, ".pdf": true,
}

// SessionLookup resolves the signed-in user of a request.
type SessionLookup func(r *http.Request) (uuid.UUID, bool)

// AccessGate redirects or rejects unauthenticated requests to protected
// paths and lets everything else through untouched.
type AccessGate struct {
	pagePrefixes []string
	apiPrefixes  []string
	signInURL    string
	lookup       SessionLookup
	log          zerolog.Logger
}

type AccessGateOption func(*AccessGate)

func WithPagePrefixes(p ...string) AccessGateOption {
	return func(g *AccessGate) { g.pagePrefixes = p }
}

func WithAPIPrefixes(p ...string) AccessGateOption {
	return func(g *AccessGate) { g.apiPrefixes = p }
}

// NewAccessGate builds a gate redirecting pages to signInURL, which may be a
// path ("/sign-in") or the identity provider's absolute URL.
func NewAccessGate(signInURL string, lookup SessionLookup, log zerolog.Logger, opts ...AccessGateOption) *AccessGate {
	if signInURL == "" {
		signInURL = "/sign-in"
	}
	g := &AccessGate{
		pagePrefixes: DefaultPagePrefixes,
		apiPrefixes:  DefaultAPIPrefixes,
		signInURL:    signInURL,
		lookup:       lookup,
		log:          log,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Classify decides how the gate treats p.
func (g *AccessGate) Classify(p string) Route {
	if strings.HasPrefix(p, "/_next/") || staticExtensions[strings.ToLower(path.Ext(p))] {
		return RouteStatic
	}
	for _, prefix := range g.apiPrefixes {
		if matchPrefix(p, prefix) {
			return RouteProtectedAPI
		}
	}
	for _, prefix := range g.pagePrefixes {
		if matchPrefix(p, prefix) {
			return RouteProtectedPage
		}
	}
	return RoutePublic
}

// matchPrefix matches "/invoices" and "/invoices/..." but not "/invoicesx".
func matchPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

// Middleware enforces the gate.
func (g *AccessGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := g.Classify(r.URL.Path)
		if route == RoutePublic || route == RouteStatic {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := g.lookup(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if route == RouteProtectedAPI {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		target := g.SignInRedirect(r)
		g.log.Debug().Str("path", r.URL.Path).Str("location", target).Msg("redirecting to sign-in")
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}

// SignInRedirect builds the sign-in URL carrying the absolute original URL
// in redirect_url.
func (g *AccessGate) SignInRedirect(r *http.Request) string {
	u, err := url.Parse(g.signInURL)
	if err != nil {
		u = &url.URL{Path: "/sign-in"}
	}
	q := u.Query()
	q.Set("redirect_url", requestURL(r))
	u.RawQuery = q.Encode()
	return u.String()
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return (&url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}).String()
}
