package main

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/internal/config"
	"github.com/diewo77/faktura/internal/handlers"
	"github.com/diewo77/faktura/internal/middleware"
	"github.com/diewo77/faktura/internal/payments"
	"github.com/diewo77/faktura/internal/policy"
	"github.com/diewo77/faktura/internal/repository"
	"github.com/diewo77/faktura/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	cfg     *config.Config
	db      *gorm.DB
	log     zerolog.Logger
	authn   *auth.Authenticator

	checkout     *payments.Checkout
	apiLimit     func(http.Handler) http.Handler
	webhookLimit func(http.Handler) http.Handler
}

// AppOption customises NewApp.
type AppOption func(*App)

// WithCheckout replaces the payment checkout client.
func WithCheckout(c *payments.Checkout) AppOption {
	return func(a *App) { a.checkout = c }
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg *config.Config, db *gorm.DB, log zerolog.Logger, opts ...AppOption) (*App, error) {
	a := &App{
		mux: http.NewServeMux(),
		cfg: cfg,
		db:  db,
		log: log,
		authn: auth.NewAuthenticator(cfg.Auth.JWTSecret,
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithAudience(cfg.Auth.Audience),
			auth.WithLeeway(time.Duration(cfg.Auth.LeewaySeconds)*time.Second),
		),
	}
	for _, o := range opts {
		o(a)
	}
	if a.checkout == nil {
		a.checkout = payments.NewCheckout(payments.Config{
			SecretKey:  cfg.Stripe.SecretKey,
			Currency:   cfg.Stripe.Currency,
			UnitAmount: cfg.Stripe.UnitAmount,
			BaseURL:    cfg.App.BaseURL,
		})
	}

	var err error
	if a.apiLimit, err = middleware.NewIPRateLimiter(cfg.RateLimit.API); err != nil {
		return nil, err
	}
	if a.webhookLimit, err = middleware.NewIPRateLimiter(cfg.RateLimit.Webhook); err != nil {
		return nil, err
	}

	a.setupRoutes()
	a.handler = a.middleware(a.mux)
	return a, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	g := policy.NewOwnershipGate(ownedTables()...)
	ledger := services.NewLedger(a.db, a.log)
	company := services.NewCompanyService(a.db, g)

	hh := handlers.NewHealthHandler(a.db, a.log)
	sh := handlers.NewSessionHandler(a.cfg.Auth.SignInURL)
	ih := handlers.NewInvoiceHandler(services.NewInvoiceService(a.db, g, ledger, a.log), company, a.log)
	ch := handlers.NewClientHandler(services.NewClientService(a.db, g, a.log), a.log)
	cs := handlers.NewCompanyHandler(company, a.log)
	ph := handlers.NewProfileHandler(ledger, services.NewDashboardService(a.db, g, ledger), a.log)
	co := handlers.NewCheckoutHandler(a.checkout, a.log)
	wh := handlers.NewWebhookHandler(a.cfg.Stripe.WebhookSecret, ledger, a.log)

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no session required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", hh.Live)
	a.mux.HandleFunc("GET /healthz", hh.Ready)
	a.mux.Handle("GET /metrics", promhttp.Handler())
	a.mux.HandleFunc("GET /logout", sh.Logout)
	a.mux.HandleFunc("POST /logout", sh.Logout)
	a.mux.Handle("GET /api/session", a.api(sh.Current))
	if a.cfg.App.Dev {
		a.mux.HandleFunc("POST /dev/sign-in", sh.DevSignIn(a.authn))
	}

	// Signature-verified, so outside the session gate.
	a.mux.Handle("POST /api/stripe-webhook", a.webhookLimit(http.HandlerFunc(wh.Handle)))

	// ─────────────────────────────────────────────────────────────────────────
	// Protected API routes (the access gate answers 401 without a session)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/invoices", a.api(ih.List))
	a.mux.Handle("POST /api/invoices", a.api(ih.Create))
	a.mux.Handle("GET /api/invoices/{id}", a.api(ih.Get))
	a.mux.Handle("PUT /api/invoices/{id}", a.api(ih.Update))
	a.mux.Handle("PATCH /api/invoices/{id}", a.api(ih.Action))
	a.mux.Handle("DELETE /api/invoices/{id}", a.api(ih.Delete))
	a.mux.Handle("GET /api/invoices/{id}/pdf", a.api(ih.PDF))

	a.mux.Handle("GET /api/clients", a.api(ch.List))
	a.mux.Handle("POST /api/clients", a.api(ch.Create))
	a.mux.Handle("GET /api/clients/{id}", a.api(ch.Get))
	a.mux.Handle("PUT /api/clients/{id}", a.api(ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", a.api(ch.Delete))

	a.mux.Handle("GET /api/settings", a.api(cs.Get))
	a.mux.Handle("PUT /api/settings", a.api(cs.Update))

	a.mux.Handle("GET /api/profile", a.api(ph.Profile))
	a.mux.Handle("GET /api/dashboard", a.api(ph.Dashboard))
	a.mux.Handle("POST /api/create-checkout-session", a.api(co.Create))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// api applies the API rate limit to a handler.
func (a *App) api(h http.HandlerFunc) http.Handler {
	return a.apiLimit(h)
}

// middleware wraps next in the global chain, outermost first.
func (a *App) middleware(next http.Handler) http.Handler {
	gate := policy.NewAccessGate(a.cfg.Auth.SignInURL, sessionUser, a.log)
	chain := []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLogger(a.log),
		chimw.Recoverer,
		middleware.Prometheus,
		middleware.NewSecure(middleware.SecureOptions(a.cfg.App.Dev)),
		a.authn.Middleware,
		middleware.Prefs,
		gate.Middleware,
	}
	h := next
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

func ownedTables() []string {
	var names []string
	for _, t := range repository.Tables() {
		names = append(names, t.Name)
	}
	return names
}

func sessionUser(r *http.Request) (uuid.UUID, bool) {
	return auth.UserIDFromContext(r.Context())
}
