// Package auth verifies the session tokens issued by the identity provider
// and carries the resolved principal in the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	// SessionCookieName is the cookie the identity provider's front-end
	// stores the access token in.
	SessionCookieName = "session"
	sessionCtxKey     = ctxKey("session")
)

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the identity provider's access token claims.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Session is the authenticated principal of one request.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Authenticator validates HS256 tokens signed with the provider's secret.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

type Option func(*Authenticator)

func WithIssuer(iss string) Option { return func(a *Authenticator) { a.issuer = iss } }

func WithAudience(aud string) Option { return func(a *Authenticator) { a.audience = aud } }

func WithLeeway(d time.Duration) Option { return func(a *Authenticator) { a.leeway = d } }

// WithClock overrides the time source used to issue and validate tokens.
func WithClock(now func() time.Time) Option { return func(a *Authenticator) { a.now = now } }

func NewAuthenticator(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{secret: []byte(secret), leeway: 30 * time.Second, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Issue signs a token for userID. The identity provider does this in
// production; the service uses it for local development and tests.
func (a *Authenticator) Issue(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a raw token and returns its session.
func (a *Authenticator) Parse(raw string) (*Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	s := &Session{UserID: uid, Email: claims.Email, Role: claims.Role}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// SessionFromRequest reads the token from the Authorization header or the
// session cookie and validates it.
func (a *Authenticator) SessionFromRequest(r *http.Request) (*Session, error) {
	raw := bearerToken(r)
	if raw == "" {
		if c, err := r.Cookie(SessionCookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, ErrNoToken
	}
	return a.Parse(raw)
}

// Middleware attaches the session to the request context if present.
// Requests without a valid session pass through untouched.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, err := a.SessionFromRequest(r); err == nil {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SetSessionCookie stores token in the session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// WithSession stores the session in context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFromContext extracts the session.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionCtxKey).(*Session)
	return s, ok && s != nil
}

// WithUserID stores a bare user id in context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return WithSession(ctx, &Session{UserID: userID})
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return s.UserID, true
}
