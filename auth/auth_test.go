package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthenticator("test-secret", WithIssuer("idp"), WithAudience("authenticated"))
	uid := uuid.New()
	tok, err := a.Issue(uid, "ola@example.no", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	s, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.UserID != uid || s.Email != "ola@example.no" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestParseRejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator("test-secret", WithIssuer("idp"), WithClock(func() time.Time { return now }))
	uid := uuid.New()

	expired, _ := NewAuthenticator("test-secret", WithIssuer("idp"),
		WithClock(func() time.Time { return now.Add(-2 * time.Hour) })).Issue(uid, "", time.Hour)
	otherSecret, _ := NewAuthenticator("other", WithIssuer("idp")).Issue(uid, "", time.Hour)
	otherIssuer, _ := NewAuthenticator("test-secret", WithIssuer("evil"),
		WithClock(func() time.Time { return now })).Issue(uid, "", time.Hour)
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    "idp",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}).SignedString([]byte("test-secret"))
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uid.String(),
		Issuer:    "idp",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":      expired,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"bad subject":  badSubject,
		"alg none":     noneAlg,
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Parse(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestParseLeeway(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uid := uuid.New()
	// expired 20 seconds before the verifier's clock
	tok, err := NewAuthenticator("s", WithClock(func() time.Time { return issued })).Issue(uid, "", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	at := func() time.Time { return issued.Add(80 * time.Second) }

	if _, err := NewAuthenticator("s", WithClock(at), WithLeeway(30*time.Second)).Parse(tok); err != nil {
		t.Fatalf("expected token within leeway to pass, got %v", err)
	}
	if _, err := NewAuthenticator("s", WithClock(at), WithLeeway(5*time.Second)).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken outside leeway, got %v", err)
	}
}

func TestMiddlewareReadsBearerAndCookie(t *testing.T) {
	a := NewAuthenticator("s")
	uid := uuid.New()
	tok, _ := a.Issue(uid, "", time.Hour)

	var got uuid.UUID
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != uid {
		t.Fatalf("bearer: expected %s got %s", uid, got)
	}

	got = uuid.Nil
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tok})
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != uid {
		t.Fatalf("cookie: expected %s got %s", uid, got)
	}

	got = uuid.Nil
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered"})
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != uuid.Nil {
		t.Fatalf("tampered cookie must not authenticate")
	}
}

func TestUserIDFromContextEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(r.Context()); ok {
		t.Fatalf("expected no user")
	}
	if _, ok := UserIDFromContext(WithUserID(r.Context(), uuid.Nil)); ok {
		t.Fatalf("nil uuid must not count as a user")
	}
}
