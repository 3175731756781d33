package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, issuer, subject string, expiry time.Duration) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	auth := NewAuthenticator("test-secret", "sourcegate")

	var subject string
	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		subject = GetSubject(r.Context())
	})

	req := httptest.NewRequest("POST", "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", "sourcegate", "ops", time.Hour))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops", subject)
}

func TestRequireAuthRejections(t *testing.T) {
	auth := NewAuthenticator("test-secret", "sourcegate")
	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", "sourcegate", "ops", time.Hour)},
		{"wrong issuer", "Bearer " + signToken(t, "test-secret", "someone-else", "ops", time.Hour)},
		{"expired", "Bearer " + signToken(t, "test-secret", "sourcegate", "ops", -time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/sources", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

type stubLimiter struct {
	allowed bool
	err     error
	lastKey string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.lastKey = key
	return s.allowed, s.err
}

func (s *stubLimiter) Close() error { return nil }

func TestRateLimitAllows(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	handler := RateLimit(limiter, "sources", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest("POST", "/api/v1/sources", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sources:10.0.0.1", limiter.lastKey)
}

func TestRateLimitDenies(t *testing.T) {
	handler := RateLimit(&stubLimiter{allowed: false}, "sources", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/v1/sources", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{allowed: false, err: errors.New("redis down")}
	handler := RateLimit(limiter, "sources", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/v1/sources", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
}
