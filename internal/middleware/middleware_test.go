package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerifyToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	userID := uuid.New()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", signToken(t, "secret", jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(time.Hour).Unix()}), nil},
		{"expired", signToken(t, "secret", jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(-time.Hour).Unix()}), ErrTokenExpired},
		{"wrong secret", signToken(t, "other", jwt.MapClaims{"user_id": userID.String()}), ErrTokenInvalid},
		{"missing user", signToken(t, "secret", jwt.MapClaims{"sub": "x"}), ErrTokenInvalid},
		{"garbage", "not.a.token", ErrTokenInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.VerifyToken(tc.token)
			if err != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && got != userID {
				t.Errorf("expected user %s, got %s", userID, got)
			}
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	auth := NewJWTAuth("secret")
	userID := uuid.New()
	valid := signToken(t, "secret", jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	})
	h := auth.Middleware(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"bearer token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantStatus == http.StatusOK && seen != userID {
				t.Errorf("expected user id in context")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var inner string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = r.Header.Get(RequestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if inner == "" || rr.Header().Get(RequestIDHeader) != inner {
		t.Fatalf("expected generated id to be echoed, got %q / %q", inner, rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if inner != "abc-123" || rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected incoming id to be kept, got %q", inner)
	}
}
