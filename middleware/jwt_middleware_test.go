package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTMiddlewareSetsUserID(t *testing.T) {
	var gotID string
	var gotOK bool
	handler := JWTMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserID(r.Context())
	}))

	token := signToken(t, testSecret, jwt.MapClaims{
		"userID": "u1",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if !gotOK || gotID != "u1" {
		t.Fatalf("expected userID u1 in context, got %q ok=%v", gotID, gotOK)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	handler := JWTMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for rejected requests")
	}))

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{
			name: "wrong secret",
			token: signToken(t, "other-secret", jwt.MapClaims{
				"userID": "u1",
				"exp":    time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"userID": "u1",
				"exp":    time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "no userID claim",
			token: signToken(t, testSecret, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(tt.token))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("got %d, want 401", rec.Code)
			}
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Fatal("expected no user id on a bare context")
	}
}
