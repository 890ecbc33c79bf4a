package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(t *testing.T, handler http.Handler, ctx context.Context, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/events/feed", nil)
	req.RemoteAddr = remoteAddr
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	defer rl.Stop()
	handler := limitedHandler(rl)

	for i := 0; i < 3; i++ {
		if rec := doRequest(t, handler, nil, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	defer rl.Stop()
	handler := limitedHandler(rl)

	doRequest(t, handler, nil, "10.0.0.2:5000")
	doRequest(t, handler, nil, "10.0.0.2:5000")
	rec := doRequest(t, handler, nil, "10.0.0.2:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestRateLimiterKeysClientsSeparately(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()
	handler := limitedHandler(rl)

	if rec := doRequest(t, handler, nil, "10.0.0.3:5000"); rec.Code != http.StatusOK {
		t.Fatalf("first client: got %d", rec.Code)
	}
	if rec := doRequest(t, handler, nil, "10.0.0.4:5000"); rec.Code != http.StatusOK {
		t.Fatalf("second client must have its own bucket, got %d", rec.Code)
	}
}

func TestRateLimiterPrefersUserKey(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()
	handler := limitedHandler(rl)

	ctx := context.WithValue(context.Background(), "userID", "u1")
	doRequest(t, handler, ctx, "10.0.0.5:5000")
	rec := doRequest(t, handler, ctx, "10.0.0.6:7000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same user from a new address must share the bucket, got %d", rec.Code)
	}
}

// TestRateLimiterOnAuthenticatedSubrouter wires the limiter the way the
// server does, after JWTMiddleware on a subrouter, and checks that requests
// are keyed by the authenticated user rather than the remote address.
func TestRateLimiterOnAuthenticatedSubrouter(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	r := mux.NewRouter()
	sub := r.PathPrefix("/events").Subrouter()
	sub.Use(JWTMiddleware(testSecret), rl.Middleware())
	sub.HandleFunc("/feed", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	token := signToken(t, testSecret, jwt.MapClaims{
		"userID": "u1",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/events/feed", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.8:5000"); code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", code)
	}
	if code := send("10.0.0.9:5000"); code != http.StatusTooManyRequests {
		t.Fatalf("same user from a new address: got %d, want 429", code)
	}

	rl.mu.Lock()
	_, hasUserKey := rl.limiters["user:u1"]
	rl.mu.Unlock()
	if !hasUserKey {
		t.Fatal("expected the bucket keyed by user id")
	}
}

func TestRateLimiterCleanupEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()

	rl.allow("ip:10.0.0.7")
	rl.mu.Lock()
	rl.limiters["ip:10.0.0.7"].lastAccess = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanup(10 * time.Minute)

	rl.mu.Lock()
	_, ok := rl.limiters["ip:10.0.0.7"]
	rl.mu.Unlock()
	if ok {
		t.Fatal("expected idle client evicted")
	}
}
