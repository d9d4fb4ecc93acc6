package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "mk:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	})
}

func postOrder(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte(body)))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil, 0)(countingHandler(&calls))

	first := postOrder(handler, "key-1", `{"amount":1}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	second := postOrder(handler, "key-1", `{"amount":1}`)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay must return the stored status, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatal("replay must return the stored body")
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil, 0)(countingHandler(&calls))

	_ = postOrder(handler, "key-1", `{"amount":1}`)
	rec := postOrder(handler, "key-1", `{"amount":2}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("unexpected error payload: %s", rec.Body.String())
	}
}

func TestIdempotencyHeaderIsOptional(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil, 0)(countingHandler(&calls))

	first := postOrder(handler, "", `{"amount":1}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("keyless request must reach the handler, got %d", first.Code)
	}
	second := postOrder(handler, "", `{"amount":1}`)
	if second.Code != http.StatusCreated {
		t.Fatalf("keyless retry must reach the handler, got %d", second.Code)
	}
	if calls != 2 {
		t.Fatalf("keyless requests get no replay cache, handler ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatal("nothing may be cached without a key")
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil, 0)(countingHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatal("GET requests pass through untouched")
	}
}

func TestIdempotencyGuardsCriticalOrderActions(t *testing.T) {
	rules := replayRules(0)
	for _, path := range []string{
		"/api/v1/orders/5e9d/pay",
		"/api/v1/orders/5e9d/complete",
		"/api/v1/orders/5e9d/cancel",
	} {
		ttl, ok := routeTTL(rules, http.MethodPost, path)
		if !ok {
			t.Fatalf("%s must be guarded", path)
		}
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("%s must use the long TTL, got %s", path, ttl)
		}
	}

	if _, ok := routeTTL(rules, http.MethodPost, "/api/v1/events"); ok {
		t.Fatal("event ingest is rate limited, not idempotency guarded")
	}
}

func TestIdempotencyReplayTTLIsConfigurable(t *testing.T) {
	rules := replayRules(2 * time.Hour)

	ttl, ok := routeTTL(rules, http.MethodPost, "/api/v1/orders")
	if !ok || ttl != 2*time.Hour {
		t.Fatalf("order creation must use the configured TTL, got %s", ttl)
	}
	ttl, _ = routeTTL(rules, http.MethodPost, "/api/v1/orders/5e9d/pay")
	if ttl != criticalIdempotencyTTL {
		t.Fatalf("money movement keeps the long TTL, got %s", ttl)
	}

	ttl, _ = routeTTL(replayRules(0), http.MethodPost, "/api/v1/orders")
	if ttl != defaultIdempotencyTTL {
		t.Fatalf("zero config must fall back to the default TTL, got %s", ttl)
	}
}
