package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

type brokenStore struct{ *fakeStore }

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("redis down")
}

func fulfillRequest(kanbanID uuid.UUID, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kanbans/"+kanbanID.String()+"/fulfill", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), Actor{UserID: uuid.New(), CompanyID: uuid.New()}))
}

func TestGuardedRoutes(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name   string
		method string
		path   string
		want   bool
	}{
		{"kanban scan", http.MethodPost, "/api/v1/kanbans/" + id + "/fulfill", true},
		{"pick", http.MethodPost, "/api/v1/stock-transfer-lines/" + id + "/pick", true},
		{"job status", http.MethodPost, "/api/v1/jobs/" + id + "/status", false},
		{"mrp run", http.MethodPost, "/api/v1/mrp/run", false},
		{"kanban read", http.MethodGet, "/api/v1/kanbans/" + id + "/fulfill", false},
	}
	for _, tt := range tests {
		if got := guarded(tt.method, tt.path); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), time.Hour, nil)(handler).ServeHTTP(resp, fulfillRequest(uuid.New(), "", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, 2*time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"type":"job"}}`))
	})

	kanbanID := uuid.New()
	first := fulfillRequest(kanbanID, "scan-1", `{}`)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, first.URL.Path, strings.NewReader(`{}`))
	replay.Header.Set("Idempotency-Key", "scan-1")
	replay = replay.WithContext(first.Context())
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"type":"job"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	recordKey := store.IdempotencyKey(actorScope(first), "scan-1")
	if store.ttls[recordKey] != 2*time.Hour {
		t.Fatalf("expected configured ttl, got %v", store.ttls[recordKey])
	}
	if rec.Header().Get(replayedHeader) != "true" {
		t.Fatalf("expected replay to be flagged")
	}
	if _, locked := store.data[recordKey+":inflight"]; locked {
		t.Fatalf("expected in-flight lock to be released")
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), time.Hour, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := fulfillRequest(uuid.New(), "xyz", `{"pickedQuantity":"1"}`)
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	replay := httptest.NewRequest(http.MethodPost, first.URL.Path, strings.NewReader(`{"pickedQuantity":"2"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	replay = replay.WithContext(first.Context())
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	first := fulfillRequest(uuid.New(), "retry-me", `{}`)
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	again := httptest.NewRequest(http.MethodPost, first.URL.Path, strings.NewReader(`{}`))
	again.Header.Set("Idempotency-Key", "retry-me")
	mw(handler).ServeHTTP(httptest.NewRecorder(), again.WithContext(first.Context()))

	if calls != 2 {
		t.Fatalf("expected handler to run again after a 5xx, ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyMiddlewareSurfacesStoreFailure(t *testing.T) {
	mw := Idempotency(brokenStore{newFakeStore()}, time.Hour, nil)
	resp := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, fulfillRequest(uuid.New(), "k", `{}`))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestIdempotencyScopesByCompany(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	kanbanID := uuid.New()
	mw(handler).ServeHTTP(httptest.NewRecorder(), fulfillRequest(kanbanID, "shared", `{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), fulfillRequest(kanbanID, "shared", `{}`))

	if calls != 2 {
		t.Fatalf("expected different actors not to share replays, ran %d times", calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int

	first := fulfillRequest(uuid.New(), "double-tap", `{}`)
	var inner *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// The second scan lands while the first is still being handled.
			again := httptest.NewRequest(http.MethodPost, first.URL.Path, strings.NewReader(`{}`))
			again.Header.Set("Idempotency-Key", "double-tap")
			inner = httptest.NewRecorder()
			mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })).ServeHTTP(inner, again.WithContext(first.Context()))
		}
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, first)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected concurrent duplicate to get 409")
	}
	if calls != 1 {
		t.Fatalf("expected one execution, got %d", calls)
	}
}
