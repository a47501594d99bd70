package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mesflow-backend/internal/fulfillment"
	"github.com/angelmondragon/mesflow-backend/internal/jobs"
	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/internal/replenishment"
	"github.com/angelmondragon/mesflow-backend/pkg/auth"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryRedis struct {
	stubPinger
	mu     sync.Mutex
	values map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

type countingFulfiller struct {
	mu    sync.Mutex
	calls int
}

func (c *countingFulfiller) FulfillKanban(_ context.Context, in replenishment.FulfillInput) (*replenishment.DocumentRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &replenishment.DocumentRef{Type: "job", ID: uuid.New(), ReadableID: "J000001"}, nil
}

type stubJobs struct{}

func (stubJobs) RequestTransition(_ context.Context, in jobs.TransitionInput) (*jobs.TransitionResult, error) {
	return &jobs.TransitionResult{}, nil
}

func (stubJobs) RecalculateRequirements(context.Context, uuid.UUID, uuid.UUID) (int, error) {
	return 0, nil
}

type stubPicker struct{}

func (stubPicker) Pick(_ context.Context, in fulfillment.PickInput) (*fulfillment.PickResult, error) {
	return &fulfillment.PickResult{LineID: in.TransferLineID, PickedQuantity: in.PickedQuantity}, nil
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, scope mrp.Scope) (*mrp.Result, error) {
	return &mrp.Result{Scope: scope}, nil
}

type stubQueue struct{}

func (stubQueue) EnqueueMRP(context.Context, payloads.MRPTask) error { return nil }

type harness struct {
	handler   http.Handler
	redis     *memoryRedis
	fulfiller *countingFulfiller
	token     string
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "mesflow", ExpirationMinutes: 60},
		Eventing: config.EventingConfig{HTTPIdempotencyTTL: time.Hour},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	redisStore := newMemoryRedis()
	fulfiller := &countingFulfiller{}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "mesflow_router_test_total"}))

	handler := NewRouter(cfg, logg, stubPinger{}, redisStore, registry, Services{
		Kanbans:     fulfiller,
		Jobs:        stubJobs{},
		Fulfillment: stubPicker{},
		MRP:         stubRunner{},
		Queue:       stubQueue{},
	})

	token, err := auth.Mint(cfg.JWT, time.Now(), uuid.New(), uuid.New())
	require.NoError(t, err)
	return &harness{handler: handler, redis: redisStore, fulfiller: fulfiller, token: token}
}

func (h *harness) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func (h *harness) authed(extra map[string]string) map[string]string {
	headers := map[string]string{"Authorization": "Bearer " + h.token}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

func TestHealthRoutesArePublic(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", "", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/ready", "", nil).Code)
}

func TestReadyFailsWhenRedisIsDown(t *testing.T) {
	h := newHarness(t)
	h.redis.err = context.DeadlineExceeded

	resp := h.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestMetricsExposesRegistry(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "mesflow_router_test_total")
}

func TestAPIRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/kanbans/" + uuid.NewString() + "/fulfill"},
		{http.MethodPost, "/api/v1/jobs/" + uuid.NewString() + "/status"},
		{http.MethodPost, "/api/v1/stock-transfer-lines/" + uuid.NewString() + "/pick"},
		{http.MethodPost, "/api/v1/mrp/run"},
	}
	for _, route := range routes {
		resp := h.do(route.method, route.path, "{}", nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code, route.path)
	}
}

func TestKanbanScanIsReplayedForSameKey(t *testing.T) {
	h := newHarness(t)
	path := "/api/v1/kanbans/" + uuid.NewString() + "/fulfill"
	headers := h.authed(map[string]string{"Idempotency-Key": "scan-1"})

	first := h.do(http.MethodPost, path, "", headers)
	second := h.do(http.MethodPost, path, "", headers)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, h.fulfiller.calls)
}

func TestKanbanScanRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/api/v1/kanbans/"+uuid.NewString()+"/fulfill", "", h.authed(nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, h.fulfiller.calls)
}

func TestJobStatusIsNotIdempotencyGuarded(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/api/v1/jobs/"+uuid.NewString()+"/status", `{"targetStatus":"Ready"}`, h.authed(nil))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestMRPRunRoute(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/api/v1/mrp/run", `{"async":true}`, h.authed(nil))
	require.Equal(t, http.StatusAccepted, resp.Code)
}
