package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

func TestRequestIDKeepsValidCallerID(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "scan-42.a_b")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	require.Equal(t, "scan-42.a_b", seen)
	require.Equal(t, "scan-42.a_b", resp.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesUnsafeCallerID(t *testing.T) {
	h := RequestID(nil)(okHandler())
	for _, id := range []string{"", "has space", strings.Repeat("a", maxRequestIDLength+1), "line\nbreak"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, id)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		require.NotEqual(t, id, got)
		require.Len(t, got, 36)
	}
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "middleware-test", Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Post("/api/v1/jobs/{jobId}/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/abc/status", nil))

	require.Equal(t, http.StatusAccepted, resp.Code)
	out := buf.String()
	require.Contains(t, out, `"route":"/api/v1/jobs/{jobId}/status"`)
	require.Contains(t, out, `"status":202`)
	require.Contains(t, out, `"bytes":2`)
}

func TestRecovererWritesInternalError(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Contains(t, resp.Body.String(), "INTERNAL")
}

func TestRecovererReraisesAbort(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
