package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/catalog"
	"github.com/abhisek/examcore/internal/config"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/metrics"
	"github.com/abhisek/examcore/internal/session"
	"github.com/abhisek/examcore/internal/store"
)

var now = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *catalog.Memory {
	t.Helper()
	cat, err := catalog.NewMemory(
		catalog.Item{ID: "q1", Domains: []string{"iam"}, Rule: grading.Rule{
			Kind: grading.KindSingleSelect, Correct: []string{"b"}, Points: 1,
		}},
		catalog.Item{ID: "q2", Domains: []string{"vpc"}, Rule: grading.Rule{
			Kind: grading.KindMultiSelect, Correct: []string{"a", "c"}, Points: 1,
		}},
	)
	require.NoError(t, err)
	return cat
}

func newTestServer(t *testing.T, st store.StateStore, rl config.RateLimitConfig) (*Server, *prometheus.Registry) {
	t.Helper()
	opts := []session.Option{session.WithClock(func() time.Time { return now })}
	if log, ok := st.(store.AttemptLog); ok {
		opts = append(opts, session.WithAttemptLog(log))
	}
	svc, err := session.NewService(config.DefaultEngine(), testCatalog(t), st, opts...)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := New(svc, config.HTTPConfig{Mode: "test", RateLimit: rl}, WithMetrics(metrics.New(reg), reg))
	return srv, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "no error object in %s", w.Body.String())
	return detail["code"].(string)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestQueue(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/v1/users/alice/queue", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q session.Queue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.ElementsMatch(t, []string{"q1", "q2"}, q.Items)

	w = do(t, h, http.MethodGet, "/v1/users/alice/queue?size=5&domain=vpc", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, []string{"q2"}, q.Items)

	for _, path := range []string{
		"/v1/users/alice/queue?size=abc",
		"/v1/users/alice/queue?size=0",
		"/v1/users/alice/queue?weak_ratio=2",
	} {
		w = do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, codeInvalid, errorCode(t, w), path)
	}
}

func TestSubmitAttempt(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/v1/users/alice/attempts",
		`{"item_id":"q1","answer":{"kind":"single_select","choice":"b"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 1.0, body["score"])
	assert.Equal(t, 5.0, body["quality"])
	assert.Equal(t, now.AddDate(0, 0, 1).Format(time.RFC3339), body["next_due_at"])

	// Empty selection is a valid wrong answer.
	w = do(t, h, http.MethodPost, "/v1/users/alice/attempts",
		`{"item_id":"q2","answer":{"kind":"multi_select","selected":[]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.0, decode(t, w)["score"])

	w = do(t, h, http.MethodGet, "/v1/users/alice/mastery", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report session.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, []mastery.DomainReport{
		{Tag: "iam", Accuracy: 1, Attempts: 1},
		{Tag: "vpc", Accuracy: 0, Attempts: 1},
	}, report.Domains)

	w = do(t, h, http.MethodGet, "/v1/users/alice/attempts?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	attempts := decode(t, w)["attempts"].([]any)
	require.Len(t, attempts, 1)
	assert.Equal(t, "q2", attempts[0].(map[string]any)["item_id"])
}

func TestSubmitAttempt_Errors(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown item", `{"item_id":"nope","answer":{"kind":"single_select","choice":"b"}}`, http.StatusNotFound, codeNotFound},
		{"missing item id", `{"answer":{"kind":"single_select","choice":"b"}}`, http.StatusBadRequest, codeInvalid},
		{"not json", `{`, http.StatusBadRequest, codeInvalid},
		{"answer without kind", `{"item_id":"q1","answer":{"choice":"b"}}`, http.StatusBadRequest, codeInvalid},
		{"shape mismatch", `{"item_id":"q1","answer":{"kind":"numeric","value":3}}`, http.StatusBadRequest, codeInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/v1/users/alice/attempts", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestItemStatus(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/v1/users/alice/items/q1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new", decode(t, w)["status"])

	w = do(t, h, http.MethodGet, "/v1/users/alice/items/zzz/status", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		w := do(t, h, http.MethodGet, "/v1/users/alice/mastery", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(t, h, http.MethodGet, "/v1/users/alice/mastery", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, codeRateLimited, errorCode(t, w))

	w = do(t, h, http.MethodGet, "/v1/users/bob/mastery", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Health checks are not limited.
	w = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, store.NewMemory(), config.RateLimitConfig{})
	h := srv.Handler()

	do(t, h, http.MethodPost, "/v1/users/alice/attempts",
		`{"item_id":"q1","answer":{"kind":"single_select","choice":"a"}}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `examcore_attempts_total{kind="single_select",outcome="graded"} 1`)
	assert.Contains(t, out, `endpoint="/v1/users/:user/attempts"`)
}

// downStore reports the backend as unreachable.
type downStore struct{ store.StateStore }

var errDown = errors.New("dial tcp: connection refused")

func (downStore) ListMastery(context.Context, string) ([]mastery.Summary, error) {
	return nil, apperr.Unavailable("list mastery", errDown)
}

func (downStore) Ping(context.Context) error {
	return apperr.Unavailable("ping", errDown)
}

func TestStoreUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, downStore{}, config.RateLimitConfig{})
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/v1/users/alice/mastery", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, codeUnavailable, errorCode(t, w))

	w = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
