package httpserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/fallback"
	"github.com/spaguard/spaguard/internal/htmlcache"
	"github.com/spaguard/spaguard/internal/listeners"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
)

func newTestServer(t *testing.T) (*Server, *orchestrator.Orchestrator) {
	t.Helper()
	bus := eventbus.New()
	current := func() *url.URL {
		u, err := url.Parse("https://app.example.com/")
		require.NoError(t, err)
		return u
	}
	fb := fallback.New(options.HTMLOptions{}, nil)
	orch := orchestrator.New(options.Default(), bus, nil, current, fb, time.Now())
	ls, _ := listeners.Install(bus, orch, options.Default())
	logger := zap.NewNop()

	s := NewServer(Config{Host: "127.0.0.1", Port: 0}, logger, orch, fb, ls, bus)
	return s, orch
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleIndex_ServesCacheWhenNotInFallback(t *testing.T) {
	s, _ := newTestServer(t)
	cache, err := htmlcache.Build(htmlcache.BuildInput{HTML: "<html>hi</html>", Languages: []string{"en"}, Version: "v1"})
	require.NoError(t, err)
	s.SetCache(cache)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `"v1-en"`, rec.Header().Get("ETag"))
	require.Equal(t, "en", rec.Header().Get("Content-Language"))
}

func TestHandleIndex_ServesFallbackWhenOrchestratorIsInFallback(t *testing.T) {
	bus := eventbus.New()
	current := func() *url.URL {
		u, err := url.Parse("https://app.example.com/")
		require.NoError(t, err)
		return u
	}
	fb := fallback.New(options.HTMLOptions{}, nil)
	opts := options.Default()
	opts.ReloadDelays = nil // zero budget: the first trigger exhausts it immediately
	orch := orchestrator.New(opts, bus, nil, current, fb, time.Now())
	ls, _ := listeners.Install(bus, orch, opts)
	logger := zap.NewNop()
	s := NewServer(Config{Host: "127.0.0.1", Port: 0}, logger, orch, fb, ls, bus)

	orch.Trigger(orchestrator.TriggerRequest{Source: "test", Forced: true})
	require.Equal(t, orchestrator.PhaseFallback, orch.Snapshot().Phase)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleMetrics_ExposesPrometheusFormat(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "spaguard_retry_attempts_total")
}

func TestHandleDebugRetryState(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/debug/retry-state", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "phase")
}
