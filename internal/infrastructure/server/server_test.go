package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/config"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage.Dir = t.TempDir()
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestNewServerRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "titan_http_requests_total")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewServerAppliesSecurityConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.DefaultLevel = threat.SandboxStrict
	cfg.Security.MonitorEnabled = false

	srv := newTestServer(t, cfg)
	assert.Equal(t, threat.SandboxStrict, srv.Security().GetSandboxPolicy("tab").Level)
	assert.False(t, srv.Security().Settings().ThreatMonitor)
}

func TestNewServerRejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "chatty"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestSettingsSurviveRestart(t *testing.T) {
	cfg := testConfig(t)

	first, err := NewServer(cfg)
	require.NoError(t, err)
	settings := first.Security().Settings()
	settings.CSPEnforcement = false
	require.NoError(t, first.Security().UpdateSettings(context.Background(), settings))
	require.NoError(t, first.Close())

	second := newTestServer(t, cfg)
	assert.False(t, second.Security().Settings().CSPEnforcement)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
