package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/bot"
	"github.com/BaSui01/rsimage/config"
	"github.com/BaSui01/rsimage/internal/metrics"
	"github.com/BaSui01/rsimage/testutil/mocks"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}
	a, err := newApp(cfg, zap.NewNop(), metrics.NewCollector(nextTestNamespace(), zap.NewNop()))
	require.NoError(t, err)
	return a
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// =============================================================================
// 🧩 装配
// =============================================================================

func TestNewApp_Defaults(t *testing.T) {
	a := newTestApp(t, nil)

	assert.NotNil(t, a.images)
	assert.NotNil(t, a.store)
	assert.NotNil(t, a.gate)
	assert.NotNil(t, a.ledger)
	assert.NotNil(t, a.botClient)
	require.NotNil(t, a.ops)
	assert.False(t, a.ops.IsRunning())
}

func TestNewApp_ServerDisabled(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Server.Enabled = false })
	assert.Nil(t, a.ops)
}

func TestNewApp_InvalidProxy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Proxy.SOCKS = "://bad"
	_, err := newApp(cfg, zap.NewNop(), metrics.NewCollector(nextTestNamespace(), zap.NewNop()))
	assert.Error(t, err)
}

func TestApp_OpsHandler(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.opsHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	// 机器人未连接前不就绪
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	a.ready.Store(true)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_NewHandler(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Security.CooldownMs = 0 })
	messenger := mocks.NewMockMessenger()

	h := a.newHandler(messenger)
	require.NotNil(t, h)

	require.NoError(t, h.Handle(context.Background(), bot.Update{UserID: 7, ChatID: 70, Text: "/start"}))
	assert.Contains(t, messenger.LastText(), "RSIMAGE")
}

func TestApp_WatchConfigUpdatesGate(t *testing.T) {
	path := writeConfigFile(t, "security:\n  blocklist_keywords: []\n")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	a := newTestApp(t, func(c *config.Config) { c.Security.CooldownMs = 0 })
	require.NoError(t, a.watchConfig(path))
	require.NotNil(t, a.watcher)

	now := time.Now()
	assert.True(t, a.gate.Evaluate(1, "a dragon", now).Allowed)

	require.NoError(t, os.WriteFile(path, []byte("security:\n  blocklist_keywords: [\"dragon\"]\n"), 0o600))
	require.NoError(t, os.Chtimes(path, now, now))
	require.True(t, a.watcher.Check())

	assert.False(t, a.gate.Evaluate(1, "a dragon", now).Allowed)
}

func TestApp_RunFailsWithoutToken(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Server.Enabled = false
		c.Bot.Token = ""
	})

	err := a.run(context.Background())
	assert.Error(t, err)
}

// =============================================================================
// ✅ 子命令
// =============================================================================

func TestRunValidate_OK(t *testing.T) {
	path := writeConfigFile(t, "plans:\n  free_limit: 5\n")

	var stdout, stderr bytes.Buffer
	code := runValidate([]string{"--config", path}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "OK")
	assert.Empty(t, stderr.String())
}

func TestRunValidate_Invalid(t *testing.T) {
	path := writeConfigFile(t, "plans:\n  free_limit: -1\n")

	var stdout, stderr bytes.Buffer
	code := runValidate([]string{"--config", path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "plans.free_limit must be >= 0")
}

func TestRunHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runHealthCheck([]string{"--addr", healthy.URL}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "OK")

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	stdout.Reset()
	stderr.Reset()
	assert.Equal(t, 1, runHealthCheck([]string{"--addr", broken.URL}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "status 503")
}

func TestPrintVersionAndUsage(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "rsimage "+Version)

	buf.Reset()
	printUsage(&buf)
	assert.Contains(t, buf.String(), "serve")
	assert.Contains(t, buf.String(), "validate")
}

// =============================================================================
// 🔧 日志
// =============================================================================

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LogConfig
		debug  bool
		errors bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, false, true},
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, true, true},
		{"unknown level falls back to info", config.LogConfig{Level: "verbose"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.OutputPaths = []string{filepath.Join(t.TempDir(), "out.log")}
			logger := initLogger(tt.cfg)
			require.NotNil(t, logger)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zap.DebugLevel))
			assert.Equal(t, tt.errors, logger.Core().Enabled(zap.ErrorLevel))
		})
	}
}

func TestInitLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger := initLogger(config.LogConfig{Level: "info", Format: "json", OutputPaths: []string{path}})

	logger.Info("hello", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"timestamp"`)
}
