package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/rsimage/testutil"
)

func TestOpsMux_Health(t *testing.T) {
	clock := testutil.NewManualClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	mux := NewOpsMux(RoutesOptions{Version: "1.2.3", Now: clock.Now})
	clock.Advance(90 * time.Second)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"status":"healthy","version":"1.2.3","uptime":"1m30s","timestamp":"2026-01-02T03:05:35Z"}`,
		rec.Body.String())
}

func TestOpsMux_Ready(t *testing.T) {
	var readyErr error
	mux := NewOpsMux(RoutesOptions{Ready: func() error { return readyErr }})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	readyErr = errors.New("bot not connected")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot not connected")
}

func TestOpsMux_Metrics(t *testing.T) {
	srv := httptest.NewServer(NewOpsMux(RoutesOptions{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
