package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// 🩺 运维路由
// =============================================================================

// HealthStatus /health 响应体
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// RoutesOptions 运维路由选项
type RoutesOptions struct {
	// Version 展示在 /health 中的版本
	Version string
	// Ready 返回 nil 表示就绪；为空时视为始终就绪
	Ready func() error
	// Metrics 为空时使用 promhttp.Handler()
	Metrics http.Handler
	// Now 为空时使用 time.Now
	Now func() time.Time
}

// NewOpsMux 注册 /health、/ready 与 /metrics
func NewOpsMux(opts RoutesOptions) *http.ServeMux {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		t := now()
		writeJSON(w, http.StatusOK, HealthStatus{
			Status:    "healthy",
			Version:   opts.Version,
			Uptime:    t.Sub(started).Truncate(time.Second).String(),
			Timestamp: t.UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not_ready",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
