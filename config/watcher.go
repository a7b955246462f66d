// 配置文件变更监听器实现。
//
// 轮询文件修改时间，变更后经 Loader 重新加载并验证，再回调订阅者。
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 监听器选项 ---

// WatcherOption configures the Watcher
type WatcherOption func(*Watcher)

// WithPollInterval sets how often the file is checked
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// --- 监听器实现 ---

// Watcher 监听单个配置文件。加载或验证失败的新内容被丢弃，
// 订阅者只会收到通过验证的配置。
type Watcher struct {
	path     string
	loader   *Loader
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	lastMod   time.Time
	callbacks []func(*Config)
}

// NewWatcher 创建监听器。loader 为 nil 时使用带 Validate 的默认 Loader
func NewWatcher(path string, loader *Loader, opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("config watcher: empty path")
	}
	if loader == nil {
		loader = NewLoader().WithValidator((*Config).Validate)
	}

	w := &Watcher{
		path:     path,
		loader:   loader.WithConfigPath(path),
		interval: 2 * time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))

	info, err := os.Stat(path)
	switch {
	case err == nil:
		w.lastMod = info.ModTime()
	case os.IsNotExist(err):
		w.logger.Warn("config file does not exist, will watch for creation", zap.String("path", path))
	default:
		return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
	}
	return w, nil
}

// OnReload 注册重载回调
func (w *Watcher) OnReload(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Path 返回监听的文件路径
func (w *Watcher) Path() string {
	return w.path
}

// Run 按间隔轮询直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("config watcher started",
		zap.String("path", w.path),
		zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check 检查一次文件，返回是否向订阅者分发了新配置
func (w *Watcher) Check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// 文件被删除时保留当前配置
		return false
	}

	w.mu.Lock()
	if !info.ModTime().After(w.lastMod) {
		w.mu.Unlock()
		return false
	}
	w.lastMod = info.ModTime()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return false
	}

	w.logger.Info("config reloaded", zap.String("path", w.path))
	for _, cb := range callbacks {
		cb(cfg)
	}
	return true
}
