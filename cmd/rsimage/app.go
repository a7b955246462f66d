package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/rsimage/bot"
	"github.com/BaSui01/rsimage/bot/telegram"
	"github.com/BaSui01/rsimage/config"
	"github.com/BaSui01/rsimage/guard"
	"github.com/BaSui01/rsimage/image"
	"github.com/BaSui01/rsimage/internal/metrics"
	"github.com/BaSui01/rsimage/internal/server"
	"github.com/BaSui01/rsimage/internal/telemetry"
	"github.com/BaSui01/rsimage/internal/transport"
	"github.com/BaSui01/rsimage/session"
	"github.com/BaSui01/rsimage/usage"
)

var _ bot.Recorder = (*metrics.Collector)(nil)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有进程内全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	collector *metrics.Collector
	store     *session.Store
	gate      *guard.Gate
	ledger    *usage.Ledger
	images    *image.Client

	proxy     transport.Options
	botClient *http.Client
	ops       *server.Manager
	watcher   *config.Watcher
	ready     atomic.Bool
}

// newApp 装配生成链路与运维服务，不发起任何网络连接
func newApp(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		proxy: transport.Options{
			HTTPSProxy: cfg.Proxy.HTTPS,
			SOCKSProxy: cfg.Proxy.SOCKS,
		},
	}

	providerCfg := image.NewProviderConfig(cfg.ImageAPI)

	imageTransport := a.proxy
	imageTransport.Timeout = providerCfg.Timeout
	imageHTTP, err := transport.NewHTTPClient(imageTransport)
	if err != nil {
		return nil, fmt.Errorf("image api http client: %w", err)
	}

	botTransport := a.proxy
	// 长轮询请求本身会挂起 UpdateTimeout 秒
	botTransport.Timeout = time.Duration(cfg.Bot.UpdateTimeout+15) * time.Second
	a.botClient, err = transport.NewHTTPClient(botTransport)
	if err != nil {
		return nil, fmt.Errorf("telegram http client: %w", err)
	}

	otelRecorder, err := telemetry.NewRecorder()
	if err != nil {
		return nil, fmt.Errorf("otel recorder: %w", err)
	}

	a.images = image.NewClient(providerCfg, logger,
		image.WithHTTPClient(imageHTTP),
		image.WithRecorder(image.MultiRecorder(collector, otelRecorder)),
	)

	a.store = session.NewStore(session.Options{
		FreeLimit: cfg.Plans.FreeLimit,
		Cooldown:  time.Duration(cfg.Security.CooldownMs) * time.Millisecond,
	}, nil)
	a.gate = guard.NewGate(a.store, guard.Config{
		Keywords: cfg.Security.BlocklistKeywords,
		Policy:   cfg.Security.NSFWPolicy,
	}, logger)
	a.ledger = usage.NewLedger(a.store, logger)

	if cfg.Server.Enabled {
		a.ops = server.NewManager(a.opsHandler(), server.FromServerConfig(cfg.Server), logger)
	}

	logger.Info("components assembled",
		zap.String("api_base", providerCfg.BaseURL),
		zap.Strings("endpoints", providerCfg.Endpoints),
		zap.String("provider_kind", string(providerCfg.Kind)),
		zap.String("retry", providerCfg.Retry.String()),
		zap.String("proxy", transport.Describe(a.proxy)),
	)
	return a, nil
}

// watchConfig 监听配置文件，变更后更新闸门的内容策略
func (a *app) watchConfig(path string) error {
	w, err := config.NewWatcher(path, nil,
		config.WithPollInterval(a.cfg.Reload.Interval),
		config.WithWatcherLogger(a.logger),
	)
	if err != nil {
		return err
	}
	w.OnReload(func(c *config.Config) {
		a.gate.SetContentPolicy(guard.Config{
			Keywords: c.Security.BlocklistKeywords,
			Policy:   c.Security.NSFWPolicy,
		})
	})
	a.watcher = w
	return nil
}

// opsHandler 运维路由加中间件链
func (a *app) opsHandler() http.Handler {
	mux := server.NewOpsMux(server.RoutesOptions{
		Version: Version,
		Ready:   a.readiness,
	})
	return Chain(mux,
		Recovery(a.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(a.collector),
		RequestLogger(a.logger),
	)
}

func (a *app) readiness() error {
	if !a.ready.Load() {
		return errors.New("telegram bot not connected")
	}
	return nil
}

// newHandler 以给定 Messenger 构造机器人前端
func (a *app) newHandler(m bot.Messenger) *bot.Handler {
	return bot.NewHandler(m, a.images, a.store, a.gate, a.ledger, bot.Options{
		ModelLabel:              a.cfg.Bot.ModelLabel,
		ChargeOnDeliveryFailure: a.cfg.Plans.ChargeOnDeliveryFailure,
		Fetcher:                 a.images.Downloader(),
		Recorder:                a.collector,
	}, a.logger)
}

// run 并行运行更新循环与运维服务，任一退出即整体退出
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.ops != nil {
		g.Go(func() error {
			return a.ops.Run(gctx)
		})
	}
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		api, err := telegram.Connect(a.cfg.Bot, a.botClient, a.logger)
		if err != nil {
			return err
		}
		a.logger.Info("telegram bot connected", zap.String("username", api.Self.UserName))
		a.ready.Store(true)
		defer a.ready.Store(false)

		runner := telegram.NewRunner(api, a.newHandler(telegram.NewMessenger(api, a.logger)), telegram.RunnerOptions{
			UpdateTimeout: a.cfg.Bot.UpdateTimeout,
			MaxConcurrent: a.cfg.Bot.MaxConcurrent,
		}, a.logger)
		if err := runner.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("telegram update loop exited unexpectedly")
		}
		return nil
	})

	return g.Wait()
}
