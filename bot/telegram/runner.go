package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/rsimage/bot"
	"github.com/BaSui01/rsimage/config"
)

// UpdateSource 长轮询更新源，由 *tgbotapi.BotAPI 实现
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler 处理单条更新，由 *bot.Handler 实现
type Handler interface {
	Handle(ctx context.Context, u bot.Update) error
}

// Connect 通过给定 HTTP 客户端（可带代理）连接 Bot API 并校验 token
func Connect(cfg config.BotConfig, client *http.Client, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if logger != nil {
		// tgbotapi 自身的调试输出转入 zap
		_ = tgbotapi.SetLogger(zap.NewStdLog(logger.With(zap.String("component", "tgbotapi"))))
	}
	if client == nil {
		client = http.DefaultClient
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot api: %w", err)
	}
	api.Debug = cfg.Debug
	return api, nil
}

// RunnerOptions 更新循环选项
type RunnerOptions struct {
	// UpdateTimeout 长轮询超时（秒）
	UpdateTimeout int
	// MaxConcurrent 同时处理的更新数上限，<=0 时为 1
	MaxConcurrent int
}

// Runner 从长轮询通道读取更新并并发分发给 Handler，单条更新的 panic 不影响循环
type Runner struct {
	source  UpdateSource
	handler Handler
	opts    RunnerOptions
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	logger  *zap.Logger
}

// NewRunner 创建 Runner
func NewRunner(source UpdateSource, handler Handler, opts RunnerOptions, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Runner{
		source:  source,
		handler: handler,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:  logger.With(zap.String("component", "telegram_runner")),
	}
}

// Run 阻塞处理更新，直到 ctx 取消或更新通道关闭；返回前等待在途更新处理完毕
func (r *Runner) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = r.opts.UpdateTimeout
	updates := r.source.GetUpdatesChan(cfg)

	r.logger.Info("update loop started",
		zap.Int("timeout_s", r.opts.UpdateTimeout),
		zap.Int("max_concurrent", r.opts.MaxConcurrent))
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			r.source.StopReceivingUpdates()
			r.logger.Info("update loop stopping")
			return nil
		case upd, ok := <-updates:
			if !ok {
				r.logger.Info("update channel closed")
				return nil
			}
			u, ok := ToUpdate(upd)
			if !ok {
				continue
			}
			if err := r.sem.Acquire(ctx, 1); err != nil {
				r.source.StopReceivingUpdates()
				return nil
			}
			r.wg.Add(1)
			go r.dispatch(ctx, u)
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, u bot.Update) {
	defer r.wg.Done()
	defer r.sem.Release(1)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered while handling update",
				zap.Any("panic", rec),
				zap.Int64("user_id", u.UserID),
				zap.Int64("chat_id", u.ChatID))
		}
	}()

	if err := r.handler.Handle(ctx, u); err != nil {
		r.logger.Warn("handle update failed",
			zap.Int64("user_id", u.UserID),
			zap.Int64("chat_id", u.ChatID),
			zap.Error(err))
	}
}

// ToUpdate 提取文本消息，非文本更新返回 false
func ToUpdate(upd tgbotapi.Update) (bot.Update, bool) {
	msg := upd.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return bot.Update{}, false
	}
	u := bot.Update{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		u.UserID = msg.From.ID
	}
	return u, true
}
