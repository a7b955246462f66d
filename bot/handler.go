package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/guard"
	"github.com/BaSui01/rsimage/image"
	"github.com/BaSui01/rsimage/internal/ctxkeys"
	"github.com/BaSui01/rsimage/internal/retry"
	"github.com/BaSui01/rsimage/session"
	"github.com/BaSui01/rsimage/types"
	"github.com/BaSui01/rsimage/usage"
)

// =============================================================================
// 💬 回复文案
// =============================================================================

const (
	msgWelcome       = "Hi! I'm RSIMAGE.\nUse the keyboard below or send a prompt directly and I'll create an image. 🤖🎨"
	msgHelp          = "Use the quick keyboard: 🖼 Generate image, ⚙️ Settings, 👤 Account, 💳 Subscribe.\nOr just send your prompt."
	msgAskPrompt     = "Please send the text (prompt) for the image you want."
	msgChooseQuality = "Choose the image quality:"
	msgQualitySet    = "Quality set: %s"
	msgUpgraded      = "Congratulations! Your subscription has been upgraded to Pro and the limit has been removed."
	msgImgUsage      = "Please enter a prompt after /img. Example: /img a cute cat"
	msgPromptShort   = "Please send a more complete prompt (text) to generate an image."
	msgGenerating    = "Generating image… ⏳"
	msgFailed        = "⚠️ Image generation failed: %s"
	captionFormat    = "✅ Image ready | model: %s"
)

// =============================================================================
// 🤖 Handler
// =============================================================================

// Options Handler 选项
type Options struct {
	// ModelLabel 图片说明中展示的模型名
	ModelLabel string
	// ChargeOnDeliveryFailure 为 true 时生成成功即计费，否则投递成功后才计费
	ChargeOnDeliveryFailure bool
	// Fetcher URL 发送失败时用于重新下载图片
	Fetcher Fetcher
	Recorder Recorder
	Clock    retry.Clock
}

// Handler 平台无关的机器人前端：闸门、命令路由、额度、生成与投递
type Handler struct {
	messenger Messenger
	generator Generator
	store     *session.Store
	gate      *guard.Gate
	ledger    *usage.Ledger

	fetcher  Fetcher
	recorder Recorder
	clock    retry.Clock
	label    string
	charge   bool
	logger   *zap.Logger
}

// NewHandler 创建 Handler
func NewHandler(
	messenger Messenger,
	generator Generator,
	store *session.Store,
	gate *guard.Gate,
	ledger *usage.Ledger,
	opts Options,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = retry.SystemClock()
	}
	if opts.ModelLabel == "" {
		opts.ModelLabel = "nano-banana"
	}
	return &Handler{
		messenger: messenger,
		generator: generator,
		store:     store,
		gate:      gate,
		ledger:    ledger,
		fetcher:   opts.Fetcher,
		recorder:  opts.Recorder,
		clock:     opts.Clock,
		label:     opts.ModelLabel,
		charge:    opts.ChargeOnDeliveryFailure,
		logger:    logger.With(zap.String("component", "bot")),
	}
}

// Handle 处理一条入站文本消息。面向用户的失败以回复告知，
// 返回的错误仅表示回复本身发送失败。
func (h *Handler) Handle(ctx context.Context, u Update) error {
	ctx, _ = ctxkeys.EnsureRequestID(ctx)
	ctx = ctxkeys.WithUserID(ctx, u.UserID)
	ctx = ctxkeys.WithChatID(ctx, u.ChatID)
	logger := h.logger.With(ctxkeys.Fields(ctx)...)

	// 无发送者的消息不经过闸门
	if u.UserID != 0 {
		d := h.gate.Evaluate(u.UserID, u.Text, h.clock.Now())
		h.recorder.RecordGate(gateResult(d))
		if !d.Allowed {
			logger.Debug("message gated", zap.String("reason", string(d.Reason)))
			return h.reply(ctx, u.ChatID, types.UserMessage(d.Err()), nil)
		}
	}

	if cmd, args, ok := parseCommand(u.Text); ok {
		switch cmd {
		case "start":
			return h.reply(ctx, u.ChatID, msgWelcome, MainKeyboard())
		case "help":
			return h.reply(ctx, u.ChatID, msgHelp, MainKeyboard())
		case "settings":
			return h.reply(ctx, u.ChatID, msgChooseQuality, SettingsKeyboard())
		case "img":
			if args == "" {
				return h.reply(ctx, u.ChatID, msgImgUsage, nil)
			}
			return h.generate(ctx, u, args, logger)
		}
	}

	switch u.Text {
	case LabelGenerate:
		return h.reply(ctx, u.ChatID, msgAskPrompt, nil)
	case LabelSettings:
		return h.reply(ctx, u.ChatID, msgChooseQuality, SettingsKeyboard())
	case LabelQuality1080:
		return h.setQuality(ctx, u, 1080, "1080p")
	case LabelQuality720:
		return h.setQuality(ctx, u, 720, "720p")
	case LabelSubscribe:
		h.ledger.Upgrade(u.UserID)
		return h.reply(ctx, u.ChatID, msgUpgraded, MainKeyboard())
	case LabelAccount:
		entry := h.store.Get(u.UserID)
		return h.reply(ctx, u.ChatID, FormatAccount(entry, h.clock.Now()), MainKeyboard())
	}

	prompt, _ := ParseUserText(u.Text)
	if promptTooShort(prompt) {
		return h.reply(ctx, u.ChatID, msgPromptShort, nil)
	}
	return h.generate(ctx, u, u.Text, logger)
}

func (h *Handler) setQuality(ctx context.Context, u Update, size int, label string) error {
	h.store.Update(u.UserID, func(e *session.Entry) {
		e.Prefs.Size = size
	})
	return h.reply(ctx, u.ChatID, fmt.Sprintf(msgQualitySet, label), MainKeyboard())
}

// generate 额度检查 → 状态提示 → 生成 → 计费 → 投递
func (h *Handler) generate(ctx context.Context, u Update, raw string, logger *zap.Logger) error {
	ok, quota := h.ledger.CheckQuota(u.UserID)
	if !ok {
		h.recorder.RecordQuotaDenied(string(quota.Plan))
		logger.Info("quota exceeded", zap.String("plan", string(quota.Plan)), zap.Int("used", quota.Used))
		return h.reply(ctx, u.ChatID, types.UserMessage(usage.QuotaError(quota)), nil)
	}

	statusID, err := h.messenger.SendText(ctx, u.ChatID, msgGenerating, nil)
	if err != nil {
		logger.Warn("send status message failed", zap.Error(err))
	} else {
		defer h.deleteStatus(ctx, u.ChatID, statusID, logger)
	}
	if err := h.messenger.SendChatAction(ctx, u.ChatID, ChatActionUploadPhoto); err != nil {
		logger.Debug("send chat action failed", zap.Error(err))
	}

	prompt, negative := ParseUserText(raw)
	prefs := h.store.Get(u.UserID).Prefs
	width, height := DimsFromSize(prefs.Size)
	req := image.GenerationRequest{
		Prompt:         prompt,
		NegativePrompt: negative,
		Width:          width,
		Height:         height,
		Count:          1,
		ResponseFormat: image.ResponseFormat(prefs.ResponseFormat),
	}

	started := h.clock.Now()
	result, err := h.generator.Generate(ctx, req)
	if err != nil {
		logger.Warn("image generation failed",
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Error(err))
		return h.reply(ctx, u.ChatID, fmt.Sprintf(msgFailed, types.UserMessage(err)), nil)
	}
	logger.Info("image generated",
		zap.Bool("has_url", result.URL != ""),
		zap.Int("bytes", len(result.Data)),
		zap.Duration("elapsed", h.clock.Now().Sub(started)))

	if h.charge {
		h.recordUsage(u.UserID)
	}
	h.rememberJob(u.UserID, prompt, negative, prefs, result)

	method, err := h.deliver(ctx, u.ChatID, result)
	if err != nil {
		logger.Warn("image delivery failed", zap.Error(err))
		return h.reply(ctx, u.ChatID, fmt.Sprintf(msgFailed, types.UserMessage(err)), nil)
	}
	logger.Debug("image delivered", zap.String("method", method))

	if !h.charge {
		h.recordUsage(u.UserID)
	}
	return nil
}

func (h *Handler) recordUsage(userID int64) {
	u := h.ledger.RecordSuccess(userID)
	h.recorder.RecordUsage(string(u.Plan))
}

func (h *Handler) rememberJob(userID int64, prompt, negative string, prefs session.Prefs, result *image.ImageResult) {
	job := &session.Job{
		Prompt:   prompt,
		Negative: negative,
		Prefs:    prefs,
		URL:      result.URL,
		HasBytes: len(result.Data) > 0,
		At:       h.clock.Now(),
	}
	h.store.Update(userID, func(e *session.Entry) {
		e.LastJob = job
	})
}

func (h *Handler) deleteStatus(ctx context.Context, chatID int64, messageID int, logger *zap.Logger) {
	// 原始 ctx 可能已取消，删除状态消息使用短超时的独立上下文
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := h.messenger.DeleteMessage(delCtx, chatID, messageID); err != nil {
		logger.Debug("delete status message failed", zap.Error(err))
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	if _, err := h.messenger.SendText(ctx, chatID, text, kb); err != nil {
		return fmt.Errorf("reply to chat %d: %w", chatID, err)
	}
	return nil
}

func gateResult(d guard.Decision) string {
	if d.Allowed {
		return "allowed"
	}
	return string(d.Reason)
}
