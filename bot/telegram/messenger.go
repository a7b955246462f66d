package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/bot"
)

// API Bot API 的出站子集，由 *tgbotapi.BotAPI 实现
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger 基于 Telegram Bot API 实现 bot.Messenger
type Messenger struct {
	api    API
	logger *zap.Logger
}

var _ bot.Messenger = (*Messenger)(nil)

// NewMessenger 创建 Messenger
func NewMessenger(api API, logger *zap.Logger) *Messenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{
		api:    api,
		logger: logger.With(zap.String("component", "telegram")),
	}
}

// SendText 发送文本，kb 非空时附带可缩放的回复键盘
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, kb bot.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kb) > 0 {
		msg.ReplyMarkup = replyKeyboard(kb)
	}
	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendPhoto 按字节上传或按 URL 发送图片
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, photo bot.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var file tgbotapi.RequestFileData
	switch {
	case len(photo.Bytes) > 0:
		name := photo.Filename
		if name == "" {
			name = "image.png"
		}
		file = tgbotapi.FileBytes{Name: name, Bytes: photo.Bytes}
	case photo.URL != "":
		file = tgbotapi.FileURL(photo.URL)
	default:
		return fmt.Errorf("send photo: empty photo")
	}

	cfg := tgbotapi.NewPhoto(chatID, file)
	cfg.Caption = photo.Caption
	if _, err := m.api.Send(cfg); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// DeleteMessage 删除消息
func (m *Messenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// SendChatAction 发送聊天动作（如 upload_photo）
func (m *Messenger) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}

func replyKeyboard(kb bot.Keyboard) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}
