package bot

import (
	"context"

	"github.com/BaSui01/rsimage/image"
)

// =============================================================================
// 📦 聊天平台抽象
// =============================================================================

// Keyboard 回复键盘，按行排列的按钮文本；nil 表示不附带键盘
type Keyboard [][]string

// ChatActionUploadPhoto 上传图片中的状态提示
const ChatActionUploadPhoto = "upload_photo"

// Update 一条入站文本消息
type Update struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
}

// Photo 待发送的图片，Bytes 与 URL 二选一
type Photo struct {
	Bytes    []byte
	URL      string
	Filename string
	Caption  string
}

// Messenger 聊天平台出站能力
type Messenger interface {
	// SendText 发送文本，返回消息 ID
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photo Photo) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Generator 图像生成能力，由 *image.Client 实现
type Generator interface {
	Generate(ctx context.Context, req image.GenerationRequest) (*image.ImageResult, error)
}

// Fetcher 图片下载能力，由 *image.Downloader 实现
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Recorder 前端业务事件观测，由 metrics.Collector 实现
type Recorder interface {
	RecordGate(result string)
	RecordQuotaDenied(plan string)
	RecordUsage(plan string)
	RecordDelivery(method string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordGate(string)           {}
func (nopRecorder) RecordQuotaDenied(string)    {}
func (nopRecorder) RecordUsage(string)          {}
func (nopRecorder) RecordDelivery(string, bool) {}

var (
	_ Generator = (*image.Client)(nil)
	_ Fetcher   = (*image.Downloader)(nil)
)
