// MockMessenger 是 bot.Messenger 的测试模拟实现。
//
// 记录所有出站消息，并支持按发送方式注入错误。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/rsimage/bot"
)

// SentText 一条已发送的文本
type SentText struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  bot.Keyboard
}

// SentPhoto 一次图片发送尝试
type SentPhoto struct {
	ChatID int64
	Photo  bot.Photo
	Err    error
}

// MockMessenger 是 bot.Messenger 的模拟实现
type MockMessenger struct {
	mu sync.Mutex

	nextID  int
	texts   []SentText
	photos  []SentPhoto
	deleted []int
	actions []string

	textErr   error
	urlErr    error
	bytesErr  error
	deleteErr error
	photoFunc func(bot.Photo) error
}

var _ bot.Messenger = (*MockMessenger)(nil)

// NewMockMessenger 创建新的 MockMessenger
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{nextID: 100}
}

// WithTextError 文本发送返回错误
func (m *MockMessenger) WithTextError(err error) *MockMessenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textErr = err
	return m
}

// WithURLPhotoError 按 URL 发送图片返回错误
func (m *MockMessenger) WithURLPhotoError(err error) *MockMessenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urlErr = err
	return m
}

// WithBytesPhotoError 按字节上传图片返回错误
func (m *MockMessenger) WithBytesPhotoError(err error) *MockMessenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesErr = err
	return m
}

// WithDeleteError 删除消息返回错误
func (m *MockMessenger) WithDeleteError(err error) *MockMessenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
	return m
}

// WithPhotoFunc 自定义图片发送行为，优先于按方式注入的错误
func (m *MockMessenger) WithPhotoFunc(fn func(bot.Photo) error) *MockMessenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photoFunc = fn
	return m
}

// --- bot.Messenger 实现 ---

func (m *MockMessenger) SendText(ctx context.Context, chatID int64, text string, kb bot.Keyboard) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.textErr != nil {
		return 0, m.textErr
	}
	m.nextID++
	m.texts = append(m.texts, SentText{ChatID: chatID, MessageID: m.nextID, Text: text, Keyboard: kb})
	return m.nextID, nil
}

func (m *MockMessenger) SendPhoto(_ context.Context, chatID int64, photo bot.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	switch {
	case m.photoFunc != nil:
		err = m.photoFunc(photo)
	case photo.URL != "":
		err = m.urlErr
	default:
		err = m.bytesErr
	}
	m.photos = append(m.photos, SentPhoto{ChatID: chatID, Photo: photo, Err: err})
	return err
}

func (m *MockMessenger) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *MockMessenger) SendChatAction(_ context.Context, _ int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

// --- 查询方法 ---

// Texts 返回已发送的文本
func (m *MockMessenger) Texts() []SentText {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentText(nil), m.texts...)
}

// LastText 返回最后一条文本，没有时返回空字符串
func (m *MockMessenger) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1].Text
}

// Photos 返回所有图片发送尝试
func (m *MockMessenger) Photos() []SentPhoto {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentPhoto(nil), m.photos...)
}

// Deleted 返回被删除的消息 ID
func (m *MockMessenger) Deleted() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.deleted...)
}

// Actions 返回已发送的聊天动作
func (m *MockMessenger) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

// Reset 清空记录
func (m *MockMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = nil
	m.photos = nil
	m.deleted = nil
	m.actions = nil
}
