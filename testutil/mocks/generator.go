// MockGenerator 与 MockFetcher 是 bot.Generator / bot.Fetcher 的测试模拟实现。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/rsimage/bot"
	"github.com/BaSui01/rsimage/image"
)

// MockGenerator 是 bot.Generator 的模拟实现
type MockGenerator struct {
	mu sync.Mutex

	result       *image.ImageResult
	err          error
	generateFunc func(ctx context.Context, req image.GenerationRequest) (*image.ImageResult, error)

	calls []image.GenerationRequest
}

var _ bot.Generator = (*MockGenerator)(nil)

// NewMockGenerator 创建默认返回一张 URL 图片的 MockGenerator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		result: &image.ImageResult{URL: "https://img.example/mock.png"},
	}
}

// WithResult 设置固定结果
func (m *MockGenerator) WithResult(r *image.ImageResult) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
	return m
}

// WithError 设置返回错误
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithGenerateFunc 设置自定义生成函数
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, req image.GenerationRequest) (*image.ImageResult, error)) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
	return m
}

// Generate 实现 bot.Generator
func (m *MockGenerator) Generate(ctx context.Context, req image.GenerationRequest) (*image.ImageResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, result, err := m.generateFunc, m.result, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Calls 返回所有调用的请求
func (m *MockGenerator) Calls() []image.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.GenerationRequest(nil), m.calls...)
}

// CallCount 调用次数
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockFetcher 是 bot.Fetcher 的模拟实现
type MockFetcher struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls []string
}

var _ bot.Fetcher = (*MockFetcher)(nil)

// NewMockFetcher 创建返回固定字节的 MockFetcher
func NewMockFetcher(data []byte, err error) *MockFetcher {
	return &MockFetcher{data: data, err: err}
}

// Fetch 实现 bot.Fetcher
func (m *MockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// Calls 返回请求过的 URL
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockRecorder 是 bot.Recorder 的模拟实现
type MockRecorder struct {
	mu         sync.Mutex
	Gates      []string
	Denied     []string
	Usages     []string
	Deliveries []string
}

var _ bot.Recorder = (*MockRecorder)(nil)

func (m *MockRecorder) RecordGate(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gates = append(m.Gates, result)
}

func (m *MockRecorder) RecordQuotaDenied(plan string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Denied = append(m.Denied, plan)
}

func (m *MockRecorder) RecordUsage(plan string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Usages = append(m.Usages, plan)
}

func (m *MockRecorder) RecordDelivery(method string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "failure"
	if ok {
		status = "success"
	}
	m.Deliveries = append(m.Deliveries, method+":"+status)
}
