package image

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/BaSui01/rsimage/config"
	"github.com/BaSui01/rsimage/internal/retry"
	"github.com/BaSui01/rsimage/types"
)

// ProviderKind 上游服务类型
type ProviderKind string

const (
	// KindGeneric 同步返回图像的通用服务
	KindGeneric ProviderKind = "generic"
	// KindTaskBased 先返回任务 ID、再轮询结果的服务
	KindTaskBased ProviderKind = "task_based"
)

// ResponseFormat 期望的图像返回形式
type ResponseFormat string

const (
	FormatURL    ResponseFormat = "url"
	FormatBase64 ResponseFormat = "base64"
)

// GenerationRequest 单次生成请求，每条用户消息构造一次。
// 零值字段在构造请求体时回落到 request_schema 默认值。
type GenerationRequest struct {
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Width          int            `json:"width,omitempty"`
	Height         int            `json:"height,omitempty"`
	Count          int            `json:"count,omitempty"`
	ResponseFormat ResponseFormat `json:"response_format,omitempty"`
	Steps          int            `json:"steps,omitempty"`
	Guidance       float64        `json:"guidance,omitempty"`
	Seed           int64          `json:"seed,omitempty"`
	Style          string         `json:"style,omitempty"`
}

// ImageResult 生成结果。成功时 URL 与 Data 至少有一个非空。
type ImageResult struct {
	URL  string         `json:"url,omitempty"`
	Data []byte         `json:"-"`
	Meta map[string]any `json:"meta,omitempty"`
}

// HasImage 是否携带可投递的图像
func (r *ImageResult) HasImage() bool {
	return r != nil && (r.URL != "" || len(r.Data) > 0)
}

// Base64 返回内联数据的 base64 编码
func (r *ImageResult) Base64() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Data)
}

// TaskHandle 异步任务句柄，仅在轮询循环内存活
type TaskHandle struct {
	ID          string
	SubmittedAt time.Time
}

// 默认的终态失败状态码
var defaultTerminalCodes = []int{400, 500, 501, 2, 3}

// ProviderConfig 上游服务配置，进程启动时加载，之后只读
type ProviderConfig struct {
	BaseURL        string
	Endpoints      []string // 非空，第一个为主端点
	Method         string
	Headers        map[string]string
	Token          string
	Provider       string
	Kind           ProviderKind
	StatusEndpoint string
	Defaults       config.RequestSchemaConfig
	Timeout        time.Duration
	Retry          retry.Policy
	TerminalCodes  []int
}

// NewProviderConfig 从配置构造，补齐默认值
func NewProviderConfig(c config.ImageAPIConfig) ProviderConfig {
	defaults := config.DefaultImageAPIConfig()

	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		endpoint = defaults.Endpoint
	}
	alts := c.AltEndpoints
	if len(alts) == 0 {
		alts = defaults.AltEndpoints
	}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method == "" {
		method = defaults.Method
	}

	status := strings.TrimSpace(c.StatusEndpoint)
	if status == "" {
		status = defaults.StatusEndpoint
	}

	timeout := time.Duration(c.Timeouts.ReadMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(defaults.Timeouts.ReadMs) * time.Millisecond
	}

	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}

	return ProviderConfig{
		BaseURL:        SanitizeBase(c.APIBase),
		Endpoints:      dedupeEndpoints(append([]string{endpoint}, alts...)),
		Method:         method,
		Headers:        headers,
		Token:          strings.TrimSpace(c.Token),
		Provider:       c.Provider,
		Kind:           DetectKind(c.ProviderKind, c.Provider),
		StatusEndpoint: status,
		Defaults:       c.RequestSchema,
		Timeout:        timeout,
		Retry: retry.NewPolicy(c.RetryPolicy.Retries,
			time.Duration(c.RetryPolicy.BackoffMs)*time.Millisecond),
		TerminalCodes: append([]int(nil), defaultTerminalCodes...),
	}
}

// Validate 检查发起请求前必须具备的凭据与地址
func (c ProviderConfig) Validate() error {
	if c.BaseURL == "" {
		return types.NewError(types.ErrValidation, "image API base URL is missing in config")
	}
	if c.Token == "" {
		return types.NewError(types.ErrValidation, "IMAGE_API_TOKEN is missing")
	}
	if len(c.Endpoints) == 0 {
		return types.NewError(types.ErrValidation, "no image API endpoint configured")
	}
	return nil
}

// PollInterval 轮询间隔，取退避基数并限制在 [1s, 5s]
func (c ProviderConfig) PollInterval() time.Duration {
	return retry.Clamp(c.Retry.Backoff, time.Second, 5*time.Second)
}

// IsTerminal 判断任务状态码是否为终态失败
func (c ProviderConfig) IsTerminal(code int) bool {
	for _, t := range c.TerminalCodes {
		if t == code {
			return true
		}
	}
	return false
}

// DetectKind 显式类型优先，否则 provider 名包含 nano-banana 视为任务型
func DetectKind(kind, provider string) ProviderKind {
	switch ProviderKind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindTaskBased:
		return KindTaskBased
	case KindGeneric:
		return KindGeneric
	}
	if strings.Contains(strings.ToLower(provider), "nano-banana") {
		return KindTaskBased
	}
	return KindGeneric
}

// SanitizeBase 去掉首尾空白、反引号与末尾斜杠
func SanitizeBase(base string) string {
	base = strings.ReplaceAll(strings.TrimSpace(base), "`", "")
	return strings.TrimRight(base, "/")
}

func dedupeEndpoints(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, ep := range in {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}

// ===== 📊 观测钩子 =====

// Outcome 单次尝试、轮询或整次生成的结果标签
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeRetryable  Outcome = "retryable"
	OutcomeTerminal   Outcome = "terminal"
	OutcomeEmpty      Outcome = "empty"
	OutcomeTaskQueued Outcome = "task_queued"
	OutcomePending    Outcome = "pending"
	OutcomeTransport  Outcome = "transport_error"
	OutcomeFailed     Outcome = "failed"
	OutcomeTimeout    Outcome = "timeout"
)

// Recorder 接收生成过程中的观测事件，由 metrics.Collector 实现
type Recorder interface {
	RecordAttempt(ctx context.Context, endpoint string, outcome Outcome, d time.Duration)
	RecordPoll(ctx context.Context, outcome Outcome)
	RecordGeneration(ctx context.Context, kind ProviderKind, outcome Outcome, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(context.Context, string, Outcome, time.Duration) {}
func (nopRecorder) RecordPoll(context.Context, Outcome) {}
func (nopRecorder) RecordGeneration(context.Context, ProviderKind, Outcome, time.Duration) {}

// MultiRecorder 将事件依次分发给多个 Recorder，nil 项被跳过
func MultiRecorder(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nopRecorder{}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) RecordAttempt(ctx context.Context, endpoint string, outcome Outcome, d time.Duration) {
	for _, r := range m {
		r.RecordAttempt(ctx, endpoint, outcome, d)
	}
}

func (m multiRecorder) RecordPoll(ctx context.Context, outcome Outcome) {
	for _, r := range m {
		r.RecordPoll(ctx, outcome)
	}
}

func (m multiRecorder) RecordGeneration(ctx context.Context, kind ProviderKind, outcome Outcome, d time.Duration) {
	for _, r := range m {
		r.RecordGeneration(ctx, kind, outcome, d)
	}
}
