package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy 定义线性退避重试策略
// 第 attempt 次失败后（attempt 从 0 开始）等待 Backoff * (attempt+1)
type Policy struct {
	MaxRetries int           // 最大重试次数（0 表示不重试）
	Backoff    time.Duration // 退避基数
}

// NewPolicy 创建重试策略，负值归零
func NewPolicy(maxRetries int, backoff time.Duration) Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff < 0 {
		backoff = 0
	}
	return Policy{MaxRetries: maxRetries, Backoff: backoff}
}

// Attempts 返回单个端点上的最大尝试次数
func (p Policy) Attempts() int {
	return p.MaxRetries + 1
}

// HasNext 判断 attempt 之后是否还能重试
func (p Policy) HasNext(attempt int) bool {
	return attempt < p.MaxRetries
}

// Delay 计算第 attempt 次失败后的等待时间
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.Backoff * time.Duration(attempt+1)
}

// String 用于日志
func (p Policy) String() string {
	return fmt.Sprintf("linear(retries=%d, backoff=%s)", p.MaxRetries, p.Backoff)
}

// Clamp 将 d 限制在 [lo, hi] 区间
func Clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Sleeper 可注入的等待器，测试中替换为不真正休眠的实现
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc 函数适配器
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep 实现 Sleeper
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Clock 可注入的时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return systemClock{} }

// RealSleeper 返回基于 timer 的等待器，同时监听 context 取消
func RealSleeper() Sleeper {
	return SleeperFunc(sleepContext)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("等待被取消: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
