package guard

import (
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/session"
	"github.com/BaSui01/rsimage/types"
)

// Reason 拒绝原因
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonCooldown      Reason = "cooldown"
	ReasonUnsafeContent Reason = "unsafe_content"
)

// PolicyBlockAndWarn 命中黑名单即拒绝；其他取值放行
const PolicyBlockAndWarn = "block_and_warn"

// Decision 闸门判定结果
type Decision struct {
	Allowed          bool
	Reason           Reason
	RemainingSeconds int // 仅 ReasonCooldown 时有效
}

// Allow 放行
func Allow() Decision {
	return Decision{Allowed: true}
}

// Err 将拒绝判定转换为结构化错误，放行时返回 nil
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonCooldown:
		return types.Errorf(types.ErrCooldown, "please wait %d seconds before sending again", d.RemainingSeconds)
	case ReasonUnsafeContent:
		return types.NewError(types.ErrContentBlocked, "your message contains disallowed content and was not processed")
	}
	return nil
}

// Config 闸门配置
type Config struct {
	Keywords []string
	Policy   string
}

// Gate 请求闸门：冷却检查在前并在通过时立即记录时间，安全检查在后。
// 因此被安全规则拦截的消息同样会重置冷却窗口。
type Gate struct {
	store  *session.Store
	logger *zap.Logger

	mu       sync.RWMutex
	keywords []string
	policy   string
}

// NewGate 创建请求闸门
func NewGate(store *session.Store, cfg Config, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		store:  store,
		logger: logger.With(zap.String("component", "guard")),
	}
	g.keywords, g.policy = normalizePolicy(cfg)
	return g
}

// SetContentPolicy 运行中替换黑名单与策略，冷却状态不受影响
func (g *Gate) SetContentPolicy(cfg Config) {
	keywords, policy := normalizePolicy(cfg)
	g.mu.Lock()
	g.keywords, g.policy = keywords, policy
	g.mu.Unlock()
	g.logger.Info("content policy updated",
		zap.Int("keywords", len(keywords)),
		zap.String("policy", policy))
}

func normalizePolicy(cfg Config) ([]string, string) {
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyBlockAndWarn
	}
	return keywords, policy
}

// Evaluate 判定 userID 在 now 时刻发送 text 是否放行
func (g *Gate) Evaluate(userID int64, text string, now time.Time) Decision {
	// 第一阶段：冷却
	if d := g.checkCooldown(userID, now); !d.Allowed {
		g.logger.Debug("cooldown active",
			zap.Int64("user_id", userID),
			zap.Int("remaining_seconds", d.RemainingSeconds))
		return d
	}

	// 第二阶段：内容安全
	g.mu.RLock()
	blocked := g.policy == PolicyBlockAndWarn && ContainsBlocked(text, g.keywords)
	g.mu.RUnlock()
	if blocked {
		g.logger.Info("message blocked by keyword filter", zap.Int64("user_id", userID))
		return Decision{Reason: ReasonUnsafeContent}
	}
	return Allow()
}

func (g *Gate) checkCooldown(userID int64, now time.Time) Decision {
	cooldown := g.store.Cooldown()
	var d Decision
	g.store.Update(userID, func(e *session.Entry) {
		if e.Limiter().AllowN(now, 1) {
			e.LastAction = now
			d = Allow()
			return
		}
		d = Decision{
			Reason:           ReasonCooldown,
			RemainingSeconds: remainingSeconds(cooldown, now.Sub(e.LastAction)),
		}
	})
	return d
}

func remainingSeconds(cooldown, elapsed time.Duration) int {
	left := cooldown - elapsed
	if left <= 0 {
		return 1
	}
	return int(math.Ceil(left.Seconds()))
}

// ContainsBlocked 大小写不敏感的子串匹配，keywords 需已转为小写
func ContainsBlocked(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
