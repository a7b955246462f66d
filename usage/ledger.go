package usage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/session"
	"github.com/BaSui01/rsimage/types"
)

// Ledger 用量账本，按用户记录套餐、已用次数与上限
type Ledger struct {
	store  *session.Store
	logger *zap.Logger
}

// NewLedger 创建用量账本
func NewLedger(store *session.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		logger: logger.With(zap.String("component", "usage")),
	}
}

// CheckQuota 检查用户是否还有额度。pro 用户始终通过；free 用户 used < limit 时通过。
// 返回的 Usage 供调用方在拒绝时展示给用户。
func (l *Ledger) CheckQuota(userID int64) (bool, session.Usage) {
	u := l.Snapshot(userID)
	if u.Plan == session.PlanPro || u.Unbounded() {
		return true, u
	}
	return u.Used < u.Limit, u
}

// RecordSuccess 成功生成一次，used 加 1
func (l *Ledger) RecordSuccess(userID int64) session.Usage {
	var u session.Usage
	l.store.Update(userID, func(e *session.Entry) {
		e.Usage.Used++
		u = e.Usage
	})
	l.logger.Debug("usage recorded",
		zap.Int64("user_id", userID),
		zap.Int("used", u.Used),
		zap.Int("limit", u.Limit))
	return u
}

// Upgrade 升级到 pro 并取消上限，可重复调用
func (l *Ledger) Upgrade(userID int64) session.Usage {
	var (
		u       session.Usage
		changed bool
	)
	l.store.Update(userID, func(e *session.Entry) {
		changed = e.Usage.Plan != session.PlanPro
		e.Usage.Plan = session.PlanPro
		e.Usage.Limit = session.Unlimited
		u = e.Usage
	})
	if changed {
		l.logger.Info("plan upgraded", zap.Int64("user_id", userID), zap.String("plan", string(u.Plan)))
	}
	return u
}

// Snapshot 返回用户当前用量
func (l *Ledger) Snapshot(userID int64) session.Usage {
	return l.store.Get(userID).Usage
}

// QuotaError 构造额度耗尽错误，消息中包含套餐与用量
func QuotaError(u session.Usage) error {
	return types.NewError(types.ErrQuotaExceeded,
		fmt.Sprintf("plan: %s | used: %s this period. Tap \"💳 Subscribe\" to upgrade.", u.Plan, FormatUsed(u)))
}

// FormatUsed 渲染 used/limit，无上限时显示 ∞
func FormatUsed(u session.Usage) string {
	if u.Unbounded() {
		return fmt.Sprintf("%d/∞", u.Used)
	}
	return fmt.Sprintf("%d/%d", u.Used, u.Limit)
}
