package guard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/rsimage/session"
)

// 冷却窗口内的第二次请求必被拒绝，窗口外必被放行
func TestProperty_Gate_CooldownWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cooldownMs := rapid.IntRange(1000, 60000).Draw(rt, "cooldownMs")
		gapMs := rapid.IntRange(0, 120000).Draw(rt, "gapMs")

		store := session.NewStore(session.Options{Cooldown: time.Duration(cooldownMs) * time.Millisecond}, nil)
		g := NewGate(store, Config{}, nil)

		assert.True(rt, g.Evaluate(9, "prompt", t0).Allowed)
		d := g.Evaluate(9, "prompt", t0.Add(time.Duration(gapMs)*time.Millisecond))

		if gapMs < cooldownMs {
			assert.False(rt, d.Allowed, "gap=%d cooldown=%d", gapMs, cooldownMs)
			assert.GreaterOrEqual(rt, d.RemainingSeconds, 1)
			assert.LessOrEqual(rt, d.RemainingSeconds, (cooldownMs+999)/1000)
		} else if gapMs > cooldownMs {
			assert.True(rt, d.Allowed, "gap=%d cooldown=%d", gapMs, cooldownMs)
		}
	})
}

// 包含关键词的任意大小写变体都会被拦截
func TestProperty_Gate_KeywordCaseInsensitive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keyword := rapid.StringMatching(`[a-z]{3,8}`).Draw(rt, "keyword")
		prefix := rapid.StringMatching(`[ a-z0-9]{0,10}`).Draw(rt, "prefix")
		upper := rapid.Bool().Draw(rt, "upper")

		word := keyword
		if upper {
			word = strings.ToUpper(keyword)
		}

		store := session.NewStore(session.Options{}, nil)
		g := NewGate(store, Config{Keywords: []string{keyword}, Policy: PolicyBlockAndWarn}, nil)

		d := g.Evaluate(1, prefix+word, t0)
		assert.Equal(rt, ReasonUnsafeContent, d.Reason)
	})
}
