package usage

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// 免费用户最多成功记账 limit 次：每次记账前都先检查额度
func TestProperty_Ledger_FreePlanNeverExceedsLimit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("checked recording stops exactly at the limit", prop.ForAll(
		func(limit int, requests int) bool {
			l, _ := newLedger(limit)
			granted := 0
			for i := 0; i < requests; i++ {
				if ok, _ := l.CheckQuota(1); ok {
					l.RecordSuccess(1)
					granted++
				}
			}
			want := requests
			if limit < want {
				want = limit
			}
			return granted == want && l.Snapshot(1).Used == want
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 60),
	))

	properties.Property("upgrade is idempotent at any usage level", prop.ForAll(
		func(used int, upgrades int) bool {
			l, _ := newLedger(20)
			for i := 0; i < used; i++ {
				l.RecordSuccess(1)
			}
			for i := 0; i < upgrades; i++ {
				l.Upgrade(1)
			}
			u := l.Snapshot(1)
			ok, _ := l.CheckQuota(1)
			return u.Plan == "pro" && u.Unbounded() && u.Used == used && ok
		},
		gen.IntRange(0, 50),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
