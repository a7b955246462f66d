package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/rsimage/session"
	"github.com/BaSui01/rsimage/usage"
)

// FormatAccount 渲染账户页：ID、用量、套餐、加入日期与时长、钱包
func FormatAccount(e session.Entry, now time.Time) string {
	age := now.Sub(e.JoinedAt)
	if age < 0 {
		age = 0
	}
	days := int(age / (24 * time.Hour))
	hours := int((age % (24 * time.Hour)) / time.Hour)

	var b strings.Builder
	b.WriteString("Account stats:\n")
	fmt.Fprintf(&b, "User ID: %d\n", e.UserID)
	fmt.Fprintf(&b, "Usage: %s | Plan: %s\n", usage.FormatUsed(e.Usage), e.Usage.Plan)
	fmt.Fprintf(&b, "Joined: %s (%d days and %d hours ago)\n", e.JoinedAt.UTC().Format("2006-01-02"), days, hours)
	fmt.Fprintf(&b, "Wallet: %d units", e.Wallet)
	return b.String()
}
