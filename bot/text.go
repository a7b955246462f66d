package bot

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPromptRunes 自由文本提示词的最小长度
const MinPromptRunes = 3

var negativeSuffix = regexp.MustCompile(`(?is)\|\s*(negative|np)\s*:\s*(.+)$`)

// ParseUserText 拆分 "提示词 | negative: 反向提示词" 形式的输入
func ParseUserText(text string) (prompt, negative string) {
	m := negativeSuffix.FindStringSubmatchIndex(text)
	if m == nil {
		return strings.TrimSpace(text), ""
	}
	negative = strings.TrimSpace(text[m[4]:m[5]])
	prompt = strings.TrimSpace(text[:m[0]] + text[m[1]:])
	return prompt, negative
}

// DimsFromSize 将画质偏好映射为宽高
func DimsFromSize(size int) (width, height int) {
	switch size {
	case 1080:
		return 1920, 1080
	case 720:
		return 1280, 720
	case 1024:
		return 1024, 1024
	case 768:
		return 768, 768
	default:
		return 1024, 1024
	}
}

// parseCommand 解析 "/cmd@bot args"，命令名小写返回
func parseCommand(text string) (cmd, args string, ok bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return "", "", false
	}
	head, rest := t[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func promptTooShort(prompt string) bool {
	return utf8.RuneCountInString(prompt) < MinPromptRunes
}
