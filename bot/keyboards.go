package bot

// 键盘按钮文本
const (
	LabelGenerate    = "🖼 Generate image"
	LabelSettings    = "⚙️ Settings"
	LabelAccount     = "👤 Account"
	LabelSubscribe   = "💳 Subscribe"
	LabelQuality1080 = "Quality: 1080p"
	LabelQuality720  = "Quality: 720p"
)

var controlLabels = map[string]struct{}{
	LabelGenerate:    {},
	LabelSettings:    {},
	LabelAccount:     {},
	LabelSubscribe:   {},
	LabelQuality1080: {},
	LabelQuality720:  {},
}

// MainKeyboard 主菜单
func MainKeyboard() Keyboard {
	return Keyboard{
		{LabelGenerate},
		{LabelSettings, LabelAccount},
		{LabelSubscribe},
	}
}

// SettingsKeyboard 画质选择
func SettingsKeyboard() Keyboard {
	return Keyboard{
		{LabelQuality1080, LabelQuality720},
	}
}

// IsControlLabel 文本是否为键盘按钮，按钮文本不会被当作提示词
func IsControlLabel(text string) bool {
	_, ok := controlLabels[text]
	return ok
}
