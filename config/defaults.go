// =============================================================================
// 📦 rsimage 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Bot:       DefaultBotConfig(),
		ImageAPI:  DefaultImageAPIConfig(),
		Security:  DefaultSecurityConfig(),
		Plans:     DefaultPlansConfig(),
		Proxy:     ProxyConfig{},
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Reload:    DefaultReloadConfig(),
	}
}

// DefaultBotConfig 返回默认机器人配置
func DefaultBotConfig() BotConfig {
	return BotConfig{
		ModelLabel:    "nano-banana",
		UpdateTimeout: 60,
		MaxConcurrent: 16,
	}
}

// DefaultImageAPIConfig 返回默认上游图像服务配置
func DefaultImageAPIConfig() ImageAPIConfig {
	return ImageAPIConfig{
		Endpoint:       "/generate",
		AltEndpoints:   []string{"/generate", "/image/generate", "/images", "/images/generate"},
		Method:         "POST",
		Headers:        map[string]string{},
		StatusEndpoint: "/record-info",
		RequestSchema: RequestSchemaConfig{
			Width:          1024,
			Height:         1024,
			N:              1,
			ResponseFormat: "url",
			Steps:          28,
			Guidance:       7.5,
		},
		Timeouts: TimeoutsConfig{
			ReadMs: 120000,
		},
		RetryPolicy: RetryPolicyConfig{
			Retries:   2,
			BackoffMs: 1500,
		},
	}
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CooldownMs:        5000,
		BlocklistKeywords: []string{},
		NSFWPolicy:        "block_and_warn",
	}
}

// DefaultPlansConfig 返回默认套餐配置
func DefaultPlansConfig() PlansConfig {
	return PlansConfig{
		FreeLimit:               20,
		ChargeOnDeliveryFailure: true,
	}
}

// DefaultServerConfig 返回默认运维服务配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:         true,
		Addr:            ":9091",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "rsimage",
		SampleRate:   0.1,
	}
}

// DefaultReloadConfig 返回默认热重载配置
func DefaultReloadConfig() ReloadConfig {
	return ReloadConfig{
		Enabled:  false,
		Interval: 2 * time.Second,
	}
}
