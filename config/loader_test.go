// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader 使用给定环境变量表替代进程环境，避免宿主环境干扰
func newTestLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	return l
}

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证上游服务默认值
	assert.Equal(t, "/generate", cfg.ImageAPI.Endpoint)
	assert.Equal(t, []string{"/generate", "/image/generate", "/images", "/images/generate"}, cfg.ImageAPI.AltEndpoints)
	assert.Equal(t, "POST", cfg.ImageAPI.Method)
	assert.Equal(t, "/record-info", cfg.ImageAPI.StatusEndpoint)
	assert.Equal(t, 120000, cfg.ImageAPI.Timeouts.ReadMs)
	assert.Equal(t, 2, cfg.ImageAPI.RetryPolicy.Retries)
	assert.Equal(t, 1500, cfg.ImageAPI.RetryPolicy.BackoffMs)
	assert.Equal(t, 1024, cfg.ImageAPI.RequestSchema.Width)
	assert.Equal(t, 1024, cfg.ImageAPI.RequestSchema.Height)
	assert.Equal(t, "url", cfg.ImageAPI.RequestSchema.ResponseFormat)

	// 验证安全与套餐默认值
	assert.Equal(t, 5000, cfg.Security.CooldownMs)
	assert.Equal(t, "block_and_warn", cfg.Security.NSFWPolicy)
	assert.Equal(t, 20, cfg.Plans.FreeLimit)
	assert.True(t, cfg.Plans.ChargeOnDeliveryFailure)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := newTestLoader(nil).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 5000, cfg.Security.CooldownMs)
	assert.Empty(t, cfg.Bot.Token)
	assert.Empty(t, cfg.ImageAPI.Token)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "app.config.yaml")

	yamlContent := `
image_api:
  api_base: "https://img.example.com/api"
  provider: "nano-banana"
  alt_endpoints: ["/v2/generate"]
  headers:
    X-Client: rsimage
  timeouts:
    read_ms: 30000
  retry_policy:
    retries: 0
    backoff_ms: 500
security:
  cooldown_ms: 3000
  blocklist_keywords: ["nsfw", "gore"]
server:
  read_timeout: 60s
log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := newTestLoader(nil).WithConfigPath(configPath).Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, "https://img.example.com/api", cfg.ImageAPI.APIBase)
	assert.Equal(t, "nano-banana", cfg.ImageAPI.Provider)
	assert.Equal(t, []string{"/v2/generate"}, cfg.ImageAPI.AltEndpoints)
	assert.Equal(t, "rsimage", cfg.ImageAPI.Headers["X-Client"])
	assert.Equal(t, 30000, cfg.ImageAPI.Timeouts.ReadMs)
	assert.Equal(t, 0, cfg.ImageAPI.RetryPolicy.Retries)
	assert.Equal(t, 500, cfg.ImageAPI.RetryPolicy.BackoffMs)
	assert.Equal(t, 3000, cfg.Security.CooldownMs)
	assert.Equal(t, []string{"nsfw", "gore"}, cfg.Security.BlocklistKeywords)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未出现的键保留默认值
	assert.Equal(t, "/generate", cfg.ImageAPI.Endpoint)
	assert.Equal(t, 28, cfg.ImageAPI.RequestSchema.Steps)
}

func TestLoader_LoadFromJSON(t *testing.T) {
	// 原有 app.config.json 可以直接被 YAML 解析器读取
	configPath := filepath.Join(t.TempDir(), "app.config.json")
	jsonContent := `{"image_api": {"endpoint": "/img", "method": "put"}, "plans": {"free_limit": 5}}`
	require.NoError(t, os.WriteFile(configPath, []byte(jsonContent), 0644))

	cfg, err := newTestLoader(nil).WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "/img", cfg.ImageAPI.Endpoint)
	assert.Equal(t, "put", cfg.ImageAPI.Method)
	assert.Equal(t, 5, cfg.Plans.FreeLimit)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := newTestLoader(nil).WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Plans.FreeLimit)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("image_api: [unclosed"), 0644))

	_, err := newTestLoader(nil).WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_LoadFromEnv(t *testing.T) {
	cfg, err := newTestLoader(map[string]string{
		"RSIMAGE_IMAGE_API_API_BASE":                "https://env.example.com",
		"RSIMAGE_IMAGE_API_ALT_ENDPOINTS":           "/a, /b",
		"RSIMAGE_IMAGE_API_RETRY_POLICY_RETRIES":    "4",
		"RSIMAGE_IMAGE_API_REQUEST_SCHEMA_GUIDANCE": "3.5",
		"RSIMAGE_SECURITY_COOLDOWN_MS":              "1000",
		"RSIMAGE_PLANS_CHARGE_ON_DELIVERY_FAILURE":  "false",
		"RSIMAGE_SERVER_SHUTDOWN_TIMEOUT":           "5s",
		"RSIMAGE_LOG_LEVEL":                         "warn",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.ImageAPI.APIBase)
	assert.Equal(t, []string{"/a", "/b"}, cfg.ImageAPI.AltEndpoints)
	assert.Equal(t, 4, cfg.ImageAPI.RetryPolicy.Retries)
	assert.Equal(t, 3.5, cfg.ImageAPI.RequestSchema.Guidance)
	assert.Equal(t, 1000, cfg.Security.CooldownMs)
	assert.False(t, cfg.Plans.ChargeOnDeliveryFailure)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
image_api:
  endpoint: "/yaml"
  method: "POST"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := newTestLoader(map[string]string{
		"RSIMAGE_IMAGE_API_ENDPOINT": "/env",
	}).WithConfigPath(configPath).Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, "/env", cfg.ImageAPI.Endpoint)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "POST", cfg.ImageAPI.Method)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	cfg, err := newTestLoader(map[string]string{
		"MYBOT_SECURITY_NSFW_POLICY": "log_only",
	}).WithEnvPrefix("MYBOT").Load()
	require.NoError(t, err)
	assert.Equal(t, "log_only", cfg.Security.NSFWPolicy)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	_, err := newTestLoader(map[string]string{
		"RSIMAGE_SECURITY_COOLDOWN_MS": "soon",
	}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RSIMAGE_SECURITY_COOLDOWN_MS")
}

func TestLoader_SecretFallbacks(t *testing.T) {
	cfg, err := newTestLoader(map[string]string{
		"BOT_TOKEN":       " 123:abc ",
		"IMAGE_API_TOKEN": "img-token",
		"HTTP_PROXY":      "http://proxy:3128",
		"SOCKS_PROXY":     "socks5://127.0.0.1:1080",
	}).Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "img-token", cfg.ImageAPI.Token)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy.HTTPS)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Proxy.SOCKS)
}

func TestLoader_PrefixedSecretWins(t *testing.T) {
	cfg, err := newTestLoader(map[string]string{
		"RSIMAGE_IMAGE_API_TOKEN": "prefixed",
		"IMAGE_API_TOKEN":         "plain",
	}).Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.ImageAPI.Token)
}

func TestLoader_ProcessEnvironment(t *testing.T) {
	t.Setenv("RSIMAGE_BOT_MODEL_LABEL", "flux")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "flux", cfg.Bot.ModelLabel)
}

func TestLoader_WithValidator(t *testing.T) {
	_, err := newTestLoader(map[string]string{
		"RSIMAGE_SECURITY_COOLDOWN_MS": "-1",
	}).WithValidator(func(c *Config) error { return c.Validate() }).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "security.cooldown_ms")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative retries", func(c *Config) { c.ImageAPI.RetryPolicy.Retries = -1 }, "retries"},
		{"negative backoff", func(c *Config) { c.ImageAPI.RetryPolicy.BackoffMs = -5 }, "backoff_ms"},
		{"bad method", func(c *Config) { c.ImageAPI.Method = "DELETE" }, "method"},
		{"lowercase method", func(c *Config) { c.ImageAPI.Method = "post" }, ""},
		{"bad provider kind", func(c *Config) { c.ImageAPI.ProviderKind = "stream" }, "provider_kind"},
		{"negative free limit", func(c *Config) { c.Plans.FreeLimit = -1 }, "free_limit"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log: [x"), 0644))
	assert.Panics(t, func() { MustLoad(configPath) })
}
