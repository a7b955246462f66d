// =============================================================================
// 📦 rsimage 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config/app.config.yaml").
//	    WithEnvPrefix("RSIMAGE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件（JSON 亦可）→ 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 rsimage 的完整配置结构
type Config struct {
	// Bot 聊天机器人配置
	Bot BotConfig `yaml:"bot" env:"BOT"`

	// ImageAPI 上游图像生成服务配置
	ImageAPI ImageAPIConfig `yaml:"image_api" env:"IMAGE_API"`

	// Security 冷却与内容安全配置
	Security SecurityConfig `yaml:"security" env:"SECURITY"`

	// Plans 套餐与配额配置
	Plans PlansConfig `yaml:"plans" env:"PLANS"`

	// Proxy 出站代理配置
	Proxy ProxyConfig `yaml:"proxy" env:"PROXY"`

	// Server 运维 HTTP 服务配置（/metrics、/health）
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Reload 配置文件热重载
	Reload ReloadConfig `yaml:"reload" env:"RELOAD"`
}

// BotConfig 机器人配置
type BotConfig struct {
	// Telegram Bot Token
	Token string `yaml:"token" env:"TOKEN"`
	// 图片说明中展示的模型名
	ModelLabel string `yaml:"model_label" env:"MODEL_LABEL"`
	// 长轮询超时（秒）
	UpdateTimeout int `yaml:"update_timeout" env:"UPDATE_TIMEOUT"`
	// 同时处理的更新数上限
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	// 是否开启 Telegram 客户端调试输出
	Debug bool `yaml:"debug" env:"DEBUG"`
}

// ImageAPIConfig 上游图像服务配置
type ImageAPIConfig struct {
	// 基础 URL
	APIBase string `yaml:"api_base" env:"API_BASE"`
	// API Token（同时以 Bearer 与 X-API-KEY 发送）
	Token string `yaml:"token" env:"TOKEN"`
	// 主端点
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// 备用端点，按顺序尝试
	AltEndpoints []string `yaml:"alt_endpoints" env:"ALT_ENDPOINTS"`
	// 请求方法
	Method string `yaml:"method" env:"METHOD"`
	// 额外请求头
	Headers map[string]string `yaml:"headers" env:"-"`
	// 服务商名称，包含 nano-banana 时视为任务型服务商
	Provider string `yaml:"provider" env:"PROVIDER"`
	// 显式服务商类型: generic, task_based（为空时由 Provider 推断）
	ProviderKind string `yaml:"provider_kind" env:"PROVIDER_KIND"`
	// 任务状态查询路径
	StatusEndpoint string `yaml:"status_endpoint" env:"STATUS_ENDPOINT"`
	// 请求体默认值
	RequestSchema RequestSchemaConfig `yaml:"request_schema" env:"REQUEST_SCHEMA"`
	// 超时
	Timeouts TimeoutsConfig `yaml:"timeouts" env:"TIMEOUTS"`
	// 重试策略
	RetryPolicy RetryPolicyConfig `yaml:"retry_policy" env:"RETRY_POLICY"`
}

// RequestSchemaConfig 请求体默认值
type RequestSchemaConfig struct {
	Type           string         `yaml:"type" env:"TYPE"`
	Model          string         `yaml:"model" env:"MODEL"`
	Width          int            `yaml:"width" env:"WIDTH"`
	Height         int            `yaml:"height" env:"HEIGHT"`
	N              int            `yaml:"n" env:"N"`
	ResponseFormat string         `yaml:"response_format" env:"RESPONSE_FORMAT"`
	Steps          int            `yaml:"steps" env:"STEPS"`
	Guidance       float64        `yaml:"guidance" env:"GUIDANCE"`
	Extra          map[string]any `yaml:"extra" env:"-"`
}

// TimeoutsConfig 超时配置（毫秒）
type TimeoutsConfig struct {
	ReadMs int `yaml:"read_ms" env:"READ_MS"`
}

// RetryPolicyConfig 重试策略配置
type RetryPolicyConfig struct {
	Retries   int `yaml:"retries" env:"RETRIES"`
	BackoffMs int `yaml:"backoff_ms" env:"BACKOFF_MS"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// 同一用户两次操作的最小间隔
	CooldownMs int `yaml:"cooldown_ms" env:"COOLDOWN_MS"`
	// 屏蔽关键词（大小写不敏感的子串匹配）
	BlocklistKeywords []string `yaml:"blocklist_keywords" env:"BLOCKLIST_KEYWORDS"`
	// 策略: block_and_warn 拦截，其他值放行
	NSFWPolicy string `yaml:"nsfw_policy" env:"NSFW_POLICY"`
}

// PlansConfig 套餐配置
type PlansConfig struct {
	// 免费用户生成上限
	FreeLimit int `yaml:"free_limit" env:"FREE_LIMIT"`
	// 生成成功但投递失败时是否仍计入用量
	ChargeOnDeliveryFailure bool `yaml:"charge_on_delivery_failure" env:"CHARGE_ON_DELIVERY_FAILURE"`
}

// ProxyConfig 出站代理配置
type ProxyConfig struct {
	// HTTP(S) 代理地址
	HTTPS string `yaml:"https" env:"HTTPS"`
	// SOCKS5 代理地址（优先于 HTTPS）
	SOCKS string `yaml:"socks" env:"SOCKS"`
}

// ServerConfig 运维服务配置
type ServerConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// ReloadConfig 热重载配置。仅 security.blocklist_keywords 与
// security.nsfw_policy 在运行中生效，其余字段需重启
type ReloadConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 文件轮询间隔
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "RSIMAGE",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	l.applySecretFallbacks(cfg)

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// applySecretFallbacks 兼容未加前缀的常用环境变量
func (l *Loader) applySecretFallbacks(cfg *Config) {
	fallback := func(dst *string, keys ...string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		for _, k := range keys {
			if v, ok := l.lookupEnv(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	fallback(&cfg.Bot.Token, "BOT_TOKEN")
	fallback(&cfg.ImageAPI.Token, "IMAGE_API_TOKEN")
	fallback(&cfg.Proxy.SOCKS, "SOCKS_PROXY")
	fallback(&cfg.Proxy.HTTPS, "HTTPS_PROXY", "HTTP_PROXY")
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
// api_base 与 token 缺失不在此处拦截：它们在每次生成请求时作为 VALIDATION 错误返回。
func (c *Config) Validate() error {
	var errs []string

	api := c.ImageAPI
	if api.RetryPolicy.Retries < 0 {
		errs = append(errs, "image_api.retry_policy.retries must be >= 0")
	}
	if api.RetryPolicy.BackoffMs < 0 {
		errs = append(errs, "image_api.retry_policy.backoff_ms must be >= 0")
	}
	if api.Timeouts.ReadMs < 0 {
		errs = append(errs, "image_api.timeouts.read_ms must be >= 0")
	}
	switch strings.ToUpper(api.Method) {
	case "", "GET", "POST", "PUT", "PATCH":
	default:
		errs = append(errs, fmt.Sprintf("image_api.method %q is not supported", api.Method))
	}
	switch strings.ToLower(api.ProviderKind) {
	case "", "generic", "task_based":
	default:
		errs = append(errs, fmt.Sprintf("image_api.provider_kind %q must be generic or task_based", api.ProviderKind))
	}

	if c.Bot.MaxConcurrent < 0 {
		errs = append(errs, "bot.max_concurrent must be >= 0")
	}
	if c.Security.CooldownMs < 0 {
		errs = append(errs, "security.cooldown_ms must be >= 0")
	}
	if c.Plans.FreeLimit < 0 {
		errs = append(errs, "plans.free_limit must be >= 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", c.Log.Level))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if c.Reload.Interval < 0 {
		errs = append(errs, "reload.interval must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
