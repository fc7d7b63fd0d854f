package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/kelseyhightower/envconfig"

	"github.com/zhouzirui/ai-friend/backend/internal/service/ledger"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Server   ServerConfig
	AI       AIConfig
	OpenAI   OpenAIConfig
	Ledger   LedgerConfig
	Activity ActivityConfig
	Composer ComposerConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	if _, err := c.Server.Addr(); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Ledger.Driver)) {
	case ledger.DriverMemory, ledger.DriverSQLite:
	case ledger.DriverRedis:
		if strings.TrimSpace(c.Ledger.Redis.URL) == "" {
			return fmt.Errorf("REDIS_URL is required when LEDGER_DRIVER=redis")
		}
	default:
		return fmt.Errorf("invalid LEDGER_DRIVER value %q", c.Ledger.Driver)
	}

	if p := c.Composer.ActivityProbability; p < 0 || p > 1 {
		return fmt.Errorf("invalid COMPOSER_ACTIVITY_PROBABILITY value %v: must be within [0, 1]", p)
	}
	if c.AI.ModelTimeout < 0 {
		return fmt.Errorf("invalid AI_MODEL_TIMEOUT value %s", c.AI.ModelTimeout)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey            string        `envconfig:"ARK_API_KEY"`
	AccessKey         string        `envconfig:"ARK_ACCESS_KEY"`
	SecretKey         string        `envconfig:"ARK_SECRET_KEY"`
	Model             string        `envconfig:"ARK_MODEL"`
	BaseURL           string        `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region            string        `envconfig:"ARK_REGION" default:"cn-beijing"`
	Temperature       *float64      `envconfig:"ARK_TEMPERATURE"`
	TopP              *float64      `envconfig:"ARK_TOP_P"`
	MaxTokens         *int          `envconfig:"ARK_MAX_TOKENS"`
	EmotionLLMEnabled bool          `envconfig:"AI_EMOTION_LLM_ENABLED" default:"false"`
	ModelTimeout      time.Duration `envconfig:"AI_MODEL_TIMEOUT" default:"30s"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}
	if c.ModelTimeout > 0 {
		timeout := c.ModelTimeout
		cfg.Timeout = &timeout
	}

	return ark.NewChatModel(ctx, cfg)
}

// OpenAIConfig 描述 OpenAI 生成器配置，Ark 未配置时使用。
type OpenAIConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string `envconfig:"OPENAI_BASE_URL"`
}

// Enabled 表示是否提供了 OpenAI 密钥。
func (c OpenAIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// LedgerConfig 描述对话记录的存储后端。
type LedgerConfig struct {
	Driver     string `envconfig:"LEDGER_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"LEDGER_SQLITE_PATH" default:"chat_history.db"`
	Redis      RedisConfig
}

// RedisConfig 超时单位为秒。
type RedisConfig struct {
	URL          string `envconfig:"REDIS_URL"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
}

// LedgerOptions 转换为存储层配置。
func (c LedgerConfig) LedgerOptions() ledger.Config {
	return ledger.Config{
		Driver:     c.Driver,
		SQLitePath: c.SQLitePath,
		Redis: ledger.RedisConfig{
			URL:          c.Redis.URL,
			ReadTimeout:  c.Redis.ReadTimeout,
			WriteTimeout: c.Redis.WriteTimeout,
			DialTimeout:  c.Redis.DialTimeout,
		},
	}
}

// ActivityConfig 指定可选的活动建议 YAML 文件。
type ActivityConfig struct {
	CatalogPath string `envconfig:"ACTIVITY_CATALOG_PATH"`
}

// ComposerConfig 控制回复组合的随机行为。Seed 为 0 时使用时间种子。
type ComposerConfig struct {
	Seed                uint64  `envconfig:"COMPOSER_SEED" default:"0"`
	ActivityProbability float64 `envconfig:"COMPOSER_ACTIVITY_PROBABILITY" default:"0.3"`
}
