package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	AI        AIConfig
	Location  ServiceConfig
	Market    ServiceConfig
	SmartForm SmartFormConfig
	Tasks     TaskConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	DSN         string
	AutoMigrate bool
}

type LogConfig struct {
	Level  string
	Format string
}

// AIConfig AI 服务配置
// Provider: remote（HTTP AI 服务）或 gemini（直连 Gemini）
type AIConfig struct {
	Provider   string
	ServiceURL string
	APIKey     string
	GeminiKey  string
	Model      string
	Timeout    time.Duration
	Cooldown   time.Duration
}

// ServiceConfig 外部 HTTP 服务
type ServiceConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type SmartFormConfig struct {
	ValidationDelay   time.Duration
	AutocompleteDelay time.Duration
	BlurGrace         time.Duration
	MaxAutocomplete   int
	SessionTTL        time.Duration
}

type TaskConfig struct {
	SessionSweepSpec string
	DraftCleanupSpec string
	DraftRetention   time.Duration
}

// Load 读取配置：默认值 < 配置文件 < .env < 环境变量
// path 为空时只读环境变量
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    v.GetString("server.port"),
			GinMode: v.GetString("gin.mode"),
		},
		Database: DatabaseConfig{
			DSN:         v.GetString("database.dsn"),
			AutoMigrate: v.GetBool("database.automigrate"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		AI: AIConfig{
			Provider:   strings.ToLower(v.GetString("ai.provider")),
			ServiceURL: v.GetString("ai.service.url"),
			APIKey:     v.GetString("ai.service.key"),
			GeminiKey:  v.GetString("gemini.api.key"),
			Model:      v.GetString("ai.model"),
			Timeout:    v.GetDuration("ai.timeout"),
			Cooldown:   v.GetDuration("ai.cooldown"),
		},
		Location: ServiceConfig{
			URL:      v.GetString("location.service.url"),
			APIKey:   v.GetString("location.service.key"),
			Timeout:  v.GetDuration("location.timeout"),
			CacheTTL: v.GetDuration("location.cache.ttl"),
		},
		Market: ServiceConfig{
			URL:      v.GetString("market.service.url"),
			APIKey:   v.GetString("market.service.key"),
			Timeout:  v.GetDuration("market.timeout"),
			CacheTTL: v.GetDuration("market.cache.ttl"),
		},
		SmartForm: SmartFormConfig{
			ValidationDelay:   v.GetDuration("smartform.validation.delay"),
			AutocompleteDelay: v.GetDuration("smartform.autocomplete.delay"),
			BlurGrace:         v.GetDuration("smartform.blur.grace"),
			MaxAutocomplete:   v.GetInt("smartform.autocomplete.max"),
			SessionTTL:        v.GetDuration("smartform.session.ttl"),
		},
		Tasks: TaskConfig{
			SessionSweepSpec: v.GetString("task.session.sweep"),
			DraftCleanupSpec: v.GetString("task.draft.cleanup"),
			DraftRetention:   v.GetDuration("task.draft.retention"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("gin.mode", "release")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.automigrate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ai.provider", "remote")
	v.SetDefault("ai.service.url", "")
	v.SetDefault("ai.service.key", "")
	v.SetDefault("gemini.api.key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.cooldown", 3*time.Second)

	v.SetDefault("location.service.url", "")
	v.SetDefault("location.service.key", "")
	v.SetDefault("location.timeout", 10*time.Second)
	v.SetDefault("location.cache.ttl", 10*time.Minute)
	v.SetDefault("market.service.url", "")
	v.SetDefault("market.service.key", "")
	v.SetDefault("market.timeout", 15*time.Second)
	v.SetDefault("market.cache.ttl", 30*time.Minute)

	v.SetDefault("smartform.validation.delay", 1000*time.Millisecond)
	v.SetDefault("smartform.autocomplete.delay", 300*time.Millisecond)
	v.SetDefault("smartform.blur.grace", 200*time.Millisecond)
	v.SetDefault("smartform.autocomplete.max", 8)
	v.SetDefault("smartform.session.ttl", 30*time.Minute)

	v.SetDefault("task.session.sweep", "0 * * * * *")
	v.SetDefault("task.draft.cleanup", "0 30 3 * * *")
	v.SetDefault("task.draft.retention", 30*24*time.Hour)
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN 未配置")
	}
	switch c.AI.Provider {
	case "remote", "gemini", "none":
	default:
		return fmt.Errorf("未知的 AI_PROVIDER: %s", c.AI.Provider)
	}
	if c.SmartForm.SessionTTL <= 0 {
		return errors.New("SMARTFORM_SESSION_TTL 必须大于 0")
	}
	return nil
}
