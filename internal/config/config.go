package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendSqlite = "sqlite"
	StoreBackendRedis  = "redis"

	envPrefix = "EZYFLOW"
)

// Config 服务配置, 优先级: 环境变量(EZYFLOW_*) > 配置文件 > 默认值
type Config struct {
	Store struct {
		Backend     string `mapstructure:"backend" validate:"oneof=memory sqlite redis"`
		Namespace   string `mapstructure:"namespace" validate:"required"`
		SqlitePath  string `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
		RedisAddr   string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
		RedisPrefix string `mapstructure:"redis_prefix"`
	} `mapstructure:"store"`
	Lock struct {
		TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
	} `mapstructure:"lock"`
	Service struct {
		MaxSaveAttempts   int    `mapstructure:"max_save_attempts" validate:"gte=1"`
		DefaultAssigneeID string `mapstructure:"default_assignee_id"`
	} `mapstructure:"service"`
	// Suggest 模块建议, 走gemini; api_key为空时用GEMINI_API_KEY
	Suggest struct {
		Enabled bool          `mapstructure:"enabled"`
		Model   string        `mapstructure:"model" validate:"required_if=Enabled true"`
		BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"suggest"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", StoreBackendMemory)
	v.SetDefault("store.namespace", "ezyflow_database_v1")
	v.SetDefault("store.sqlite_path", "ezyflow.db")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_prefix", "ezyflow:")
	v.SetDefault("lock.ttl", time.Minute)
	v.SetDefault("service.max_save_attempts", 3)
	v.SetDefault("service.default_assignee_id", "1")
	v.SetDefault("suggest.enabled", false)
	v.SetDefault("suggest.model", "gemini-3-flash-preview")
	v.SetDefault("suggest.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("suggest.api_key", "")
	v.SetDefault("suggest.timeout", 30*time.Second)
}

// LoadConfig 读取配置
// path为空时在 . 和 ./config 下找 ezyflow.yaml, 找不到文件只用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithMessagef(err, "read config %s failed", path)
		}
	} else {
		v.SetConfigName("ezyflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.WithMessage(err, "read config failed")
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.WithMessage(err, "unmarshal config failed")
	}
	config.Store.Backend = strings.ToLower(strings.TrimSpace(config.Store.Backend))
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.WithMessage(err, "invalid config")
	}
	return config, nil
}
