package config

import (
	"fmt"
	"os"
	"path/filepath"

	pkgconfig "github.com/wekeepgrowing/billing-gateway/pkg/config"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. BILLING_PROVIDER_API_KEY.
const EnvPrefix = "billing"

type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Provider   ProviderConfig   `yaml:"provider"`
	Voice      VoiceConfig      `yaml:"voice"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Resilience ResilienceConfig `yaml:"resilience"`
	PlanCache  PlanCacheConfig  `yaml:"plan_cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	JWT        JWTConfig        `yaml:"jwt"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/billing.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(pkgconfig.FromEnv(EnvPrefix))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and deployment-specific keys from the environment.
func (c *Config) ApplyEnv(env pkgconfig.Config) {
	overrideString(env, "service.environment", &c.Service.Environment)
	overrideString(env, "service.client_url", &c.Service.ClientURL)
	overrideString(env, "provider.type", &c.Provider.Type)
	overrideString(env, "provider.api_key", &c.Provider.APIKey)
	overrideString(env, "provider.base_url", &c.Provider.BaseURL)
	overrideString(env, "provider.webhook_secret", &c.Provider.WebhookSecret)
	overrideString(env, "provider.return_url", &c.Provider.ReturnURL)
	overrideString(env, "voice.webhook_secret", &c.Voice.WebhookSecret)
	overrideString(env, "plan_cache.backend", &c.PlanCache.Backend)
	overrideString(env, "redis.addr", &c.Redis.Addr)
	overrideString(env, "redis.password", &c.Redis.Password)
	overrideString(env, "database.host", &c.Database.Host)
	overrideString(env, "database.password", &c.Database.Password)
	overrideString(env, "jwt.secret", &c.JWT.Secret)
	overrideString(env, "log.level", &c.Log.Level)

	if env.IsSet("plan_cache.ttl") {
		c.PlanCache.TTL = env.GetDuration("plan_cache.ttl")
	}
	if env.IsSet("webhook.reject_stale_events") {
		c.Webhook.RejectStaleEvents = env.GetBool("webhook.reject_stale_events")
	}
	if env.IsSet("database.port") {
		c.Database.Port = env.GetInt("database.port")
	}
}

func overrideString(env pkgconfig.Config, key string, dst *string) {
	if env.IsSet(key) {
		*dst = env.GetString(key)
	}
}

func (c *Config) Validate() error {
	switch c.Provider.Type {
	case ProviderDodo, ProviderStripe:
	default:
		return fmt.Errorf("unsupported provider type %q", c.Provider.Type)
	}
	if c.Provider.WebhookSecret == "" {
		return fmt.Errorf("provider.webhook_secret is required")
	}
	switch c.PlanCache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis plan cache")
		}
	default:
		return fmt.Errorf("unsupported plan cache backend %q", c.PlanCache.Backend)
	}
	return c.Database.validate()
}
