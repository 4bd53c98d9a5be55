package config

import "time"

const (
	ProviderDodo   = "dodo"
	ProviderStripe = "stripe"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
}

// ProviderConfig selects and configures the subscription provider.
type ProviderConfig struct {
	Type          string        `yaml:"type"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	WebhookSecret string        `yaml:"webhook_secret"`
	ReturnURL     string        `yaml:"return_url"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
}

// VoiceConfig configures the audio provider callback.
type VoiceConfig struct {
	WebhookSecret      string        `yaml:"webhook_secret"`
	SignatureTolerance time.Duration `yaml:"signature_tolerance"`
}

type WebhookConfig struct {
	// RejectStaleEvents drops events older than the last one applied to the
	// same subscription instead of applying them last-write-wins.
	RejectStaleEvents bool `yaml:"reject_stale_events"`
}

type RetryPolicyConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Jitter            bool          `yaml:"jitter"`
	Timeout           time.Duration `yaml:"timeout"`
}

type ResilienceConfig struct {
	Read     RetryPolicyConfig `yaml:"read"`
	Mutation RetryPolicyConfig `yaml:"mutation"`
}

type PlanCacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Key     string        `yaml:"key"`
	// StaleRetention keeps an expired entry around for stale-if-error reads.
	StaleRetention time.Duration `yaml:"stale_retention"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "billing-gateway",
			Environment: "development",
		},
		Provider: ProviderConfig{
			Type:        ProviderDodo,
			BaseURL:     "https://test.dodopayments.com",
			HTTPTimeout: 15 * time.Second,
		},
		Voice: VoiceConfig{
			SignatureTolerance: 30 * time.Minute,
		},
		Resilience: ResilienceConfig{
			Read: RetryPolicyConfig{
				MaxRetries:        3,
				InitialDelay:      200 * time.Millisecond,
				MaxDelay:          5 * time.Second,
				BackoffMultiplier: 2,
				Jitter:            true,
				Timeout:           10 * time.Second,
			},
			Mutation: RetryPolicyConfig{
				MaxRetries:        2,
				InitialDelay:      500 * time.Millisecond,
				MaxDelay:          4 * time.Second,
				BackoffMultiplier: 2,
				Jitter:            true,
				Timeout:           15 * time.Second,
			},
		},
		PlanCache: PlanCacheConfig{
			Backend:        CacheBackendMemory,
			TTL:            5 * time.Minute,
			Key:            "billing:plans",
			StaleRetention: 24 * time.Hour,
		},
		Redis: RedisConfig{
			EntitlementsChannel: "billing.entitlements",
			VoiceEventsChannel:  "voice.events",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "billing",
			User:            "billing",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,

			ConnectAttempts:   5,
			ConnectRetryDelay: 2 * time.Second,
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
			GRPC: GRPCConfig{Host: "0.0.0.0", Port: 9090},
		},
		Log: LogConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}
