package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// ProvidersConfig describes the two settlement providers. Both expose
// the same contract shape and differ only in base address, cost and
// reliability.
type ProvidersConfig struct {
	Primary   ProviderEndpoint `mapstructure:"primary"`
	Secondary ProviderEndpoint `mapstructure:"secondary"`
	// HealthInterval is the minimum spacing between health probes per
	// provider. Provider contracts cap the check frequency; probing
	// faster is an integration error, so this is a floor, not a hint.
	HealthInterval time.Duration `mapstructure:"health_interval"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
}

type ProviderEndpoint struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DispatchConfig struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	// FailingPenaltyMs is added to a provider's routing score while its
	// latest health snapshot reports failing.
	FailingPenaltyMs int `mapstructure:"failing_penalty_ms"`
	// SecondaryBiasMs encodes the secondary provider's higher fees as
	// extra score, so the primary wins when both are equally healthy.
	SecondaryBiasMs int `mapstructure:"secondary_bias_ms"`
}

type RetryConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts"`
	BaseDelay           time.Duration `mapstructure:"base_delay"`
	LeaseTTL            time.Duration `mapstructure:"lease_ttl"`
	EnqueueAttempts     int           `mapstructure:"enqueue_attempts"`
	EnqueueRetryDelay   time.Duration `mapstructure:"enqueue_retry_delay"`
	SchedulerPollPeriod time.Duration `mapstructure:"scheduler_poll_period"`
}

type WorkerConfig struct {
	BatchSize     int64         `mapstructure:"batch_size"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
	ConsumerGroup string        `mapstructure:"consumer_group"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAYROUTER")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/payrouter")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Providers.Primary.BaseURL == "" {
		errs = append(errs, fmt.Errorf("providers.primary.base_url is required"))
	}
	if c.Providers.Secondary.BaseURL == "" {
		errs = append(errs, fmt.Errorf("providers.secondary.base_url is required"))
	}
	if c.Providers.HealthInterval < time.Second {
		errs = append(errs, fmt.Errorf("providers.health_interval must be at least 1s, got %s", c.Providers.HealthInterval))
	}
	if c.Dispatch.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.attempt_timeout must be positive"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be positive"))
	}
	if c.Retry.LeaseTTL <= 0 {
		errs = append(errs, fmt.Errorf("retry.lease_ttl must be positive"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.batch_size must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "payrouter")
	v.SetDefault("database.database", "payrouter")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Provider defaults
	v.SetDefault("providers.primary.base_url", "http://localhost:8001")
	v.SetDefault("providers.primary.request_timeout", "2s")
	v.SetDefault("providers.secondary.base_url", "http://localhost:8002")
	v.SetDefault("providers.secondary.request_timeout", "2s")
	v.SetDefault("providers.health_interval", "5s")
	v.SetDefault("providers.probe_timeout", "450ms")

	// Dispatch defaults
	v.SetDefault("dispatch.attempt_timeout", "2s")
	v.SetDefault("dispatch.failing_penalty_ms", 2500)
	v.SetDefault("dispatch.secondary_bias_ms", 150)

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.lease_ttl", "30s")
	v.SetDefault("retry.enqueue_attempts", 3)
	v.SetDefault("retry.enqueue_retry_delay", "50ms")
	v.SetDefault("retry.scheduler_poll_period", "1s")

	// Worker defaults
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.block_duration", "1s")
	v.SetDefault("worker.consumer_group", "settlement-workers")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "payrouter-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
