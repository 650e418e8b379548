package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stackbill/stackbill/internal/types"
)

// Configuration is the full runtime configuration, loaded once at startup
// from config files and STACKBILL_* environment variables.
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Cron       CronConfig       `mapstructure:"cron"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Email      EmailConfig      `mapstructure:"email"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type CronConfig struct {
	// Secret is the static bearer token the external cron dispatcher must
	// present on the daily billing endpoint.
	Secret string `mapstructure:"secret" validate:"required"`
}

type BillingConfig struct {
	Timezone   string `mapstructure:"timezone"`
	GraceDays  int    `mapstructure:"grace_days"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"`
}

type GatewayConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required"`
	SecretKey string        `mapstructure:"secret_key" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
}

type SentryConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	DSN        string  `mapstructure:"dsn"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// NewConfig loads configuration from ./config/config.yaml (optional), a .env
// file (optional), and the environment.
func NewConfig() (*Configuration, error) {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STACKBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "api")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("billing.timezone", types.DefaultBillingTimezone)
	v.SetDefault("billing.grace_days", 6)
	v.SetDefault("billing.max_retries", 3)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "stackbill")
	v.SetDefault("postgres.dbname", "stackbill")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open", 10)
	v.SetDefault("postgres.max_idle", 5)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.timeout", 10*time.Second)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("logging.level", "info")
}

// Validate checks the configuration with struct tags plus the cross-field
// rules the tags cannot express.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := types.LoadBillingLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("invalid billing timezone %q: %w", c.Billing.Timezone, err)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required when webhook is enabled")
	}
	if c.Email.Enabled && c.Email.APIKey == "" {
		return fmt.Errorf("email.api_key is required when email is enabled")
	}
	return nil
}

// BillingLocation returns the loaded billing timezone. Validate has already
// proven it loads.
func (c *Configuration) BillingLocation() *time.Location {
	loc, err := types.LoadBillingLocation(c.Billing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN renders the Postgres connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetDefaultConfig returns a minimal configuration for bootstrap paths that
// run before NewConfig, such as the package-level logger.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "api"},
		Server:     ServerConfig{Address: ":8080"},
		Billing: BillingConfig{
			Timezone:   types.DefaultBillingTimezone,
			GraceDays:  6,
			MaxRetries: 3,
		},
		Cache:   CacheConfig{Enabled: true, Type: "inmemory"},
		Logging: LoggingConfig{Level: "info"},
	}
}
