package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Webhook    WebhookConfig
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required,oneof=local api scheduler"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
	// OpsToken guards the /v1/cron endpoints. Empty disables the check.
	OpsToken string `mapstructure:"ops_token"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
}

// BillingConfig drives the daily billing sweep
type BillingConfig struct {
	// SweepSchedule is a standard 5 field cron spec evaluated in UTC
	SweepSchedule      string `mapstructure:"sweep_schedule" validate:"required"`
	SweepConcurrency   int    `mapstructure:"sweep_concurrency" validate:"min=1"`
	MaxRetries         int    `mapstructure:"max_retries" validate:"min=0"`
	InvoiceCounterName string `mapstructure:"invoice_counter_name" validate:"required"`
}

// WebhookConfig controls delivery of lifecycle notifications
type WebhookConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	URL        string            `mapstructure:"url" validate:"required_if=Enabled true,omitempty,url"`
	Topic      string            `mapstructure:"topic" default:"webhooks"`
	MaxRetries int               `mapstructure:"max_retries" validate:"min=0"`
	Headers    map[string]string `mapstructure:"headers"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	PlanTTL time.Duration `mapstructure:"plan_ttl"`
}

func NewConfig() (*Configuration, error) {
	// a missing .env is fine, the environment and config.yaml still apply
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/subscriptions")

	v.SetEnvPrefix("SUBSCRIPTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override values
// that are absent from config.yaml
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.ops_token", d.Server.OpsToken)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)

	v.SetDefault("billing.sweep_schedule", d.Billing.SweepSchedule)
	v.SetDefault("billing.sweep_concurrency", d.Billing.SweepConcurrency)
	v.SetDefault("billing.max_retries", d.Billing.MaxRetries)
	v.SetDefault("billing.invoice_counter_name", d.Billing.InvoiceCounterName)

	v.SetDefault("webhook.enabled", d.Webhook.Enabled)
	v.SetDefault("webhook.url", d.Webhook.URL)
	v.SetDefault("webhook.topic", d.Webhook.Topic)
	v.SetDefault("webhook.max_retries", d.Webhook.MaxRetries)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.plan_ttl", d.Cache.PlanTTL)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "subscriptions",
			Password:               "subscriptions",
			DBName:                 "subscriptions",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
		},
		Billing: BillingConfig{
			SweepSchedule:      "0 0 * * *",
			SweepConcurrency:   10,
			MaxRetries:         3,
			InvoiceCounterName: types.DefaultInvoiceCounterName,
		},
		Webhook: WebhookConfig{
			Topic:      "webhooks",
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			PlanTTL: 5 * time.Minute,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
