package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ForecastConfig carries the business defaults applied to incomplete
// forecast requests. The pipeline only ever sees fully resolved requests;
// defaults are resolved at the API boundary.
type ForecastConfig struct {
	DefaultInterval  string         `mapstructure:"default_interval"`
	PredictedPeriods int            `mapstructure:"predicted_periods"`
	DefaultMethod    string         `mapstructure:"default_method"`
	CacheTTL         string         `mapstructure:"cache_ttl"`
	SeasonalPeriods  map[string]int `mapstructure:"seasonal_periods"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// SeasonalPeriod returns the default seasonal cycle length for an interval.
// The table is heuristic and intentionally caller-side; the forecast engine
// takes whatever the resolved request carries.
func (f ForecastConfig) SeasonalPeriod(interval string) int {
	if s, ok := f.SeasonalPeriods[interval]; ok && s > 0 {
		return s
	}
	return 1
}

// CacheTTLDuration parses the configured cache TTL, falling back to
// 10 minutes when unset or unparsable.
func (f ForecastConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(f.CacheTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Forecast.PredictedPeriods < 1 {
		return nil, fmt.Errorf("forecast predicted_periods must be positive, got %d", config.Forecast.PredictedPeriods)
	}
	if config.Forecast.CacheTTL != "" {
		if _, err := time.ParseDuration(config.Forecast.CacheTTL); err != nil {
			return nil, fmt.Errorf("invalid forecast cache_ttl: %w", err)
		}
	}
	if config.Database.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return nil, fmt.Errorf("invalid database conn_max_lifetime: %w", err)
		}
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "stockcast")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Forecast defaults
	viper.SetDefault("forecast.default_interval", "month")
	viper.SetDefault("forecast.predicted_periods", 1)
	viper.SetDefault("forecast.default_method", "ar")
	viper.SetDefault("forecast.cache_ttl", "10m")
	viper.SetDefault("forecast.seasonal_periods.day", 7)
	viper.SetDefault("forecast.seasonal_periods.week", 1)
	viper.SetDefault("forecast.seasonal_periods.month", 3)
	viper.SetDefault("forecast.seasonal_periods.quarter", 2)
	viper.SetDefault("forecast.seasonal_periods.year", 1)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "")
}
