package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/record-review/internal/domain/classification"
)

// EnvPrefix prefixes every environment override, e.g. RECORD_REVIEW_SERVER_PORT
const EnvPrefix = "RECORD_REVIEW"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Service  ServiceConfig  `mapstructure:"service"`
	Budget   BudgetConfig   `mapstructure:"budget"`
	Export   ExportConfig   `mapstructure:"export"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded schema
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ServiceConfig tunes the record services
type ServiceConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	DueSoonWindow time.Duration `mapstructure:"due_soon_window"`
	// ReminderInterval enables the due-date reminder worker when positive
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
}

// BudgetConfig maps category names to budget ceilings, e.g. travel: "1000000"
type BudgetConfig struct {
	Ceilings map[string]string `mapstructure:"ceilings"`
}

// ExportConfig holds Excel export configuration
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads .env (if present), then the YAML file at configPath (if given),
// then RECORD_REVIEW_* environment overrides.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already set
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/records.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Service defaults
	v.SetDefault("service.max_retries", 3)
	v.SetDefault("service.due_soon_window", 7*24*time.Hour)
	v.SetDefault("service.reminder_interval", 0)

	v.SetDefault("export.output_dir", "exports")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if c.Service.MaxRetries < 1 {
		return fmt.Errorf("service.max_retries must be at least 1")
	}
	if c.Service.DueSoonWindow <= 0 {
		return fmt.Errorf("service.due_soon_window must be positive")
	}
	if c.Service.ReminderInterval < 0 {
		return fmt.Errorf("service.reminder_interval must not be negative")
	}

	if _, err := c.BudgetCeilings(); err != nil {
		return err
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

// BudgetCeilings parses the configured ceilings keyed by category
func (c *Config) BudgetCeilings() (map[classification.Category]decimal.Decimal, error) {
	out := make(map[classification.Category]decimal.Decimal, len(c.Budget.Ceilings))
	for name, raw := range c.Budget.Ceilings {
		category := classification.Parse(name)
		if category == classification.CategoryUnclassified && !strings.EqualFold(name, string(classification.CategoryUnclassified)) {
			return nil, fmt.Errorf("budget.ceilings: unknown category %q", name)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("budget.ceilings.%s: %w", name, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("budget.ceilings.%s must not be negative", name)
		}
		out[category] = amount
	}
	return out, nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
