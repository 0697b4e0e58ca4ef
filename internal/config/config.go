package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Tenant       TenantConfig       `mapstructure:"tenant"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Staging      StagingConfig      `mapstructure:"staging"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Extraction   ExtractionConfig   `mapstructure:"extraction"`
	Encoding     EncodingConfig     `mapstructure:"encoding"`
	Notification NotificationConfig `mapstructure:"notification"`
	Summary      SummaryConfig      `mapstructure:"summary"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// TenantConfig identifies the customer the loader runs for
type TenantConfig struct {
	Name string `mapstructure:"name"`
	Code string `mapstructure:"code"`
}

// DatabaseConfig holds primary store configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// StagingConfig holds secondary staging store configuration
type StagingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Database       string        `mapstructure:"database"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// ExtractionConfig holds field extraction configuration
type ExtractionConfig struct {
	DefaultLayout  string  `mapstructure:"default_layout"`
	MaxPages       int     `mapstructure:"max_pages"`
	TotalTolerance float64 `mapstructure:"total_tolerance"`
}

// EncodingConfig holds interchange document settings
type EncodingConfig struct {
	IssuingSystem      string  `mapstructure:"issuing_system"`
	AgreementReference string  `mapstructure:"agreement_reference"`
	DefaultVATRate     float64 `mapstructure:"default_vat_rate"`
	CountryCode        string  `mapstructure:"country_code"`
	CountryName        string  `mapstructure:"country_name"`
}

// NotificationConfig holds operator alert configuration
type NotificationConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	AppID       string        `mapstructure:"app_id"`
	AppSecret   string        `mapstructure:"app_secret"`
	RecipientID string        `mapstructure:"recipient_id"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
}

// SummaryConfig schedules the daily digest
type SummaryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Time    string `mapstructure:"time"` // HH:MM in UTC
}

// MetricsConfig holds metrics exposition configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Addr returns the listen address of the HTTP server
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from an optional .env file, the config file and
// environment variables. An empty configPath skips the config file.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
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

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 20<<20)

	// Tenant defaults
	v.SetDefault("tenant.name", "MÁGERSTAV, spol. s r.o.")
	v.SetDefault("tenant.code", "magerstav")

	// Database defaults
	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.write_timeout", 10*time.Second)

	// Staging defaults
	v.SetDefault("staging.enabled", false)
	v.SetDefault("staging.host", "localhost")
	v.SetDefault("staging.port", 5432)
	v.SetDefault("staging.database", "invoice_staging")
	v.SetDefault("staging.user", "postgres")
	v.SetDefault("staging.ssl_mode", "disable")
	v.SetDefault("staging.max_conns", 5)
	v.SetDefault("staging.connect_timeout", 5*time.Second)
	v.SetDefault("staging.write_timeout", 15*time.Second)

	// Storage defaults
	v.SetDefault("storage.base_path", "data/files")

	// Extraction defaults
	v.SetDefault("extraction.default_layout", "ls")
	v.SetDefault("extraction.max_pages", 20)
	v.SetDefault("extraction.total_tolerance", 0.05)

	// Encoding defaults
	v.SetDefault("encoding.issuing_system", "Supplier Invoice Loader")
	v.SetDefault("encoding.agreement_reference", "Elektronická fakturácia")
	v.SetDefault("encoding.default_vat_rate", 23.0)
	v.SetDefault("encoding.country_code", "SK")
	v.SetDefault("encoding.country_name", "Slovenská republika")

	// Notification defaults
	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.api_timeout", 10*time.Second)

	// Summary defaults
	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.time", "23:55")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "invoice_loader")
	v.SetDefault("metrics.path", "/metrics")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"server.api_key":            "LS_API_KEY",
		"storage.base_path":         "LS_STORAGE_PATH",
		"database.path":             "LS_DB_PATH",
		"staging.enabled":           "POSTGRES_ENABLED",
		"staging.host":              "POSTGRES_HOST",
		"staging.port":              "POSTGRES_PORT",
		"staging.database":          "POSTGRES_DB",
		"staging.user":              "POSTGRES_USER",
		"staging.password":          "POSTGRES_PASSWORD",
		"notification.app_id":       "LARK_APP_ID",
		"notification.app_secret":   "LARK_APP_SECRET",
		"notification.recipient_id": "LARK_RECIPIENT_ID",
		"summary.enabled":           "SEND_DAILY_SUMMARY",
		"logger.level":              "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key is required")
	}
	if c.Tenant.Name == "" {
		return fmt.Errorf("tenant.name is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.WriteTimeout <= 0 {
		return fmt.Errorf("database.write_timeout must be positive")
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if c.Extraction.TotalTolerance < 0 {
		return fmt.Errorf("extraction.total_tolerance must not be negative")
	}

	if c.Staging.Enabled {
		if c.Staging.Host == "" || c.Staging.Database == "" || c.Staging.User == "" {
			return fmt.Errorf("staging.host, staging.database and staging.user are required when staging is enabled")
		}
		if c.Staging.WriteTimeout <= 0 || c.Staging.ConnectTimeout <= 0 {
			return fmt.Errorf("staging timeouts must be positive")
		}
	}

	if c.Notification.Enabled {
		if c.Notification.AppID == "" {
			return fmt.Errorf("notification.app_id is required")
		}
		if c.Notification.AppSecret == "" {
			return fmt.Errorf("notification.app_secret is required")
		}
		if c.Notification.RecipientID == "" {
			return fmt.Errorf("notification.recipient_id is required")
		}
	}

	if c.Summary.Enabled {
		if _, err := time.Parse("15:04", c.Summary.Time); err != nil {
			return fmt.Errorf("summary.time must be HH:MM: %q", c.Summary.Time)
		}
	}

	return nil
}
