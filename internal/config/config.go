package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Export    ExportDefaults  `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// ExportTimeout bounds a full export request; previews use ReadTimeout
	ExportTimeout time.Duration `yaml:"export_timeout" envconfig:"EXPORT_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	// APITokens maps bearer tokens to owner ids, written as "token:user_id"
	APITokens []string        `yaml:"api_tokens" envconfig:"API_TOKENS"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
	// Rotation settings for the log file
	MaxSizeMB  int  `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int  `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int  `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool `yaml:"compress" envconfig:"COMPRESS"`
}

// PathsConfig contains file system paths configuration.
// Relative paths are resolved against BaseDir, which defaults to the executable directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	Database   string `yaml:"database" envconfig:"DATABASE"`
}

// ExportDefaults holds the defaults substituted into incomplete export requests
// and the limits applied to export runs
type ExportDefaults struct {
	Format             string        `yaml:"format" envconfig:"FORMAT"`
	Delimiter          string        `yaml:"delimiter" envconfig:"DELIMITER"`
	ExportMode         string        `yaml:"export_mode" envconfig:"MODE"`
	OrderStatus        []string      `yaml:"order_status" envconfig:"ORDER_STATUS"`
	Columns            []string      `yaml:"columns" envconfig:"COLUMNS"`
	MultiTermSeparator string        `yaml:"multi_term_separator" envconfig:"MULTI_TERM_SEPARATOR"`
	IncludeHeaders     bool          `yaml:"include_headers" envconfig:"INCLUDE_HEADERS"`
	UseBOM             bool          `yaml:"use_bom" envconfig:"USE_BOM"`
	BatchSize          int           `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	PreviewBatchSize   int           `yaml:"preview_batch_size" envconfig:"PREVIEW_BATCH_SIZE"`
	DownloadTTL        time.Duration `yaml:"download_ttl" envconfig:"DOWNLOAD_TTL"`
	FileRetention      time.Duration `yaml:"file_retention" envconfig:"FILE_RETENTION"`
	LogRetentionDays   int           `yaml:"log_retention_days" envconfig:"LOG_RETENTION_DAYS"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, then the config file if one exists,
// then environment variables (highest priority).
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are actually set override the file and defaults
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit YAML file on top of the defaults
func LoadFile(filePath string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(filePath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and repairs values that have a safe fallback
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if _, err := c.Security.Tokens(); err != nil {
		return err
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Export.BatchSize <= 0 {
		c.Export.BatchSize = DefaultBatchSize
	}

	if c.Export.PreviewBatchSize <= 0 {
		c.Export.PreviewBatchSize = PreviewBatchSize
	}

	if c.Export.DownloadTTL <= 0 {
		c.Export.DownloadTTL = DefaultDownloadTTL
	}

	if len(c.Export.OrderStatus) == 0 {
		c.Export.OrderStatus = []string{DefaultOrderStatus}
	}

	return nil
}

// Tokens parses the configured "token:user_id" pairs
func (s SecurityConfig) Tokens() (map[string]int64, error) {
	tokens := make(map[string]int64, len(s.APITokens))
	for _, pair := range s.APITokens {
		token, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" {
			return nil, fmt.Errorf("invalid api token entry %q: expected token:user_id", pair)
		}
		id, err := strconv.ParseInt(user, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id in api token entry for %q", token)
		}
		tokens[token] = id
	}
	return tokens, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			ExportTimeout:   10 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "both",
			FilePath:   "logs/wexport.log",
			MaxSizeMB:  10,
			MaxBackups: 10,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ExportsDir: DefaultExportsDir,
			LogsDir:    DefaultLogsDir,
			Database:   DefaultDatabase,
		},
		Export: ExportDefaults{
			Format:             "csv",
			Delimiter:          DefaultDelimiter,
			ExportMode:         "line_item",
			OrderStatus:        []string{DefaultOrderStatus},
			MultiTermSeparator: DefaultMultiTermSeparator,
			IncludeHeaders:     true,
			UseBOM:             true,
			BatchSize:          DefaultBatchSize,
			PreviewBatchSize:   PreviewBatchSize,
			DownloadTTL:        DefaultDownloadTTL,
			FileRetention:      DefaultFileRetention,
			LogRetentionDays:   DefaultLogRetentionDays,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			Environment:   "development",
			EnableTracing: false,
			TraceExporter: "stdout",
			EnableMetrics: true,
			SampleRatio:   1.0,
		},
	}
}
