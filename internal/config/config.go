package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against the working directory at load time.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ArtifactsDir string `yaml:"artifacts_dir" envconfig:"ARTIFACTS_DIR" default:"data/artifacts"`
	OutputDir    string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/output"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains preprocessing pipeline configuration
type PipelineConfig struct {
	// Sentinel is the reserved category for values unseen during fitting.
	Sentinel string `yaml:"sentinel" envconfig:"SENTINEL" default:"other"`
	// IndicatorSuffix names missingness indicator columns.
	IndicatorSuffix string `yaml:"indicator_suffix" envconfig:"INDICATOR_SUFFIX" default:"_na"`
	// MissingMarkers are cell values treated as missing when loading
	// datasets, in addition to the empty cell.
	MissingMarkers []string `yaml:"missing_markers" envconfig:"MISSING_MARKERS" default:"NA,NaN,null,N/A,?"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("TABPREP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	out := envConfig

	if out.Server.Port == 0 {
		out.Server.Port = fileConfig.Server.Port
	}
	if out.Server.ReadTimeout == 0 {
		out.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if out.Server.WriteTimeout == 0 {
		out.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if out.Server.IdleTimeout == 0 {
		out.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if out.Server.MaxHeaderBytes == 0 {
		out.Server.MaxHeaderBytes = fileConfig.Server.MaxHeaderBytes
	}
	if out.Server.ShutdownTimeout == 0 {
		out.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if out.Server.RequestTimeout == 0 {
		out.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}

	if len(out.Security.AllowedOrigins) == 0 {
		out.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if out.Security.RateLimit.RPS == 0 {
		out.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	if out.Security.RateLimit.Burst == 0 {
		out.Security.RateLimit.Burst = fileConfig.Security.RateLimit.Burst
	}

	if out.Logging.Level == "" {
		out.Logging.Level = fileConfig.Logging.Level
	}
	if out.Logging.Output == "" {
		out.Logging.Output = fileConfig.Logging.Output
	}
	if out.Logging.FilePath == "" {
		out.Logging.FilePath = fileConfig.Logging.FilePath
	}

	if out.Paths.DataDir == "" {
		out.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if out.Paths.ArtifactsDir == "" {
		out.Paths.ArtifactsDir = fileConfig.Paths.ArtifactsDir
	}
	if out.Paths.OutputDir == "" {
		out.Paths.OutputDir = fileConfig.Paths.OutputDir
	}
	if out.Paths.LogsDir == "" {
		out.Paths.LogsDir = fileConfig.Paths.LogsDir
	}

	if out.Pipeline.Sentinel == "" {
		out.Pipeline.Sentinel = fileConfig.Pipeline.Sentinel
	}
	if out.Pipeline.IndicatorSuffix == "" {
		out.Pipeline.IndicatorSuffix = fileConfig.Pipeline.IndicatorSuffix
	}
	if len(out.Pipeline.MissingMarkers) == 0 {
		out.Pipeline.MissingMarkers = fileConfig.Pipeline.MissingMarkers
	}

	return out
}

// resolvePaths makes all configured paths absolute
func (c *Config) resolvePaths() error {
	for _, p := range []*string{
		&c.Paths.DataDir,
		&c.Paths.ArtifactsDir,
		&c.Paths.OutputDir,
		&c.Paths.LogsDir,
	} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// EnsureDirectories creates the configured directories if absent
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.ArtifactsDir,
		c.Paths.OutputDir,
		c.Paths.LogsDir,
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validate validates the configuration
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

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	// Logging is always JSON with at least a file sink
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "stdout" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if c.Pipeline.Sentinel == "" {
		return fmt.Errorf("pipeline sentinel must not be empty")
	}

	if c.Pipeline.IndicatorSuffix == "" {
		return fmt.Errorf("pipeline indicator suffix must not be empty")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
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
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir:      "data",
			ArtifactsDir: "data/artifacts",
			OutputDir:    "data/output",
			LogsDir:      "logs",
		},
		Pipeline: PipelineConfig{
			Sentinel:        "other",
			IndicatorSuffix: "_na",
			MissingMarkers:  []string{"NA", "NaN", "null", "N/A", "?"},
		},
	}
}
