package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the root application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Data     DataConfig     `yaml:"data" envconfig:"DATA"`
	Engine   EngineConfig   `yaml:"engine" envconfig:"ENGINE"`
	Events   EventsConfig   `yaml:"events" envconfig:"EVENTS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	QueryTimeout    time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT" default:"2m"`
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
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// DataConfig locates bar data and the cache tiers in front of it.
// CacheBackends is an ordered list; lookups consult tiers left to right.
type DataConfig struct {
	CSVDir           string   `yaml:"csv_dir" envconfig:"CSV_DIR" default:"data"`
	CacheBackends    []string `yaml:"cache_backends" envconfig:"CACHE_BACKENDS" default:"memory"`
	CacheDir         string   `yaml:"cache_dir" envconfig:"CACHE_DIR" default:"data/cache"`
	ChunkOverlapDays int      `yaml:"chunk_overlap_days" envconfig:"CHUNK_OVERLAP_DAYS" default:"5"`
	ChunkConcurrency int      `yaml:"chunk_concurrency" envconfig:"CHUNK_CONCURRENCY" default:"4"`
}

// EngineConfig tunes the statistics engine
type EngineConfig struct {
	VolumeSMAWindow int     `yaml:"volume_sma_window" envconfig:"VOLUME_SMA_WINDOW" default:"10"`
	TrimLower       float64 `yaml:"trim_lower" envconfig:"TRIM_LOWER" default:"0.05"`
	TrimUpper       float64 `yaml:"trim_upper" envconfig:"TRIM_UPPER" default:"0.95"`
	TrimPct         float64 `yaml:"trim_pct" envconfig:"TRIM_PCT" default:"5"`
}

// EventsConfig locates the economic event calendar
type EventsConfig struct {
	CalendarFile string   `yaml:"calendar_file" envconfig:"CALENDAR_FILE"`
	Holidays     []string `yaml:"holidays" envconfig:"HOLIDAYS"`
}

// Load loads configuration from environment variables and config file.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ALMANAC", &cfg); err != nil {
		return nil, fmt.Errorf("loading config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

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
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Data.CSVDir == "" {
		envConfig.Data.CSVDir = fileConfig.Data.CSVDir
	}
	if len(envConfig.Data.CacheBackends) == 0 {
		envConfig.Data.CacheBackends = fileConfig.Data.CacheBackends
	}
	if envConfig.Data.CacheDir == "" {
		envConfig.Data.CacheDir = fileConfig.Data.CacheDir
	}
	if envConfig.Events.CalendarFile == "" {
		envConfig.Events.CalendarFile = fileConfig.Events.CalendarFile
	}
	if len(envConfig.Events.Holidays) == 0 {
		envConfig.Events.Holidays = fileConfig.Events.Holidays
	}

	return envConfig
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

	if c.Engine.VolumeSMAWindow <= 0 {
		return fmt.Errorf("volume SMA window must be positive, got %d", c.Engine.VolumeSMAWindow)
	}

	if c.Engine.TrimLower < 0 || c.Engine.TrimUpper > 1 || c.Engine.TrimLower >= c.Engine.TrimUpper {
		return fmt.Errorf("trim bounds must satisfy 0 <= lower < upper <= 1, got [%v, %v]",
			c.Engine.TrimLower, c.Engine.TrimUpper)
	}

	for _, backend := range c.Data.CacheBackends {
		switch backend {
		case "memory", "parquet", "noop":
		default:
			return fmt.Errorf("unknown cache backend %q", backend)
		}
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv("ALMANAC_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return "config.yaml"
}
