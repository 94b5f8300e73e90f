package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration, loaded from environment
// variables (MACRO_ prefix) layered over an optional YAML file.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	FRED    FREDConfig    `yaml:"fred" envconfig:"FRED"`
	Series  SeriesConfig  `yaml:"series"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/macropulse.log"`
}

// FREDConfig configures the upstream FRED client. The API key is supplied
// out-of-band (environment or .env file), never embedded in code or in YAML
// checked into source control.
type FREDConfig struct {
	BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.stlouisfed.org/fred"`
	APIKey       string        `yaml:"-" envconfig:"API_KEY"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
	RetryCount   int           `yaml:"retry_count" envconfig:"RETRY_COUNT" default:"2"`
	RatePerMin   int           `yaml:"rate_per_min" envconfig:"RATE_PER_MIN" default:"100"`
	MaxParallel  int           `yaml:"max_parallel" envconfig:"MAX_PARALLEL" default:"4"`
	CacheTTL     time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" default:"1h"`
	DefaultStart string        `yaml:"default_start" envconfig:"DEFAULT_START" default:"2000-01-01"`
}

// SeriesSpec maps one human label to its upstream source identifier and the
// lag convention for its percent-change transform (4 for quarterly series,
// 12 for monthly).
type SeriesSpec struct {
	Label     string `yaml:"label"`
	SourceID  string `yaml:"source_id"`
	Lag       int    `yaml:"lag"`
	Frequency string `yaml:"frequency"`
}

// SeriesConfig is the registry of selectable series. The core pipeline only
// ever sees resolved (source id, lag) pairs; label resolution happens here.
type SeriesConfig struct {
	Registry []SeriesSpec `yaml:"registry"`
}

// Resolve returns the spec for a label, or an error naming the unknown label.
func (s SeriesConfig) Resolve(label string) (SeriesSpec, error) {
	for _, spec := range s.Registry {
		if spec.Label == label {
			return spec, nil
		}
	}
	return SeriesSpec{}, fmt.Errorf("unknown series label %q", label)
}

// Labels returns all registered labels in registry order.
func (s SeriesConfig) Labels() []string {
	labels := make([]string, len(s.Registry))
	for i, spec := range s.Registry {
		labels[i] = spec.Label
	}
	return labels
}

// defaultRegistry is the stock macro dashboard selection.
func defaultRegistry() []SeriesSpec {
	return []SeriesSpec{
		{Label: "Federal Funds Rate", SourceID: "FEDFUNDS", Lag: 12, Frequency: "monthly"},
		{Label: "Unemployment Rate", SourceID: "UNRATE", Lag: 12, Frequency: "monthly"},
		{Label: "Real GDP", SourceID: "GDPC1", Lag: 4, Frequency: "quarterly"},
		{Label: "CPI", SourceID: "CPIAUCSL", Lag: 12, Frequency: "monthly"},
	}
}

// Load builds the configuration: env vars first, then an optional YAML file
// for anything env left unset, then defaults and validation.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MACRO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
			}
			cfg = merge(*fileCfg, cfg)
		}
	}

	if len(cfg.Series.Registry) == 0 {
		cfg.Series.Registry = defaultRegistry()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays env config on top of file config; env wins where set.
func merge(file, env Config) Config {
	if env.Server.Port == 0 {
		env.Server.Port = file.Server.Port
	}
	if env.FRED.BaseURL == "" {
		env.FRED.BaseURL = file.FRED.BaseURL
	}
	if env.FRED.CacheTTL == 0 {
		env.FRED.CacheTTL = file.FRED.CacheTTL
	}
	if env.Logging.Level == "" {
		env.Logging.Level = file.Logging.Level
	}
	if len(env.Series.Registry) == 0 {
		env.Series.Registry = file.Series.Registry
	}
	return env
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.FRED.BaseURL == "" {
		return fmt.Errorf("FRED base URL must be set")
	}
	if c.FRED.MaxParallel < 1 {
		return fmt.Errorf("FRED max parallel must be >= 1, got %d", c.FRED.MaxParallel)
	}
	if c.FRED.RatePerMin < 1 {
		return fmt.Errorf("FRED rate per minute must be >= 1, got %d", c.FRED.RatePerMin)
	}
	seen := make(map[string]bool, len(c.Series.Registry))
	for _, spec := range c.Series.Registry {
		if spec.Label == "" || spec.SourceID == "" {
			return fmt.Errorf("series registry entries need both label and source_id")
		}
		if spec.Lag < 1 {
			return fmt.Errorf("series %q: lag must be >= 1, got %d", spec.Label, spec.Lag)
		}
		if seen[spec.Label] {
			return fmt.Errorf("series registry has duplicate label %q", spec.Label)
		}
		seen[spec.Label] = true
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	return nil
}
