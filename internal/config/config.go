package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	RateLimit         time.Duration `mapstructure:"rate_limit"`
	MaxRetries        int           `mapstructure:"max_retries"`
	MaxWorkers        int           `mapstructure:"max_workers"`
	MaxPages          int           `mapstructure:"max_pages"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	RetryOnStatus     []int         `mapstructure:"retry_on_status"`
	RetryMinDelay     time.Duration `mapstructure:"retry_min_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
	IncludeSubdomains bool          `mapstructure:"include_subdomains"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

// Load loads configuration from file, environment and defaults. configPath
// may be empty, in which case only default search paths are consulted and a
// missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.ragsmith")
	}

	setDefaults(v)

	v.SetEnvPrefix("RAGSMITH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.rate_limit", "1s")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.max_workers", 5)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("crawler.timeout", "30s")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.retry_on_status", []int{})
	v.SetDefault("crawler.retry_min_delay", "4s")
	v.SetDefault("crawler.retry_max_delay", "10s")
	v.SetDefault("crawler.include_subdomains", false)

	v.SetDefault("storage.output_dir", "data/scraped_content")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "data/logs")
}

// Validate checks configuration invariants before a crawl starts.
func (c *Config) Validate() error {
	if c.Crawler.MaxRetries < 1 {
		return fmt.Errorf("crawler.max_retries must be at least 1")
	}
	if c.Crawler.MaxWorkers <= 0 {
		return fmt.Errorf("crawler.max_workers must be positive")
	}
	if c.Crawler.RateLimit < 0 {
		return fmt.Errorf("crawler.rate_limit must not be negative")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive")
	}
	if c.Crawler.RetryMinDelay > c.Crawler.RetryMaxDelay {
		return fmt.Errorf("crawler.retry_min_delay must not exceed crawler.retry_max_delay")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	return nil
}

// ValidateSeed checks that a seed URL is absolute and well formed. Invalid
// seeds fail fast: the crawl never starts.
func ValidateSeed(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return u, nil
}
