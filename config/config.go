// Package config loads ytscribe configuration from a YAML file,
// environment variables, and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Channel    ChannelConfig    `mapstructure:"channel"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Output     OutputConfig     `mapstructure:"output"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Log        LogConfig        `mapstructure:"log"`
}

type ChannelConfig struct {
	// Handle is the channel handle (@name), URL, or bare channel ID.
	Handle string `mapstructure:"handle"`
	Name   string `mapstructure:"name"`
}

type ExtractionConfig struct {
	BatchSize         int      `mapstructure:"batch_size"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryDelaySeconds int      `mapstructure:"retry_delay_seconds"`
	RateLimitSeconds  int      `mapstructure:"rate_limit_seconds"`
	BatchDelaySeconds int      `mapstructure:"batch_delay_seconds"`
	Languages         []string `mapstructure:"languages"`
	MaxVideos         int      `mapstructure:"max_videos"`
}

// ItemDelay returns the pause between videos.
func (e ExtractionConfig) ItemDelay() time.Duration {
	return time.Duration(e.RateLimitSeconds) * time.Second
}

// RetryDelay returns the base backoff delay between attempts.
func (e ExtractionConfig) RetryDelay() time.Duration {
	return time.Duration(e.RetryDelaySeconds) * time.Second
}

// BatchDelay returns the pause between batches.
func (e ExtractionConfig) BatchDelay() time.Duration {
	return time.Duration(e.BatchDelaySeconds) * time.Second
}

type OutputConfig struct {
	Directory    string `mapstructure:"directory"`
	ProgressFile string `mapstructure:"progress_file"`
	AttemptLog   string `mapstructure:"attempt_log"`
}

type HTTPConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	UserAgent         string  `mapstructure:"user_agent"`
}

// Timeout returns the per-request HTTP timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from the given file, falling back to
// ./ytscribe.yaml and then defaults. Environment variables override file
// values; a .env file is loaded first if present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ytscribe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("YTSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("channel.handle", "YTSCRIBE_CHANNEL")
	v.BindEnv("log.level", "YTSCRIBE_LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("channel.handle", "@MercazDafYomi")
	v.SetDefault("channel.name", "Mercaz Daf Yomi")
	v.SetDefault("extraction.batch_size", 50)
	v.SetDefault("extraction.max_retries", 3)
	v.SetDefault("extraction.retry_delay_seconds", 2)
	v.SetDefault("extraction.rate_limit_seconds", 2)
	v.SetDefault("extraction.batch_delay_seconds", 5)
	v.SetDefault("extraction.languages", []string{"en", "en-US", "en-GB", "he", "iw"})
	v.SetDefault("extraction.max_videos", 0)
	v.SetDefault("output.directory", "Mercaz_Daf_Yomi_Transcripts")
	v.SetDefault("output.progress_file", "extraction_progress.json")
	v.SetDefault("output.attempt_log", "attempt_log.jsonl")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.requests_per_second", 0.5)
	v.SetDefault("http.user_agent", "ytscribe/1.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Validate checks the configuration for values that would break a run.
func (c *Config) Validate() error {
	if c.Channel.Handle == "" {
		return fmt.Errorf("config: channel.handle is required")
	}
	if c.Extraction.BatchSize < 1 {
		return fmt.Errorf("config: extraction.batch_size must be >= 1, got %d", c.Extraction.BatchSize)
	}
	if c.Extraction.MaxRetries < 1 {
		return fmt.Errorf("config: extraction.max_retries must be >= 1, got %d", c.Extraction.MaxRetries)
	}
	if c.Extraction.RetryDelaySeconds < 0 {
		return fmt.Errorf("config: extraction.retry_delay_seconds must be non-negative")
	}
	if c.Extraction.RateLimitSeconds < 0 {
		return fmt.Errorf("config: extraction.rate_limit_seconds must be non-negative")
	}
	if c.Extraction.BatchDelaySeconds < 0 {
		return fmt.Errorf("config: extraction.batch_delay_seconds must be non-negative")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("config: output.directory is required")
	}
	if c.HTTP.TimeoutSeconds < 1 {
		return fmt.Errorf("config: http.timeout_seconds must be >= 1, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("config: http.requests_per_second must be non-negative")
	}
	return nil
}
