// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ytinsight/internal/logging"
)

// Default Data API request shape: every part and field the crawler writes out.
const (
	DefaultParts  = "snippet,contentDetails,statistics,topicDetails"
	DefaultFields = "items(id," +
		"snippet(publishedAt,channelId,title,description,thumbnails,channelTitle,categoryId,tags,defaultLanguage,defaultAudioLanguage)," +
		"contentDetails(duration,definition,caption,licensedContent,regionRestriction)," +
		"statistics," +
		"topicDetails)"
)

// Config holds all application configuration for a crawl run.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Historical HistoricalConfig `yaml:"historical"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Logging    logging.Config   `yaml:"logging"`
	Output     OutputConfig     `yaml:"output"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SessionConfig controls the anonymous session bootstrap.
type SessionConfig struct {
	// Host is the scheme and host of the video site.
	Host string `yaml:"host"`
	// WarmupVideoID is the watch page fetched to obtain cookies and the token.
	WarmupVideoID string `yaml:"warmup_video_id"`
	// WarmupJitter bounds the random pause after the bootstrap request.
	WarmupJitter time.Duration `yaml:"warmup_jitter"`
	// CookieNames is the allow-list of cookies forwarded to the analytics endpoint.
	CookieNames []string `yaml:"cookie_names"`
	// RebootstrapAfter re-acquires the session after this many consecutive
	// historical transport failures. 0 keeps one session for the whole run.
	RebootstrapAfter int `yaml:"rebootstrap_after"`
}

// HistoricalConfig controls the analytics fetch attempts.
type HistoricalConfig struct {
	// MaxAttempts is the number of POST attempts per item.
	MaxAttempts int `yaml:"max_attempts"`
	// JitterMin and JitterMax bound the pause before every attempt.
	JitterMin time.Duration `yaml:"jitter_min"`
	JitterMax time.Duration `yaml:"jitter_max"`
	// TimeoutBase is multiplied by 2^attempt to get each attempt's timeout.
	TimeoutBase time.Duration `yaml:"timeout_base"`
}

// MetadataConfig controls Data API calls.
type MetadataConfig struct {
	// APIKey is the Data API developer key.
	APIKey string `yaml:"api_key"`
	// Endpoint overrides the Data API base URL (tests, proxies).
	Endpoint string `yaml:"endpoint"`
	Parts    string `yaml:"parts"`
	Fields   string `yaml:"fields"`
	// MaxAttempts is the number of tries per Data API call.
	MaxAttempts int `yaml:"max_attempts"`
	// Jitter is added to every exponential backoff pause.
	Jitter time.Duration `yaml:"jitter"`
	// MaxRelevant caps the relevant-video ids collected per item.
	MaxRelevant int `yaml:"max_relevant"`
	// PageSize is the maxResults used for paginated list calls.
	PageSize int64 `yaml:"page_size"`
	// DetectLanguage fills a detected language when the API returns none.
	DetectLanguage bool `yaml:"detect_language"`
}

// RateLimitConfig enables a token bucket in front of the video site.
type RateLimitConfig struct {
	// RPS is requests per second per host. 0 relies on jitter pauses only.
	RPS float64 `yaml:"rps"`
}

// OutputConfig controls the output file and its optional upload.
type OutputConfig struct {
	LockTimeout time.Duration `yaml:"lock_timeout"`
	S3Bucket    string        `yaml:"s3_bucket"`
	S3Prefix    string        `yaml:"s3_prefix"`
	S3Region    string        `yaml:"s3_region"`
	// S3Endpoint overrides the S3 endpoint, e.g. for MinIO. Implies path-style.
	S3Endpoint string `yaml:"s3_endpoint"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Host:          "https://www.youtube.com",
			WarmupVideoID: "rYEDA3JcQqw",
			WarmupJitter:  1 * time.Second,
			CookieNames:   []string{"YSC", "PREF", "VISITOR_INFO1_LIVE", "ACTIVITY"},
		},
		Historical: HistoricalConfig{
			MaxAttempts: 3,
			JitterMin:   100 * time.Millisecond,
			JitterMax:   1 * time.Second,
			TimeoutBase: 1 * time.Second,
		},
		Metadata: MetadataConfig{
			Parts:          DefaultParts,
			Fields:         DefaultFields,
			MaxAttempts:    3,
			Jitter:         1 * time.Second,
			MaxRelevant:    50,
			PageSize:       50,
			DetectLanguage: true,
		},
		Logging: logging.DefaultConfig(),
		Output: OutputConfig{
			LockTimeout: 5 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file, a .env file and environment
// variables, on top of the defaults.
// Priority: env vars > .env > config file > defaults.
// An empty path searches ytinsight.yaml in the working directory and in
// ~/.config/ytinsight; a missing file is not an error in that case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		if path != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads the given file or, when path is empty, the first
// ytinsight.yaml found in the search path.
func (c *Config) loadFromFile(path string) error {
	paths := []string{path}
	if path == "" {
		paths = []string{
			"ytinsight.yaml",
			filepath.Join(os.Getenv("HOME"), ".config", "ytinsight", "ytinsight.yaml"),
		}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == "" {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	}

	return fs.ErrNotExist
}

// loadFromEnv overrides config with YTINSIGHT_* environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("YTINSIGHT_API_KEY"); v != "" {
		c.Metadata.APIKey = v
	}
	if v := os.Getenv("YTINSIGHT_API_ENDPOINT"); v != "" {
		c.Metadata.Endpoint = v
	}
	if v := os.Getenv("YTINSIGHT_HOST"); v != "" {
		c.Session.Host = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("YTINSIGHT_HISTORICAL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Historical.MaxAttempts = n
		}
	}
	if v := os.Getenv("YTINSIGHT_METADATA_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Metadata.MaxAttempts = n
		}
	}
	if v := os.Getenv("YTINSIGHT_REBOOTSTRAP_AFTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.RebootstrapAfter = n
		}
	}
	if v := os.Getenv("YTINSIGHT_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("YTINSIGHT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("YTINSIGHT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("YTINSIGHT_S3_BUCKET"); v != "" {
		c.Output.S3Bucket = v
	}
	if v := os.Getenv("YTINSIGHT_S3_PREFIX"); v != "" {
		c.Output.S3Prefix = v
	}
	if v := os.Getenv("YTINSIGHT_S3_REGION"); v != "" {
		c.Output.S3Region = v
	}
	if v := os.Getenv("YTINSIGHT_S3_ENDPOINT"); v != "" {
		c.Output.S3Endpoint = v
	}
	if v := os.Getenv("YTINSIGHT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.Session.Host == "" {
		return fmt.Errorf("session.host must be set")
	}
	if len(c.Session.CookieNames) == 0 {
		return fmt.Errorf("session.cookie_names must not be empty")
	}
	if c.Session.WarmupJitter < 0 {
		return fmt.Errorf("session.warmup_jitter must be non-negative")
	}
	if c.Session.RebootstrapAfter < 0 {
		return fmt.Errorf("session.rebootstrap_after must be non-negative")
	}
	if c.Historical.MaxAttempts < 1 {
		return fmt.Errorf("historical.max_attempts must be at least 1")
	}
	if c.Historical.JitterMin < 0 || c.Historical.JitterMax < c.Historical.JitterMin {
		return fmt.Errorf("historical jitter must satisfy 0 <= jitter_min <= jitter_max")
	}
	if c.Historical.TimeoutBase <= 0 {
		return fmt.Errorf("historical.timeout_base must be positive")
	}
	if c.Metadata.MaxAttempts < 1 {
		return fmt.Errorf("metadata.max_attempts must be at least 1")
	}
	if c.Metadata.Parts == "" {
		return fmt.Errorf("metadata.parts must be set")
	}
	if c.Metadata.PageSize < 1 || c.Metadata.PageSize > 50 {
		return fmt.Errorf("metadata.page_size must be between 1 and 50")
	}
	if c.Metadata.MaxRelevant < 0 {
		return fmt.Errorf("metadata.max_relevant must be non-negative")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be non-negative")
	}
	return nil
}
