package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedditConfig configures the content source.
type RedditConfig struct {
	// Source is "api", "rss" or "auto". Auto uses the API when client
	// credentials are set and the public feeds otherwise.
	Source       string `yaml:"source"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

// UseAPI reports whether the OAuth API client should be used.
func (r RedditConfig) UseAPI() bool {
	switch r.Source {
	case "api":
		return true
	case "rss":
		return false
	}
	return r.ClientID != "" && r.ClientSecret != ""
}

// ScheduleConfig configures periodic ingestion in daemon mode.
type ScheduleConfig struct {
	IngestInterval string         `yaml:"ingest_interval"`
	Subreddits     []Subscription `yaml:"subreddits"`
}

// Subscription is one listing the scheduler keeps ingesting.
type Subscription struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
	Time  string `yaml:"time"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./reddit.db"},
		Reddit: RedditConfig{
			Source:    "auto",
			UserAgent: "subreader/1.0",
		},
		Schedule: ScheduleConfig{IngestInterval: "6h"},
		Server:   ServerConfig{Port: 8080},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. A missing file is not an error; variables already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUBREADER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SUBREADER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		cfg.Reddit.UserAgent = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	switch c.Reddit.Source {
	case "", "auto", "rss":
	case "api":
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			return errors.New("reddit source api needs client_id and client_secret")
		}
	default:
		return fmt.Errorf("unknown reddit source %q", c.Reddit.Source)
	}
	for i, s := range c.Schedule.Subreddits {
		if s.Name == "" {
			return fmt.Errorf("schedule subreddit at index %d has no name", i)
		}
	}
	return nil
}
