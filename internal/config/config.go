// Package config handles application configuration from environment
// variables and the sources file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken  string
	TelegramChannelID int64
	DatabasePath      string
	SourcesPath       string
	LogLevel          string
	ScrapeInterval    time.Duration
	KeepDays          int
	RequestTimeout    time.Duration
	MaxPerSource      int
	UserAgent         string
	MessageFormat     string
}

// Load reads configuration from environment variables. The Telegram token
// and channel ID may be absent: the aggregator then keeps scraping and
// storing while every delivery reports failure.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/news.db"),
		SourcesPath:      envOrDefault("SOURCES_PATH", "./config/sources.yaml"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		ScrapeInterval:   10 * time.Minute,
		KeepDays:         7,
		RequestTimeout:   30 * time.Second,
		MaxPerSource:     20,
		UserAgent:        envOrDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		MessageFormat:    envOrDefault("MESSAGE_FORMAT", "📰 *{source}*\n{title}\n🔗 {url}\n⏰ {timestamp}"),
	}

	if raw := os.Getenv("TELEGRAM_CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHANNEL_ID %q: %w", raw, err)
		}
		cfg.TelegramChannelID = id
	}

	if raw := os.Getenv("SCRAPE_INTERVAL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			return nil, fmt.Errorf("invalid SCRAPE_INTERVAL_MINUTES %q", raw)
		}
		cfg.ScrapeInterval = time.Duration(minutes) * time.Minute
	}

	if raw := os.Getenv("KEEP_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return nil, fmt.Errorf("invalid KEEP_DAYS %q", raw)
		}
		cfg.KeepDays = days
	}

	if raw := os.Getenv("MAX_ARTICLES_PER_SOURCE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_ARTICLES_PER_SOURCE %q", raw)
		}
		cfg.MaxPerSource = n
	}

	return cfg, nil
}

// Selectors holds the CSS selectors a web source is scraped with.
type Selectors struct {
	Container string `yaml:"container"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Time      string `yaml:"time"`
}

// Source describes one configured news source.
type Source struct {
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	URL        string     `yaml:"url"`
	Selectors  *Selectors `yaml:"selectors"`
	LinkPrefix string     `yaml:"link_prefix"`
	Keywords   []string   `yaml:"keywords"`
	Enabled    *bool      `yaml:"enabled"`
}

// IsEnabled reports whether the source should be scraped. Sources are
// enabled unless explicitly disabled.
func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources parses the sources file and returns the enabled sources.
// A missing file yields an empty list, not an error.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	var enabled []Source
	for _, s := range f.Sources {
		if !s.IsEnabled() {
			continue
		}
		if s.Type == "" {
			s.Type = "web"
		}
		enabled = append(enabled, s)
	}
	return enabled, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
