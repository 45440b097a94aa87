package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHANNEL_ID", "DATABASE_PATH", "SOURCES_PATH",
		"LOG_LEVEL", "SCRAPE_INTERVAL_MINUTES", "KEEP_DAYS", "MAX_ARTICLES_PER_SOURCE",
		"USER_AGENT", "MESSAGE_FORMAT",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DatabasePath != "./data/news.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.ScrapeInterval != 10*time.Minute {
		t.Errorf("ScrapeInterval = %v", cfg.ScrapeInterval)
	}
	if cfg.KeepDays != 7 {
		t.Errorf("KeepDays = %d", cfg.KeepDays)
	}
	if cfg.MaxPerSource != 20 {
		t.Errorf("MaxPerSource = %d", cfg.MaxPerSource)
	}
	if cfg.TelegramChannelID != 0 {
		t.Errorf("TelegramChannelID = %d, want unset", cfg.TelegramChannelID)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-1001234567890")
	t.Setenv("SCRAPE_INTERVAL_MINUTES", "5")
	t.Setenv("KEEP_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.TelegramBotToken != "123:abc" {
		t.Errorf("TelegramBotToken = %q", cfg.TelegramBotToken)
	}
	if cfg.TelegramChannelID != -1001234567890 {
		t.Errorf("TelegramChannelID = %d", cfg.TelegramChannelID)
	}
	if cfg.ScrapeInterval != 5*time.Minute {
		t.Errorf("ScrapeInterval = %v", cfg.ScrapeInterval)
	}
	if cfg.KeepDays != 14 {
		t.Errorf("KeepDays = %d", cfg.KeepDays)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad channel id", key: "TELEGRAM_CHANNEL_ID", value: "not-a-number"},
		{name: "zero interval", key: "SCRAPE_INTERVAL_MINUTES", value: "0"},
		{name: "negative keep days", key: "KEEP_DAYS", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	yaml := `sources:
  - name: Example News
    type: web
    url: https://example.com/news
    selectors:
      container: ".article"
      title: ".headline"
      link: "a"
      time: ".time"
    keywords: [economy, politics]
  - name: Example Feed
    type: rss
    url: https://example.com/rss
  - name: Disabled Source
    url: https://example.com/off
    enabled: false
  - name: Default Type
    url: https://example.com/plain
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("load sources: %v", err)
	}

	if len(sources) != 3 {
		t.Fatalf("expected 3 enabled sources, got %d", len(sources))
	}

	want := Source{
		Name: "Example News",
		Type: "web",
		URL:  "https://example.com/news",
		Selectors: &Selectors{
			Container: ".article",
			Title:     ".headline",
			Link:      "a",
			Time:      ".time",
		},
		Keywords: []string{"economy", "politics"},
	}
	if diff := cmp.Diff(want, sources[0]); diff != "" {
		t.Errorf("first source mismatch (-want +got):\n%s", diff)
	}
	if sources[2].Type != "web" {
		t.Errorf("missing type should default to web, got %q", sources[2].Type)
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %d", len(sources))
	}
}
