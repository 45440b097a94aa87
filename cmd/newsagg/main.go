package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"newsagg/internal/aggregator"
	"newsagg/internal/config"
	"newsagg/internal/scheduler"
	"newsagg/internal/scraper"
	"newsagg/internal/storage"
	"newsagg/internal/telegram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsagg",
		Short:         "Scrape news sources, deduplicate and relay to a Telegram channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "once",
			Short: "Run a single scrape-store-deliver cycle",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print aggregate article counts",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runStats(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete articles past the retention horizon",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCleanup(cmd.Context())
			},
		},
	)
	return root
}

func runWatch(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	agg, err := buildAggregator(cfg, store, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting news aggregator", "interval", cfg.ScrapeInterval)
	scheduler.New(agg, cfg.ScrapeInterval, log).Run(ctx)
	log.Info("news aggregator stopped")
	return nil
}

func runOnce(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	agg, err := buildAggregator(cfg, store, log)
	if err != nil {
		return err
	}
	return agg.RunCycle(ctx)
}

func runStats(ctx context.Context) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Total: %d\n", stats.Total)
	fmt.Printf("Sent: %d\n", stats.Sent)
	fmt.Printf("Pending: %d\n", stats.Pending)

	sources := make([]string, 0, len(stats.BySource))
	for source := range stats.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Printf("  %s: %d\n", source, stats.BySource[source])
	}
	return nil
}

func runCleanup(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	removed, err := store.CleanupOld(ctx, cfg.KeepDays)
	if err != nil {
		return err
	}
	log.Info("cleaned up old articles", "removed", removed, "keep_days", cfg.KeepDays)
	return nil
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func openStore(cfg *config.Config) (*storage.SQLite, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func buildAggregator(cfg *config.Config, store *storage.SQLite, log *slog.Logger) (*aggregator.Aggregator, error) {
	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	if len(sources) == 0 {
		log.Warn("no sources configured", "path", cfg.SourcesPath)
	}

	scrapers := scraper.FromConfig(sources, scraper.Options{
		Client:       http.DefaultClient,
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.RequestTimeout,
		MaxPerSource: cfg.MaxPerSource,
	}, log)

	// The interface must stay nil when no client exists, so the concrete
	// pointer is only assigned if the API came up.
	var api telegram.API
	if botAPI := newBotAPI(cfg, log); botAPI != nil {
		api = botAPI
	}
	notifier := telegram.New(api, store, cfg.TelegramChannelID,
		telegram.NewFormatter(cfg.MessageFormat), log)

	return aggregator.New(store, scrapers, notifier, cfg.KeepDays, log), nil
}

// newBotAPI returns nil when the bot token is absent or rejected; the
// notifier then treats every delivery as a soft failure and cycles keep
// scraping and storing.
func newBotAPI(cfg *config.Config, log *slog.Logger) *tgbotapi.BotAPI {
	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, delivery disabled")
		return nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create bot api, delivery disabled", "error", err)
		return nil
	}
	return api
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
