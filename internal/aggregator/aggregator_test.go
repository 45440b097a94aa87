package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"newsagg/internal/model"
	"newsagg/internal/scraper"
	"newsagg/internal/storage"
)

type fakeScraper struct {
	name     string
	articles []model.Article
	err      error
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(_ context.Context) ([]model.Article, error) {
	return f.articles, f.err
}

type fakeSender struct {
	calls int
	sent  int
	err   error
}

func (f *fakeSender) SendPending(_ context.Context) (int, error) {
	f.calls++
	return f.sent, f.err
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunCycleToleratesScraperFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scrapers := []scraper.Scraper{
		&fakeScraper{name: "good", articles: []model.Article{
			{Title: "Harvest festival draws record crowd", URL: "https://a.example.com/1", Source: "good"},
			{Title: "Tram network adds night service", URL: "https://a.example.com/2", Source: "good"},
		}},
		&fakeScraper{name: "broken", err: errors.New("connection refused")},
	}
	sender := &fakeSender{}

	agg := New(store, scrapers, sender, 7, discard())
	if err := agg.RunCycle(ctx); err != nil {
		t.Fatalf("cycle should tolerate a failed scraper: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("stored = %d, want 2", stats.Total)
	}
	if sender.calls != 1 {
		t.Errorf("sender called %d times, want 1", sender.calls)
	}
}

func TestRunCycleDeduplicatesAcrossSources(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	scrapers := []scraper.Scraper{
		&fakeScraper{name: "siteA", articles: []model.Article{
			{Title: "Ukraine Strikes Target", URL: "https://a.example.com/1", Source: "siteA"},
		}},
	}
	agg := New(store, scrapers, &fakeSender{}, 7, discard())
	if err := agg.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	// Second cycle, different source reporting the same story.
	agg = New(store, []scraper.Scraper{
		&fakeScraper{name: "siteB", articles: []model.Article{
			{Title: "ukraine strikes target!!", URL: "https://b.example.com/7", Source: "siteB"},
		}},
	}, &fakeSender{}, 7, discard())
	if err := agg.RunCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	unsent, err := store.Unsent(ctx)
	if err != nil {
		t.Fatalf("unsent: %v", err)
	}
	if len(unsent) != 1 {
		t.Fatalf("expected 1 deliverable article, got %d", len(unsent))
	}
	if len(unsent[0].OtherSources) != 1 || unsent[0].OtherSources[0] != "siteB" {
		t.Errorf("other_sources = %v, want [siteB]", unsent[0].OtherSources)
	}
}

func TestRunCyclePropagatesSenderError(t *testing.T) {
	store := newTestStore(t)
	sender := &fakeSender{err: errors.New("storage gone")}

	agg := New(store, nil, sender, 7, discard())
	if err := agg.RunCycle(context.Background()); err == nil {
		t.Error("expected sender error to propagate")
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)
	agg := New(store, nil, &fakeSender{}, 7, discard())
	if err := agg.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
