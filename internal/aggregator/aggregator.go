// Package aggregator runs the scrape-store-deliver cycle.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"newsagg/internal/model"
	"newsagg/internal/scraper"
	"newsagg/internal/storage"
)

// Sender delivers pending articles and reports how many went out.
type Sender interface {
	SendPending(ctx context.Context) (int, error)
}

// Aggregator fans out to the configured scrapers, stores the results and
// triggers delivery.
type Aggregator struct {
	store    storage.Storage
	scrapers []scraper.Scraper
	sender   Sender
	keepDays int
	log      *slog.Logger
}

// New creates an Aggregator.
func New(store storage.Storage, scrapers []scraper.Scraper, sender Sender, keepDays int, log *slog.Logger) *Aggregator {
	return &Aggregator{
		store:    store,
		scrapers: scrapers,
		sender:   sender,
		keepDays: keepDays,
		log:      log,
	}
}

// RunCycle performs one full cycle: concurrent scrape, sequential store,
// then paced delivery. A failed scraper contributes nothing; a storage
// failure aborts the cycle.
func (a *Aggregator) RunCycle(ctx context.Context) error {
	a.log.Info("starting scrape cycle")

	articles := a.scrapeAll(ctx)

	saved, err := a.processArticles(ctx, articles)
	if err != nil {
		return err
	}

	sent, err := a.sender.SendPending(ctx)
	if err != nil {
		return fmt.Errorf("send pending: %w", err)
	}

	a.log.Info("cycle complete", "scraped", len(articles), "new", saved, "sent", sent)
	return nil
}

// scrapeAll runs every scraper concurrently and gathers their articles.
// Individual failures are logged and yield nothing.
func (a *Aggregator) scrapeAll(ctx context.Context) []model.Article {
	var (
		mu  sync.Mutex
		all []model.Article
		wg  sync.WaitGroup
	)

	for _, sc := range a.scrapers {
		wg.Add(1)
		go func(sc scraper.Scraper) {
			defer wg.Done()
			articles, err := sc.Scrape(ctx)
			if err != nil {
				a.log.Error("scrape failed", "source", sc.Name(), "error", err)
				return
			}
			a.log.Debug("scraped source", "source", sc.Name(), "count", len(articles))
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
		}(sc)
	}
	wg.Wait()

	return all
}

// processArticles saves each article in order, so same-cycle duplicate
// detection depends only on processing order.
func (a *Aggregator) processArticles(ctx context.Context, articles []model.Article) (int, error) {
	saved := 0
	for i := range articles {
		fresh, err := a.store.Save(ctx, &articles[i])
		if err != nil {
			return saved, fmt.Errorf("save article %q: %w", articles[i].Title, err)
		}
		if fresh {
			saved++
		}
	}
	a.log.Info("saved new articles", "count", saved)
	return saved, nil
}

// Cleanup removes articles past the retention horizon.
func (a *Aggregator) Cleanup(ctx context.Context) error {
	removed, err := a.store.CleanupOld(ctx, a.keepDays)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	a.log.Info("cleaned up old articles", "removed", removed, "keep_days", a.keepDays)
	return nil
}
