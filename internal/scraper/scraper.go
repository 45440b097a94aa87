// Package scraper implements the source adapters that turn configured news
// sources into article lists.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newsagg/internal/config"
	"newsagg/internal/model"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 5 * 1024 * 1024

// Scraper is the single capability every source adapter implements.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]model.Article, error)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options carries the scrape settings shared by all adapters.
type Options struct {
	Client       HTTPClient
	UserAgent    string
	Timeout      time.Duration
	MaxPerSource int
}

// FromConfig builds a scraper per enabled source. Sources with an unknown
// type are skipped with a warning.
func FromConfig(sources []config.Source, opts Options, log *slog.Logger) []Scraper {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	var scrapers []Scraper
	for _, src := range sources {
		switch src.Type {
		case "web":
			scrapers = append(scrapers, NewWeb(src, opts))
		case "rss":
			scrapers = append(scrapers, NewRSS(src, opts))
		default:
			log.Warn("unknown source type", "source", src.Name, "type", src.Type)
			continue
		}
		log.Info("initialized scraper", "source", src.Name, "type", src.Type)
	}
	return scrapers
}

// fetch downloads the source URL and returns up to maxBodySize bytes of the
// body.
func fetch(ctx context.Context, opts Options, url string) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// filterArticles applies the source's keyword filter and caps the result.
func filterArticles(articles []model.Article, keywords []string, max int) []model.Article {
	var kept []model.Article
	for _, a := range articles {
		if a.MatchesKeywords(keywords) {
			kept = append(kept, a)
		}
	}
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}
	return kept
}
