package scraper

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"newsagg/internal/config"
	"newsagg/internal/model"
)

// RSS scrapes an RSS or Atom feed.
type RSS struct {
	src  config.Source
	opts Options
}

// NewRSS creates a feed scraper for the given source.
func NewRSS(src config.Source, opts Options) *RSS {
	return &RSS{src: src, opts: opts}
}

// Name returns the source name.
func (r *RSS) Name() string { return r.src.Name }

// Scrape downloads and parses the feed.
func (r *RSS) Scrape(ctx context.Context) ([]model.Article, error) {
	if r.src.URL == "" {
		return nil, nil
	}

	body, err := fetch(ctx, r.opts, r.src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.src.Name, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var articles []model.Article
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		a := model.Article{
			Title:   item.Title,
			URL:     item.Link,
			Source:  r.src.Name,
			Content: item.Description,
		}
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			a.Timestamp = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			a.Timestamp = &t
		}
		articles = append(articles, a)
	}

	return filterArticles(articles, r.src.Keywords, r.opts.MaxPerSource), nil
}
