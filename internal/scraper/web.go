package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsagg/internal/config"
	"newsagg/internal/model"
)

// timeLayouts are tried in order when parsing a scraped time string.
var timeLayouts = []string{
	"15:04",
	"02.01.2006 15:04",
	"2006-01-02 15:04",
	"2 January 2006, 15:04",
}

// Web scrapes an HTML page using the source's CSS selectors.
type Web struct {
	src  config.Source
	opts Options
}

// NewWeb creates a web scraper for the given source.
func NewWeb(src config.Source, opts Options) *Web {
	return &Web{src: src, opts: opts}
}

// Name returns the source name.
func (w *Web) Name() string { return w.src.Name }

// Scrape downloads the page and extracts articles via the configured
// selectors.
func (w *Web) Scrape(ctx context.Context) ([]model.Article, error) {
	if w.src.URL == "" || w.src.Selectors == nil {
		return nil, nil
	}

	body, err := fetch(ctx, w.opts, w.src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", w.src.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var articles []model.Article
	doc.Find(w.src.Selectors.Container).Each(func(_ int, sel *goquery.Selection) {
		if a := w.parseContainer(sel); a != nil {
			articles = append(articles, *a)
		}
	})

	return filterArticles(articles, w.src.Keywords, w.opts.MaxPerSource), nil
}

func (w *Web) parseContainer(sel *goquery.Selection) *model.Article {
	titleSel := sel
	if w.src.Selectors.Title != "" {
		titleSel = sel.Find(w.src.Selectors.Title).First()
	}
	title := strings.TrimSpace(titleSel.Text())

	var timeText string
	if w.src.Selectors.Time != "" {
		timeText = strings.TrimSpace(sel.Find(w.src.Selectors.Time).First().Text())
		// Some pages inline the time inside the headline element.
		title = strings.TrimSpace(strings.Replace(title, timeText, "", 1))
	}
	if title == "" {
		return nil
	}

	linkSel := sel
	if w.src.Selectors.Link != "" {
		linkSel = sel.Find(w.src.Selectors.Link).First()
	} else if !sel.Is("a") {
		linkSel = sel.Find("a").First()
	}
	href, ok := linkSel.Attr("href")
	if !ok || href == "" {
		return nil
	}

	base := w.src.LinkPrefix
	if base == "" {
		base = w.src.URL
	}
	link := resolveURL(base, href)
	if link == "" {
		return nil
	}

	return &model.Article{
		Title:     title,
		URL:       link,
		Source:    w.src.Name,
		Timestamp: parseTime(timeText),
	}
}

func resolveURL(base, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// parseTime tries the known layouts. A time-of-day-only value is placed on
// today's date.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			now := time.Now()
			parsed = time.Date(now.Year(), now.Month(), now.Day(),
				parsed.Hour(), parsed.Minute(), 0, 0, parsed.Location())
		}
		return &parsed
	}
	return nil
}
