// Package model defines the domain types used across the application.
package model

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"strings"
	"time"
)

// Article is a normalized article or post produced by a source scraper.
// Timestamp is nil when the source does not expose a publication time.
type Article struct {
	Title        string
	URL          string
	Source       string
	Timestamp    *time.Time
	Content      string
	OtherSources []string
}

// ID returns the article's content fingerprint: the hex MD5 digest of its URL.
// The same URL always yields the same ID; it serves as the primary key.
func (a *Article) ID() string {
	sum := md5.Sum([]byte(a.URL)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// MatchesKeywords reports whether the article's title or content contains any
// of the given keywords, case-insensitively. An empty keyword list matches
// everything.
func (a *Article) MatchesKeywords(keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(a.Title + " " + a.Content)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Stats holds aggregate article counts.
type Stats struct {
	Total    int
	Sent     int
	Pending  int
	BySource map[string]int
}
