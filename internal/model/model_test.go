package model

import "testing"

func TestIDDeterministic(t *testing.T) {
	a := &Article{Title: "One", URL: "https://example.com/story", Source: "siteA"}
	b := &Article{Title: "Completely different", URL: "https://example.com/story", Source: "siteB"}

	if a.ID() != b.ID() {
		t.Errorf("same URL must yield the same ID: %q vs %q", a.ID(), b.ID())
	}
	if len(a.ID()) != 32 {
		t.Errorf("ID should be a 128-bit hex digest, got %q", a.ID())
	}

	c := &Article{URL: "https://example.com/other"}
	if a.ID() == c.ID() {
		t.Error("different URLs should yield different IDs")
	}
}

func TestMatchesKeywords(t *testing.T) {
	a := &Article{
		Title:   "Central Bank Holds Rates",
		Content: "The committee voted unanimously.",
	}

	tests := []struct {
		name     string
		keywords []string
		want     bool
	}{
		{name: "no keywords matches all", keywords: nil, want: true},
		{name: "title match case-insensitive", keywords: []string{"RATES"}, want: true},
		{name: "content match", keywords: []string{"committee"}, want: true},
		{name: "any keyword suffices", keywords: []string{"football", "bank"}, want: true},
		{name: "no match", keywords: []string{"football", "weather"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.MatchesKeywords(tt.keywords); got != tt.want {
				t.Errorf("MatchesKeywords(%v) = %v, want %v", tt.keywords, got, tt.want)
			}
		})
	}
}
