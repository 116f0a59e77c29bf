package validate

import (
	"strings"
	"testing"

	"github.com/ppiankov/reportwatch/internal/model"
)

func validSource() model.Source {
	return model.Source{
		Name:            "Example",
		Folder:          "example_reports",
		ListingURL:      "https://example.com/reports",
		Strategy:        model.StrategyStatic,
		Match:           model.LinkMatch{HrefSuffix: ".pdf"},
		SentimentTarget: model.SentimentOnSummary,
	}
}

func TestSources_Defaults(t *testing.T) {
	if err := Sources(model.DefaultSources()); err != nil {
		t.Fatalf("default catalog should validate: %v", err)
	}
}

func TestSources_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Source)
		want   string
	}{
		{"missing name", func(s *model.Source) { s.Name = "" }, "name is required"},
		{"nested folder", func(s *model.Source) { s.Folder = "a/b" }, "single path segment"},
		{"dotdot folder", func(s *model.Source) { s.Folder = ".." }, "single path segment"},
		{"relative listing", func(s *model.Source) { s.ListingURL = "/reports" }, "listing_url"},
		{"ftp listing", func(s *model.Source) { s.ListingURL = "ftp://example.com" }, "http or https"},
		{"bad base", func(s *model.Source) { s.BaseURL = "example.com" }, "base_url"},
		{"bad strategy", func(s *model.Source) { s.Strategy = "selenium" }, "unknown strategy"},
		{"no match", func(s *model.Source) { s.Match = model.LinkMatch{} }, "match needs"},
		{"bad regex", func(s *model.Source) { s.Match = model.LinkMatch{TextPattern: "View(as"} }, "text_pattern"},
		{"negative max", func(s *model.Source) { s.MaxLinks = -1 }, "max_links"},
		{"bad target", func(s *model.Source) { s.SentimentTarget = "title" }, "sentiment_target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSource()
			tt.mutate(&s)
			err := Sources([]model.Source{s})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestSources_Duplicates(t *testing.T) {
	a := validSource()
	b := validSource()

	err := Sources([]model.Source{a, b})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !strings.Contains(err.Error(), "duplicate name") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("expected duplicate folder error, got %v", err)
	}
}

func TestSources_Empty(t *testing.T) {
	if err := Sources(nil); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
