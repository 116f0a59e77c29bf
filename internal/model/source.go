package model

import "sort"

// Strategy selects how a source's listing page is obtained
type Strategy string

const (
	StrategyStatic   Strategy = "static"   // Plain HTTP GET of the listing page
	StrategyRendered Strategy = "rendered" // Headless browser render, waits for <body>
)

// SentimentTarget selects which text the sentiment scorer sees
type SentimentTarget string

const (
	SentimentOnText    SentimentTarget = "text"    // Full extracted document text
	SentimentOnSummary SentimentTarget = "summary" // Condensed summary only
)

// LinkMatch is the rule deciding which anchors on a listing page are documents.
// An anchor matches when any non-empty field matches.
type LinkMatch struct {
	HrefSuffix   string `json:"href_suffix,omitempty" yaml:"href_suffix,omitempty" mapstructure:"href_suffix"`
	HrefContains string `json:"href_contains,omitempty" yaml:"href_contains,omitempty" mapstructure:"href_contains"`
	TextPattern  string `json:"text_pattern,omitempty" yaml:"text_pattern,omitempty" mapstructure:"text_pattern"`
}

// IsZero reports whether no rule is configured
func (m LinkMatch) IsZero() bool {
	return m.HrefSuffix == "" && m.HrefContains == "" && m.TextPattern == ""
}

// Source is one institution whose report listing is scraped
type Source struct {
	Name            string          `json:"name" yaml:"name" mapstructure:"name"`                                      // Display name, e.g. "Baron Capital"
	Folder          string          `json:"folder" yaml:"folder" mapstructure:"folder"`                                // On-disk name, e.g. "baron_reports"
	ListingURL      string          `json:"listing_url" yaml:"listing_url" mapstructure:"listing_url"`                 // Page listing the reports
	BaseURL         string          `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`      // Relative links resolve against this (listing URL if empty)
	Strategy        Strategy        `json:"strategy" yaml:"strategy" mapstructure:"strategy"`                          // static or rendered
	Match           LinkMatch       `json:"match" yaml:"match" mapstructure:"match"`                                   // Document link rule
	MaxLinks        int             `json:"max_links,omitempty" yaml:"max_links,omitempty" mapstructure:"max_links"`   // 0 = unlimited
	SentimentTarget SentimentTarget `json:"sentiment_target" yaml:"sentiment_target" mapstructure:"sentiment_target"` // text or summary
}

// MergedFilename is the name of the merged summary file for this source
func (s Source) MergedFilename() string {
	return s.Folder + "_summary.txt"
}

// ResolveBase returns the URL relative links are resolved against
func (s Source) ResolveBase() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return s.ListingURL
}

// DefaultSources returns the built-in source catalog
func DefaultSources() []Source {
	pdfSuffix := LinkMatch{HrefSuffix: ".pdf"}
	generic := func(name, folder, listing string) Source {
		return Source{
			Name:            name,
			Folder:          folder,
			ListingURL:      listing,
			Strategy:        StrategyStatic,
			Match:           pdfSuffix,
			SentimentTarget: SentimentOnSummary,
		}
	}

	return []Source{
		{
			Name:            "Fidelity",
			Folder:          "fidelity_reports",
			ListingURL:      "https://fundresearch.fidelity.com/mutual-funds/analysis/316345305?documentType=QFR",
			BaseURL:         "https://fundresearch.fidelity.com",
			Strategy:        StrategyRendered,
			Match:           LinkMatch{TextPattern: `View\s*as\s*PDF`},
			MaxLinks:        1,
			SentimentTarget: SentimentOnText,
		},
		{
			Name:            "Baron Capital",
			Folder:          "baron_reports",
			ListingURL:      "https://www.baroncapitalgroup.com/insights-webcasts?menu=Institutions#Reports",
			BaseURL:         "https://www.baroncapitalgroup.com",
			Strategy:        StrategyRendered,
			Match:           LinkMatch{HrefContains: ".pdf"},
			SentimentTarget: SentimentOnText,
		},
		{
			Name:            "Goldman Sachs",
			Folder:          "goldman_reports",
			ListingURL:      "https://www.goldmansachs.com/investor-relations/financials/",
			BaseURL:         "https://www.goldmansachs.com",
			Strategy:        StrategyRendered,
			Match:           LinkMatch{HrefContains: ".pdf"},
			SentimentTarget: SentimentOnText,
		},
		generic("First Community", "first_community_reports", "https://firstcommunitysc.q4ir.com/news-market-information/analyst-coverage/default.aspx"),
		generic("Chesapeake Financial", "chesapeake_reports", "https://chesapeakefinancialshares.com/analyst-reports/default.aspx"),
		generic("Oaktree Capital", "oaktree_reports", "https://www.oaktreecapital.com/insights"),
		generic("Barclays Equity Strategy", "barclays_reports", "https://live.barcap.com/BC/barcaplive?menuCode=AR_EQ_PUB_ST"),
		generic("Evercore ISI", "evercore_reports", "https://evercoreisi.mediasterling.com/fundamental/sector/158"),
		generic("Morningstar Research", "morningstar_reports", "https://my.pitchbook.com/research-center/1501933"),
		generic("Hoisington", "hoisington_reports", "https://hoisington.com/economic_overview.html"),
		generic("Robotti Advisors", "robotti_reports", "https://advisors.robotti.com/separately-managed-accounts/"),
		generic("Behind the Numbers", "behind_numbers_reports", "https://btnresearch.com/btn-archive"),
		generic("JPMorgan Guide to the Markets", "jpmorgan_reports", "https://am.jpmorgan.com/us/en/asset-management/adv/insights/market-insights/guide-to-the-markets"),
	}
}

// Catalog is the read-only lookup of configured sources keyed by display name
type Catalog struct {
	sources []Source
	byName  map[string]Source
}

// NewCatalog builds a catalog preserving the given order. Later duplicates win.
func NewCatalog(sources []Source) *Catalog {
	c := &Catalog{
		byName: make(map[string]Source, len(sources)),
	}
	for _, s := range sources {
		if _, exists := c.byName[s.Name]; !exists {
			c.sources = append(c.sources, s)
		} else {
			for i := range c.sources {
				if c.sources[i].Name == s.Name {
					c.sources[i] = s
				}
			}
		}
		c.byName[s.Name] = s
	}
	return c
}

// Lookup finds a source by display name
func (c *Catalog) Lookup(name string) (Source, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// All returns the sources in configuration order
func (c *Catalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Names returns the display names in configuration order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name
	}
	return names
}

// SortedNames returns the display names alphabetically
func (c *Catalog) SortedNames() []string {
	names := c.Names()
	sort.Strings(names)
	return names
}
