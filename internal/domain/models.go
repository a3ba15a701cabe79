package domain

import "time"

// Domain contains core models shared across the harvester.

// Category identifies a news section served by the aggregator.
type Category string

const (
	CategoryTop           Category = "top"
	CategoryNational      Category = "national"
	CategoryInternational Category = "international"
	CategoryBusiness      Category = "business"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
)

// Article is a normalized news item. Instances are immutable once built:
// produced by the parser, cached, and served as-is.
type Article struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Source        string   `json:"source"`
	Time          string   `json:"time"`
	Description   string   `json:"description"`
	DescriptionHi string   `json:"description_hi,omitempty"`
	Category      Category `json:"category"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// CacheEntry is the persisted batch for one category. An entry is usable
// while now - Timestamp stays below the freshness window; it is superseded
// wholesale by the next successful fetch.
type CacheEntry struct {
	Timestamp int64     `json:"timestamp"`
	Articles  []Article `json:"articles"`
}

// FreshAt reports whether the entry is still usable at the given instant.
func (e CacheEntry) FreshAt(now time.Time, window time.Duration) bool {
	age := now.UnixMilli() - e.Timestamp
	return age >= 0 && age < window.Milliseconds()
}

// EnhancedArticle is the generated long-form rendition of an article:
// an expanded body, a short summary, and translated variants of each.
// Entries are write-once and never expire.
type EnhancedArticle struct {
	FullText  string            `json:"full_text"`
	Summary   string            `json:"summary"`
	FullTextT map[string]string `json:"full_text_translations"`
	SummaryT  map[string]string `json:"summary_translations"`
	Fallback  bool              `json:"fallback,omitempty"`
}

// TranslationLanguages are the variants requested from the generative
// service, keyed by ISO 639-1 code.
var TranslationLanguages = map[string]string{
	"hi": "Hindi",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
}
