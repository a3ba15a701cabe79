// Package feedparse turns raw RSS/Atom markup into normalized Article
// records. A document that fails to parse, or parses to zero items, yields
// an empty batch rather than an error: callers treat "failed" and "empty"
// identically.
package feedparse

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/pkg/newsid"
)

const (
	maxDescriptionRunes = 200

	placeholderTitle = "Untitled story"
	placeholderTime  = "Recently"
)

var stripPolicy = bluemonday.StrictPolicy()

// Parser converts feed markup into Article batches for one category.
type Parser struct {
	parser *gofeed.Parser
}

// New returns a feed parser.
func New() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// Parse extracts articles from raw feed markup. The feed URL is used to
// derive the source name; category is stamped onto every record.
func (p *Parser) Parse(raw string, feedURL string, category domain.Category) []domain.Article {
	feed, err := p.parser.ParseString(raw)
	if err != nil || feed == nil || len(feed.Items) == 0 {
		return []domain.Article{}
	}

	source := SourceName(feedURL)
	articles := make([]domain.Article, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = placeholderTitle
		}

		articles = append(articles, domain.Article{
			ID:          newsid.ForURL(link),
			Title:       title,
			Source:      source,
			Time:        displayTime(item),
			Description: CleanDescription(item.Description),
			Category:    category,
			URL:         link,
			ImageURL:    imageFor(item),
		})
	}

	return articles
}

// CleanDescription strips embedded markup from a feed description and
// truncates it to a display-friendly length.
func CleanDescription(raw string) string {
	text := stripPolicy.Sanitize(raw)
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxDescriptionRunes {
		return string(runes[:maxDescriptionRunes]) + "..."
	}
	return text
}

// SourceName derives a display source from the feed URL host: common feed
// prefixes stripped, upper-cased. Unparsable URLs fall back to the raw input.
func SourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return strings.ToUpper(strings.TrimSpace(feedURL))
	}

	host := u.Host
	for _, prefix := range []string{"www.", "feeds.", "rss."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return strings.ToUpper(host)
}

// displayTime renders the item's publish date as a short localized clock
// string, or a placeholder when the date is absent or unparsable.
func displayTime(item *gofeed.Item) string {
	ts := item.PublishedParsed
	if ts == nil {
		ts = item.UpdatedParsed
	}
	if ts == nil {
		return placeholderTime
	}
	return ts.Local().Format("3:04 PM")
}

// imageFor resolves the article image: structured media fields first, then a
// best-effort <img> lookup inside the raw description markup.
func imageFor(item *gofeed.Item) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}

	return imageFromMarkup(item.Description)
}

// imageFromMarkup pulls the first <img src> out of embedded description HTML.
func imageFromMarkup(raw string) string {
	if !strings.Contains(raw, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}
