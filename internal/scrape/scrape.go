// Package scrape backfills article metadata by fetching the article page
// and reading its Open Graph tags. Relay feeds often ship items without an
// image or with a gutted description; the backfiller repairs what it can
// and leaves the rest untouched.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/feedparse"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxWorkers       = 10
)

// Backfiller fetches article pages and repairs missing metadata.
type Backfiller struct {
	client httpclient.Client
	log    logger.Logger
}

// New creates a Backfiller with the given HTTP client and logger.
func New(client httpclient.Client, log logger.Logger) *Backfiller {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Backfiller{client: client, log: log}
}

// Backfill returns a copy of articles with missing images and descriptions
// filled from page metadata where possible. Per-article failures keep the
// original record; partial results are returned on cancellation.
func (b *Backfiller) Backfill(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	if len(articles) == 0 || b.client == nil {
		return out
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for range min(len(articles), maxWorkers) {
		wg.Add(1)
		go b.worker(ctx, articles, jobCh, out, &wg)
	}

	for idx, art := range articles {
		if ctx.Err() != nil {
			break
		}
		if art.ImageURL != "" && art.Description != "" {
			continue
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()
	return out
}

func (b *Backfiller) worker(ctx context.Context, articles []domain.Article, jobCh <-chan int, out []domain.Article, wg *sync.WaitGroup) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}

		art := articles[idx]
		if repaired, err := b.fetchAndRepair(ctx, art); err != nil {
			b.log.DebugObj("metadata backfill failed", "backfill_failed", map[string]any{
				"url":   art.URL,
				"error": err.Error(),
			})
		} else {
			out[idx] = repaired
		}
	}
}

// fetchAndRepair fetches the article page and merges page metadata into the
// record.
func (b *Backfiller) fetchAndRepair(ctx context.Context, art domain.Article) (domain.Article, error) {
	resp, err := b.client.Get(ctx, art.URL, nil)
	if err != nil {
		return art, fmt.Errorf("fetch page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return art, fmt.Errorf("page returned status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return art, err
	}

	repaired := art
	if repaired.Description == "" && meta.Description != "" {
		repaired.Description = feedparse.CleanDescription(meta.Description)
	}
	if repaired.ImageURL == "" && meta.ImageURL != "" {
		repaired.ImageURL = resolveURL(meta.ImageURL, art.URL)
	}
	return repaired, nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Description string
	ImageURL    string
}

// parseMeta extracts Open Graph metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm := pageMeta{ImageURL: extract(`meta[property="og:image"]`)}
	pm.Description = extract(`meta[property="og:description"]`)
	if pm.Description == "" {
		pm.Description = extract(`meta[name="description"]`)
	}
	return pm, nil
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(parsed).String()
}
