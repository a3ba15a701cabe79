// Package remote talks to the hosted PostgREST tables that back the shared
// cache tier. Reads are equality filters on the key column; writes are
// upsert-on-conflict via the merge-duplicates preference. The subsystem
// never deletes rows.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
	"github.com/newspulse-hq/newspulse/pkg/newsid"
)

const (
	tableFeedCache = "rss_feed_cache"
	tableArticles  = "ai_articles_cache"
	tableAudio     = "ai_audio_cache"
	tableGallery   = "gallery_posts"
	tableTelegram  = "telegram_posts"

	defaultTimeout = 10 * time.Second
)

// Client is a thin REST client for the remote cache tables.
type Client struct {
	baseURL string
	apiKey  string
	http    httpclient.Client
	log     logger.Logger
}

// New builds a table client. baseURL is the service root (the `/rest/v1`
// segment is appended here).
func New(baseURL, apiKey string, client httpclient.Client, log logger.Logger) *Client {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    client,
		log:     log,
	}
}

// Enabled reports whether the client has enough configuration to be used.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
}

func (c *Client) upsertHeaders() map[string]string {
	h := c.headers()
	h["Prefer"] = "resolution=merge-duplicates,return=minimal"
	return h
}

func (c *Client) tableURL(table, query string) string {
	u := c.baseURL + "/rest/v1/" + table
	if query != "" {
		u += "?" + query
	}
	return u
}

// selectRows issues a filtered read and decodes the row array into out.
func (c *Client) selectRows(ctx context.Context, table, query string, out any) error {
	resp, err := c.http.Get(ctx, c.tableURL(table, query), c.headers())
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("read %s: status %d", table, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// upsertRow writes a single row with insert-or-update semantics.
func (c *Client) upsertRow(ctx context.Context, table string, row any) error {
	resp, err := c.http.Post(ctx, c.tableURL(table, ""), c.upsertHeaders(), []any{row})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("upsert %s: status %d", table, resp.StatusCode())
	}
	return nil
}

type feedCacheRow struct {
	Category  string           `json:"category"`
	Articles  []domain.Article `json:"articles"`
	UpdatedAt string           `json:"updated_at"`
}

// FeedCache reads the shared batch for a category. The boolean reports
// whether a row exists; freshness is evaluated by the caller.
func (c *Client) FeedCache(ctx context.Context, category domain.Category) (domain.CacheEntry, bool, error) {
	query := "category=eq." + url.QueryEscape(string(category)) + "&select=category,articles,updated_at&limit=1"

	var rows []feedCacheRow
	if err := c.selectRows(ctx, tableFeedCache, query, &rows); err != nil {
		return domain.CacheEntry{}, false, err
	}
	if len(rows) == 0 {
		return domain.CacheEntry{}, false, nil
	}

	entry := domain.CacheEntry{Articles: rows[0].Articles}
	if ts, err := time.Parse(time.RFC3339, rows[0].UpdatedAt); err == nil {
		entry.Timestamp = ts.UnixMilli()
	}
	return entry, true, nil
}

// UpsertFeedCache replaces the shared batch for a category.
func (c *Client) UpsertFeedCache(ctx context.Context, category domain.Category, articles []domain.Article, updatedAt time.Time) error {
	return c.upsertRow(ctx, tableFeedCache, feedCacheRow{
		Category:  string(category),
		Articles:  articles,
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	})
}

type enhancedRow struct {
	ArticleID string                 `json:"article_id"`
	Data      domain.EnhancedArticle `json:"data"`
}

// EnhancedArticle reads the generated content for an article id.
func (c *Client) EnhancedArticle(ctx context.Context, articleID string) (domain.EnhancedArticle, bool, error) {
	query := "article_id=eq." + url.QueryEscape(articleID) + "&select=article_id,data&limit=1"

	var rows []enhancedRow
	if err := c.selectRows(ctx, tableArticles, query, &rows); err != nil {
		return domain.EnhancedArticle{}, false, err
	}
	if len(rows) == 0 {
		return domain.EnhancedArticle{}, false, nil
	}
	return rows[0].Data, true, nil
}

// UpsertEnhancedArticle stores generated content keyed by article id.
func (c *Client) UpsertEnhancedArticle(ctx context.Context, articleID string, data domain.EnhancedArticle) error {
	return c.upsertRow(ctx, tableArticles, enhancedRow{ArticleID: articleID, Data: data})
}

type audioRow struct {
	TextHash  string `json:"text_hash"`
	AudioData string `json:"audio_data"`
}

// AudioClip reads a cached base64 narration keyed by text hash.
func (c *Client) AudioClip(ctx context.Context, textHash string) (string, bool, error) {
	query := "text_hash=eq." + url.QueryEscape(textHash) + "&select=text_hash,audio_data&limit=1"

	var rows []audioRow
	if err := c.selectRows(ctx, tableAudio, query, &rows); err != nil {
		return "", false, err
	}
	if len(rows) == 0 || rows[0].AudioData == "" {
		return "", false, nil
	}
	return rows[0].AudioData, true, nil
}

// UpsertAudioClip stores a base64 narration keyed by text hash.
func (c *Client) UpsertAudioClip(ctx context.Context, textHash, audioData string) error {
	return c.upsertRow(ctx, tableAudio, audioRow{TextHash: textHash, AudioData: audioData})
}

type postRow struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
}

// GalleryPosts reads the gallery table mapped into the Article shape.
func (c *Client) GalleryPosts(ctx context.Context) ([]domain.Article, error) {
	return c.posts(ctx, tableGallery, "Gallery", domain.CategoryEntertainment)
}

// TelegramPosts reads the telegram table mapped into the Article shape.
func (c *Client) TelegramPosts(ctx context.Context) ([]domain.Article, error) {
	return c.posts(ctx, tableTelegram, "Telegram", domain.CategoryTop)
}

func (c *Client) posts(ctx context.Context, table, source string, category domain.Category) ([]domain.Article, error) {
	query := "select=title,description,url,image_url,created_at&order=created_at.desc"

	var rows []postRow
	if err := c.selectRows(ctx, table, query, &rows); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		displayTime := "Recently"
		if ts, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
			displayTime = ts.Local().Format("3:04 PM")
		}

		key := row.URL
		if key == "" {
			key = row.Title
		}

		articles = append(articles, domain.Article{
			ID:          newsid.ForURL(key),
			Title:       row.Title,
			Source:      source,
			Time:        displayTime,
			Description: row.Description,
			Category:    category,
			URL:         row.URL,
			ImageURL:    row.ImageURL,
		})
	}
	return articles, nil
}
