// Package aggregator owns the category fetch pipeline: tiered cache read,
// concurrent relay fan-out per feed, title dedup, and the best-effort cache
// writes. Stale cache data is served only when the live fetch comes back
// empty.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/publishers"
)

// FreshnessWindow is the maximum age of a cache entry before a refetch.
const FreshnessWindow = 5 * time.Minute

const remoteWriteTimeout = 15 * time.Second

// FeedFetcher retrieves one feed's articles; exhaustion yields an empty
// batch, never an error.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string, category domain.Category) []domain.Article
}

// LocalStore is the persisted bottom cache tier.
type LocalStore interface {
	SaveEntry(category domain.Category, entry domain.CacheEntry) error
	Entry(category domain.Category) (domain.CacheEntry, bool, error)
}

// MetadataBackfiller repairs missing article metadata after a live fetch.
type MetadataBackfiller interface {
	Backfill(ctx context.Context, articles []domain.Article) []domain.Article
}

// RemoteFeeds is the shared middle cache tier.
type RemoteFeeds interface {
	Enabled() bool
	FeedCache(ctx context.Context, category domain.Category) (domain.CacheEntry, bool, error)
	UpsertFeedCache(ctx context.Context, category domain.Category, articles []domain.Article, updatedAt time.Time) error
}

// Aggregator serves article batches per category.
type Aggregator struct {
	mu     sync.Mutex
	memory map[domain.Category]domain.CacheEntry

	feeds    map[domain.Category][]string
	ring     FeedFetcher
	store    LocalStore
	remote   RemoteFeeds
	pubs     []publishers.Publisher
	backfill MetadataBackfiller
	window   time.Duration
	now      func() time.Time
	log      logger.Logger
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithFreshnessWindow overrides the cache freshness window.
func WithFreshnessWindow(window time.Duration) Option {
	return func(a *Aggregator) {
		if window > 0 {
			a.window = window
		}
	}
}

// WithPublishers attaches refresh-event sinks.
func WithPublishers(pubs []publishers.Publisher) Option {
	return func(a *Aggregator) { a.pubs = pubs }
}

// WithBackfiller enables page-metadata backfill on freshly fetched batches.
func WithBackfiller(b MetadataBackfiller) Option {
	return func(a *Aggregator) { a.backfill = b }
}

// New wires the aggregator. store and remote may be nil; the corresponding
// tiers then behave as permanent misses.
func New(feeds map[domain.Category][]string, ring FeedFetcher, store LocalStore, remote RemoteFeeds, log logger.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = logger.NopLogger{}
	}

	a := &Aggregator{
		memory: make(map[domain.Category]domain.CacheEntry),
		feeds:  feeds,
		ring:   ring,
		store:  store,
		remote: remote,
		window: FreshnessWindow,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Articles returns the freshest batch for a category: a fresh cache tier if
// one exists, otherwise a live fetch, otherwise stale cache data, otherwise
// an empty batch. It never returns an error; every failure path degrades.
func (a *Aggregator) Articles(ctx context.Context, category domain.Category) []domain.Article {
	fresh, stale := a.probeTiers(ctx, category)
	if fresh != nil {
		return fresh
	}

	batch := a.liveFetch(ctx, category)
	if len(batch) > 0 {
		a.persist(category, batch)
		return batch
	}

	if stale != nil {
		a.log.InfoObj("live fetch failed, serving stale cache", "stale_fallback", map[string]any{
			"category": category,
			"articles": len(stale),
		})
		return stale
	}
	return []domain.Article{}
}

// Categories lists the configured categories.
func (a *Aggregator) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(a.feeds))
	for category := range a.feeds {
		out = append(out, category)
	}
	return out
}

// probeTiers consults memory, remote, then local store. Each tier is
// independently checked against the freshness window; the freshest stale
// hit is kept as a fallback. Tier errors are logged and treated as misses.
func (a *Aggregator) probeTiers(ctx context.Context, category domain.Category) (fresh, stale []domain.Article) {
	now := a.now()

	var staleEntry *domain.CacheEntry
	consider := func(entry domain.CacheEntry) []domain.Article {
		if len(entry.Articles) == 0 {
			return nil
		}
		if entry.FreshAt(now, a.window) {
			return entry.Articles
		}
		if staleEntry == nil || entry.Timestamp > staleEntry.Timestamp {
			e := entry
			staleEntry = &e
		}
		return nil
	}

	a.mu.Lock()
	memEntry, memOK := a.memory[category]
	a.mu.Unlock()
	if memOK {
		if hit := consider(memEntry); hit != nil {
			return hit, nil
		}
	}

	if a.remote != nil && a.remote.Enabled() {
		entry, ok, err := a.remote.FeedCache(ctx, category)
		if err != nil {
			a.log.WarnObj("remote cache read failed", "remote_read_failed", map[string]any{
				"category": category,
				"error":    err.Error(),
			})
		} else if ok {
			if hit := consider(entry); hit != nil {
				return hit, nil
			}
		}
	}

	if a.store != nil {
		entry, ok, err := a.store.Entry(category)
		if err != nil {
			a.log.WarnObj("local cache read failed", "local_read_failed", map[string]any{
				"category": category,
				"error":    err.Error(),
			})
		} else if ok {
			if hit := consider(entry); hit != nil {
				return hit, nil
			}
		}
	}

	if staleEntry != nil {
		return nil, staleEntry.Articles
	}
	return nil, nil
}

// liveFetch fans out over the category's feeds concurrently and dedups the
// flattened result. A panic in one feed's fetch must not lose the others.
func (a *Aggregator) liveFetch(ctx context.Context, category domain.Category) []domain.Article {
	urls := a.feeds[category]
	if len(urls) == 0 {
		return nil
	}

	batches := make([][]domain.Article, len(urls))
	var wg sync.WaitGroup

	for i, feedURL := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.log.ErrorObj("feed fetch panicked", "feed_fetch_panic", map[string]any{
						"category": category,
						"feed_url": u,
						"panic":    r,
					})
				}
			}()
			batches[idx] = a.ring.FetchFeed(ctx, u, category)
		}(i, feedURL)
	}
	wg.Wait()

	var flat []domain.Article
	for _, batch := range batches {
		flat = append(flat, batch...)
	}

	deduped := Dedup(flat)
	if a.backfill != nil && len(deduped) > 0 {
		deduped = a.backfill.Backfill(ctx, deduped)
	}
	return deduped
}

// persist writes the batch synchronously to memory and the local store,
// then kicks off the fire-and-forget remote upsert and publisher fan-out.
func (a *Aggregator) persist(category domain.Category, batch []domain.Article) {
	now := a.now()
	entry := domain.CacheEntry{Timestamp: now.UnixMilli(), Articles: batch}

	a.mu.Lock()
	a.memory[category] = entry
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.SaveEntry(category, entry); err != nil {
			a.log.WarnObj("local cache write failed", "local_write_failed", map[string]any{
				"category": category,
				"error":    err.Error(),
			})
		}
	}

	go a.propagate(category, batch, now)
}

// propagate performs the remote upsert and publisher dispatch. Runs
// detached from the caller path; nothing here can delay or fail the
// user-visible response.
func (a *Aggregator) propagate(category domain.Category, batch []domain.Article, updatedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()

	if a.remote != nil && a.remote.Enabled() {
		if err := a.remote.UpsertFeedCache(ctx, category, batch, updatedAt); err != nil {
			a.log.WarnObj("remote cache write failed", "remote_write_failed", map[string]any{
				"category": category,
				"error":    err.Error(),
			})
		}
	}

	if len(a.pubs) == 0 {
		return
	}

	evt := publishers.RefreshEvent{
		Category:  string(category),
		Count:     len(batch),
		UpdatedAt: updatedAt.UTC(),
		Articles:  batch,
	}
	for _, pub := range a.pubs {
		if err := pub.Publish(ctx, evt); err != nil {
			a.log.WarnObj("refresh event publish failed", "publish_failed", map[string]any{
				"category":  category,
				"publisher": pub.ID(),
				"error":     err.Error(),
			})
		}
	}
}
