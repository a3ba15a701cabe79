// Package relay fetches feed URLs through public CORS-relay endpoints.
// Relays are third-party services with no SLA; every response is treated as
// untrusted. A fixed ordered list is walked per feed, each attempt bounded
// by its own timeout, and the first relay whose payload parses into at
// least one item wins.
package relay

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/internal/logger"
	"github.com/newspulse-hq/newspulse/pkg/feedparse"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

// DefaultTimeout bounds a single relay attempt.
const DefaultTimeout = 6 * time.Second

// Relay is one proxy endpoint strategy. Template receives the target feed
// URL, query-escaped unless RawTarget is set.
type Relay struct {
	ID        string
	Template  string
	RawTarget bool
}

// BuildURL renders the proxied request URL for the target feed.
func (r Relay) BuildURL(target string) string {
	if r.RawTarget {
		return fmt.Sprintf(r.Template, target)
	}
	return fmt.Sprintf(r.Template, url.QueryEscape(target))
}

// DefaultRelays returns the fixed relay order. The order matters: earlier
// entries are historically more reliable and get first shot.
func DefaultRelays() []Relay {
	return []Relay{
		{ID: "allorigins", Template: "https://api.allorigins.win/raw?url=%s"},
		{ID: "corsproxy", Template: "https://corsproxy.io/?%s"},
		{ID: "codetabs", Template: "https://api.codetabs.com/v1/proxy?quest=%s"},
		{ID: "thingproxy", Template: "https://thingproxy.freeboard.io/fetch/%s", RawTarget: true},
	}
}

// Ring walks an ordered relay list for each feed fetch.
type Ring struct {
	relays  []Relay
	client  httpclient.Client
	parser  *feedparse.Parser
	timeout time.Duration
	log     logger.Logger
}

// Option customizes a Ring.
type Option func(*Ring)

// WithRelays overrides the relay order.
func WithRelays(relays []Relay) Option {
	return func(g *Ring) {
		if len(relays) > 0 {
			g.relays = relays
		}
	}
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Ring) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewRing builds a Ring over the default relays.
func NewRing(client httpclient.Client, parser *feedparse.Parser, log logger.Logger, opts ...Option) *Ring {
	if client == nil {
		client = httpclient.NewRestyClient(DefaultTimeout)
	}
	if parser == nil {
		parser = feedparse.New()
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	g := &Ring{
		relays:  DefaultRelays(),
		client:  client,
		parser:  parser,
		timeout: DefaultTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchFeed tries each relay in order until one yields a parsable batch.
// Exhausting every relay returns an empty slice, not an error: the caller
// must treat "failed" and "empty" identically.
func (g *Ring) FetchFeed(ctx context.Context, feedURL string, category domain.Category) []domain.Article {
	for _, relay := range g.relays {
		articles, err := g.attempt(ctx, relay, feedURL, category)
		if err != nil {
			g.log.DebugObj("relay attempt failed", "relay_attempt_failed", map[string]any{
				"relay":    relay.ID,
				"feed_url": feedURL,
				"error":    err.Error(),
			})
			continue
		}
		if len(articles) > 0 {
			return articles
		}

		g.log.DebugObj("relay returned unparsable or empty payload", "relay_empty_payload", map[string]any{
			"relay":    relay.ID,
			"feed_url": feedURL,
		})
	}

	g.log.WarnObj("all relays exhausted for feed", "relay_exhausted", map[string]any{
		"feed_url": feedURL,
		"relays":   len(g.relays),
	})
	return []domain.Article{}
}

// attempt issues one bounded request through a single relay.
func (g *Ring) attempt(ctx context.Context, relay Relay, feedURL string, category domain.Category) ([]domain.Article, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Get(attemptCtx, relay.BuildURL(feedURL), nil)
	if err != nil {
		return nil, fmt.Errorf("relay %s fetch: %w", relay.ID, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, fmt.Errorf("relay %s returned status %d body: %s", relay.ID, resp.StatusCode(), responseSnippet(resp.Body()))
	}

	return g.parser.Parse(string(resp.Body()), feedURL, category), nil
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
