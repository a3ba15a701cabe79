package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <meta property="og:description" content="A severe storm reached the coast overnight."/>
  <meta property="og:image" content="/img/storm.jpg"/>
</head>
<body><p>story</p></body>
</html>`

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

type pageClient struct {
	mu    sync.Mutex
	pages map[string]string
	fails map[string]bool
	calls []string
}

func newPageClient() *pageClient {
	return &pageClient{pages: make(map[string]string), fails: make(map[string]bool)}
}

func (c *pageClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, url)

	if c.fails[url] {
		return nil, errors.New("connection reset")
	}
	page, ok := c.pages[url]
	if !ok {
		return fakeResponse{status: 404, body: []byte("not found")}, nil
	}
	return fakeResponse{status: 200, body: []byte(page)}, nil
}

func (c *pageClient) Post(context.Context, string, map[string]string, any) (httpclient.Response, error) {
	return nil, errors.New("unexpected post")
}

func (c *pageClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestBackfillFillsMissingMetadata(t *testing.T) {
	t.Parallel()

	client := newPageClient()
	client.pages["https://example.com/storm"] = articlePage

	b := New(client, nil)
	out := b.Backfill(context.Background(), []domain.Article{
		{ID: "news-1", Title: "Storm hits coast", URL: "https://example.com/storm"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "A severe storm reached the coast overnight.", out[0].Description)
	assert.Equal(t, "https://example.com/img/storm.jpg", out[0].ImageURL)
}

func TestBackfillSkipsCompleteArticles(t *testing.T) {
	t.Parallel()

	client := newPageClient()
	b := New(client, nil)

	complete := domain.Article{
		ID:          "news-1",
		URL:         "https://example.com/done",
		Description: "Already described",
		ImageURL:    "https://example.com/i.jpg",
	}
	out := b.Backfill(context.Background(), []domain.Article{complete})

	require.Len(t, out, 1)
	assert.Equal(t, complete, out[0])
	assert.Zero(t, client.callCount())
}

func TestBackfillKeepsOriginalOnFailure(t *testing.T) {
	t.Parallel()

	client := newPageClient()
	client.fails["https://example.com/broken"] = true

	original := domain.Article{ID: "news-1", Title: "Broken", URL: "https://example.com/broken"}
	b := New(client, nil)
	out := b.Backfill(context.Background(), []domain.Article{original})

	require.Len(t, out, 1)
	assert.Equal(t, original, out[0])
}

func TestBackfillKeepsOriginalOnNon200(t *testing.T) {
	t.Parallel()

	client := newPageClient() // every URL 404s
	original := domain.Article{ID: "news-1", URL: "https://example.com/missing"}

	b := New(client, nil)
	out := b.Backfill(context.Background(), []domain.Article{original})

	require.Len(t, out, 1)
	assert.Equal(t, original, out[0])
}

func TestBackfillDoesNotOverwriteExistingFields(t *testing.T) {
	t.Parallel()

	client := newPageClient()
	client.pages["https://example.com/storm"] = articlePage

	withDesc := domain.Article{
		ID:          "news-1",
		URL:         "https://example.com/storm",
		Description: "Feed-provided description",
	}
	b := New(client, nil)
	out := b.Backfill(context.Background(), []domain.Article{withDesc})

	require.Len(t, out, 1)
	assert.Equal(t, "Feed-provided description", out[0].Description)
	assert.Equal(t, "https://example.com/img/storm.jpg", out[0].ImageURL)
}

func TestBackfillNilClientPassesThrough(t *testing.T) {
	t.Parallel()

	b := New(nil, nil)
	in := []domain.Article{{ID: "news-1", URL: "https://example.com/x"}}
	out := b.Backfill(context.Background(), in)

	assert.Equal(t, in, out)
}

func TestParseMetaFallsBackToNameDescription(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta name="description" content="Plain meta"/></head></html>`
	meta, err := parseMeta([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Plain meta", meta.Description)
	assert.Empty(t, meta.ImageURL)
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.example.com/i.jpg",
		resolveURL("https://cdn.example.com/i.jpg", "https://example.com/a"))
	assert.Equal(t, "https://example.com/img/i.jpg",
		resolveURL("/img/i.jpg", "https://example.com/news/a"))
	assert.Equal(t, "", resolveURL("", "https://example.com/a"))
}
