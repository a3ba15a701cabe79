package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse-hq/newspulse/internal/domain"
	"github.com/newspulse-hq/newspulse/pkg/feedparse"
	"github.com/newspulse-hq/newspulse/pkg/httpclient"
)

const miniFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>One story</title><link>https://example.com/1</link><description>d</description></item>
</channel></rss>`

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

// scriptedClient answers each GET in order from its script.
type scriptedClient struct {
	script []func() (httpclient.Response, error)
	calls  []string
}

func (c *scriptedClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.calls = append(c.calls, url)
	idx := len(c.calls) - 1
	if idx >= len(c.script) {
		return nil, errors.New("unexpected call")
	}
	return c.script[idx]()
}

func (c *scriptedClient) Post(context.Context, string, map[string]string, any) (httpclient.Response, error) {
	return nil, errors.New("unexpected post")
}

func ok(body string) func() (httpclient.Response, error) {
	return func() (httpclient.Response, error) {
		return fakeResponse{status: 200, body: []byte(body)}, nil
	}
}

func status(code int) func() (httpclient.Response, error) {
	return func() (httpclient.Response, error) {
		return fakeResponse{status: code, body: []byte("err")}, nil
	}
}

func fail(msg string) func() (httpclient.Response, error) {
	return func() (httpclient.Response, error) {
		return nil, errors.New(msg)
	}
}

func TestFetchFeedFirstRelayWins(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []func() (httpclient.Response, error){ok(miniFeed)}}
	ring := NewRing(client, feedparse.New(), nil)

	articles := ring.FetchFeed(context.Background(), "https://example.com/rss", domain.CategoryTop)

	require.Len(t, articles, 1)
	assert.Equal(t, "One story", articles[0].Title)
	assert.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0], "allorigins")
}

func TestFetchFeedAdvancesOnFailures(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []func() (httpclient.Response, error){
		status(502),
		fail("timeout"),
		ok("not a feed"),
		ok(miniFeed),
	}}
	ring := NewRing(client, feedparse.New(), nil)

	articles := ring.FetchFeed(context.Background(), "https://example.com/rss", domain.CategoryTop)

	require.Len(t, articles, 1)
	assert.Len(t, client.calls, 4)
}

func TestFetchFeedExhaustionYieldsEmpty(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []func() (httpclient.Response, error){
		status(500), status(500), status(500), status(500),
	}}
	ring := NewRing(client, feedparse.New(), nil)

	articles := ring.FetchFeed(context.Background(), "https://example.com/rss", domain.CategoryTop)

	assert.NotNil(t, articles)
	assert.Empty(t, articles)
	assert.Len(t, client.calls, 4)
}

func TestFetchFeedRelayOrderFixed(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []func() (httpclient.Response, error){
		status(500), status(500), status(500), status(500),
	}}
	ring := NewRing(client, feedparse.New(), nil)

	ring.FetchFeed(context.Background(), "https://example.com/rss", domain.CategoryTop)

	require.Len(t, client.calls, 4)
	assert.Contains(t, client.calls[0], "api.allorigins.win")
	assert.Contains(t, client.calls[1], "corsproxy.io")
	assert.Contains(t, client.calls[2], "api.codetabs.com")
	assert.Contains(t, client.calls[3], "thingproxy.freeboard.io")
}

func TestBuildURLEscaping(t *testing.T) {
	t.Parallel()

	relays := DefaultRelays()

	escaped := relays[0].BuildURL("https://example.com/rss?a=b")
	assert.NotContains(t, strings.TrimPrefix(escaped, "https://api.allorigins.win/raw?url="), "?")

	raw := relays[3].BuildURL("https://example.com/rss?a=b")
	assert.True(t, strings.HasSuffix(raw, "https://example.com/rss?a=b"))
}

func TestWithRelaysAndTimeoutOptions(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{script: []func() (httpclient.Response, error){ok(miniFeed)}}
	custom := []Relay{{ID: "one", Template: "https://relay.test/%s"}}
	ring := NewRing(client, feedparse.New(), nil, WithRelays(custom), WithTimeout(DefaultTimeout))

	articles := ring.FetchFeed(context.Background(), "https://example.com/rss", domain.CategoryTop)

	require.Len(t, articles, 1)
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0], "relay.test")
}
