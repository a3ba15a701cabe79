package feedparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Example News</title>
    <item>
      <title>Storm hits the coast</title>
      <link>https://example.com/news/storm</link>
      <pubDate>Mon, 17 Aug 2026 09:30:00 GMT</pubDate>
      <description><![CDATA[<p>A <b>severe</b> storm reached the coast.</p><img src="https://example.com/img/storm.jpg"/>]]></description>
    </item>
    <item>
      <link>https://example.com/news/untitled</link>
      <description>Short note.</description>
    </item>
    <item>
      <title>Markets rally</title>
      <link>https://example.com/news/markets</link>
      <pubDate>Mon, 17 Aug 2026 10:00:00 GMT</pubDate>
      <description>Stocks climbed today.</description>
      <media:content url="https://example.com/img/markets.jpg" medium="image"/>
    </item>
  </channel>
</rss>`

func TestParseBasicFeed(t *testing.T) {
	t.Parallel()

	p := New()
	articles := p.Parse(sampleFeed, "https://feeds.example.com/rss", domain.CategoryTop)
	require.Len(t, articles, 3)

	storm := articles[0]
	assert.Equal(t, "Storm hits the coast", storm.Title)
	assert.Equal(t, "https://example.com/news/storm", storm.URL)
	assert.Equal(t, domain.CategoryTop, storm.Category)
	assert.Equal(t, "EXAMPLE", storm.Source)
	assert.True(t, strings.HasPrefix(storm.ID, "news-"))
	assert.Equal(t, "A severe storm reached the coast.", storm.Description)
	assert.NotEqual(t, "Recently", storm.Time)
}

func TestParseTitlePlaceholder(t *testing.T) {
	t.Parallel()

	p := New()
	articles := p.Parse(sampleFeed, "https://feeds.example.com/rss", domain.CategoryTop)
	require.Len(t, articles, 3)

	assert.Equal(t, "Untitled story", articles[1].Title)
	assert.Equal(t, "Recently", articles[1].Time)
}

func TestParseImageSources(t *testing.T) {
	t.Parallel()

	p := New()
	articles := p.Parse(sampleFeed, "https://feeds.example.com/rss", domain.CategoryTop)
	require.Len(t, articles, 3)

	// Embedded <img> in the description markup.
	assert.Equal(t, "https://example.com/img/storm.jpg", articles[0].ImageURL)
	// Structured media field.
	assert.Equal(t, "https://example.com/img/markets.jpg", articles[2].ImageURL)
}

func TestParseGarbageYieldsEmpty(t *testing.T) {
	t.Parallel()

	p := New()
	assert.Empty(t, p.Parse("this is not xml at all {", "https://feeds.example.com/rss", domain.CategoryTop))
	assert.Empty(t, p.Parse("", "https://feeds.example.com/rss", domain.CategoryTop))
}

func TestParseEmptyChannelYieldsEmpty(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`
	p := New()
	assert.Empty(t, p.Parse(doc, "https://feeds.example.com/rss", domain.CategoryTop))
}

func TestCleanDescriptionTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 100)
	out := CleanDescription(long)

	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Len(t, []rune(out), 203)
}

func TestCleanDescriptionStripsMarkup(t *testing.T) {
	t.Parallel()

	out := CleanDescription(`<div><a href="https://x.example">Read</a> &amp; enjoy<br/>  the   story</div>`)
	assert.Equal(t, "Read & enjoy the story", out)
}

func TestSourceName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://www.bbc.co.uk/news/rss.xml", "BBC"},
		{"https://feeds.bbci.co.uk/news/rss.xml", "BBCI"},
		{"https://rss.cnn.com/rss/edition.rss", "CNN"},
		{"https://example.com/feed", "EXAMPLE"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SourceName(tc.in), "input %q", tc.in)
	}
}
