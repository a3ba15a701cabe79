package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Breaking: Storm Hits!", "breakingstormhits"},
		{"breaking storm hits", "breakingstormhits"},
		{"  UPPER case 123 ", "uppercase123"},
		{"---", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTitle(tc.in), "input %q", tc.in)
	}
}

func TestDedupFirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	batch := []domain.Article{
		{ID: "news-1", Title: "Breaking: Storm Hits!", URL: "https://a.example/1"},
		{ID: "news-2", Title: "Markets rally", URL: "https://a.example/2"},
		{ID: "news-3", Title: "breaking storm hits", URL: "https://b.example/3"},
	}

	out := Dedup(batch)

	assert.Len(t, out, 2)
	assert.Equal(t, "news-1", out[0].ID)
	assert.Equal(t, "news-2", out[1].ID)
}

func TestDedupPreservesOrder(t *testing.T) {
	t.Parallel()

	batch := []domain.Article{
		{ID: "a", Title: "one"},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three"},
	}

	out := Dedup(batch)

	assert.Equal(t, batch, out)
}

func TestDedupEmptyBatch(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Dedup(nil))
}
