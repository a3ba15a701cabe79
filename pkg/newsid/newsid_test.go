package newsid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForURLDeterministic(t *testing.T) {
	t.Parallel()

	url := "https://example.com/news/storm-hits-coast"
	first := ForURL(url)
	for range 10 {
		assert.Equal(t, first, ForURL(url))
	}
}

func TestForURLShape(t *testing.T) {
	t.Parallel()

	id := ForURL("https://example.com/a")
	assert.True(t, strings.HasPrefix(id, "news-"))

	token := strings.TrimPrefix(id, "news-")
	assert.NotEmpty(t, token)
	for _, r := range token {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z'), "unexpected rune %q", r)
	}
}

func TestForURLDistinguishesInputs(t *testing.T) {
	t.Parallel()

	a := ForURL("https://example.com/a")
	b := ForURL("https://example.com/b")
	assert.NotEqual(t, a, b)
}

func TestForTextPrefix(t *testing.T) {
	t.Parallel()

	id := ForText("a storm hit the coast this morning")
	assert.True(t, strings.HasPrefix(id, "audio-"))
	assert.Equal(t, id, ForText("a storm hit the coast this morning"))
}

func TestFoldHandlesNonASCII(t *testing.T) {
	t.Parallel()

	// Multi-byte input must fold deterministically too.
	id := ForURL("https://example.com/новости/שלום")
	assert.Equal(t, id, ForURL("https://example.com/новости/שלום"))
}

func TestFoldEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "news-0", ForURL(""))
}
