package aggregator

import (
	"strings"
	"unicode"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

// NormalizeTitle lower-cases a title and strips everything that is not a
// letter or digit. Articles from different sources that collide after
// normalization are treated as duplicates; merging short generic headlines
// is an accepted trade-off.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Dedup removes articles whose normalized title was already seen in the
// batch. First occurrence wins; order is otherwise preserved.
func Dedup(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		key := NormalizeTitle(article.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, article)
	}
	return out
}
