package dashboard

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"adspend/internal/core"
)

// DefaultSuggestLimit caps the search-box suggestions.
const DefaultSuggestLimit = 8

// Suggest returns up to limit campaign names that fuzzily match term, best
// match first. An empty term yields no suggestions.
func (c *Controller) Suggest(term string, limit int) []string {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	names := core.Campaigns(c.Rows())
	matches := fuzzy.Find(term, names)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
