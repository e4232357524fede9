/*
Package search retrieves games from one user's library.

Searcher ranks the user's games by cosine similarity to a query embedding
and caches only the ordered id list. Cached ids are always rehydrated
through a lookup scoped to the requesting user, so a shared cache can never
leak another user's games. A cached list still serves, in cached order,
when the query cannot be embedded. KeywordIndex is a bleve BM25 index over library
text used when embeddings are unavailable.
*/
package search

import "github.com/khanglvm/game-curator/internal/library"

// Query describes a similarity search.
type Query struct {
	Text          string
	UserID        string
	Limit         int
	MinSimilarity float64
	// Statuses restricts the search to a sub-library; empty means all.
	Statuses []library.Status
}

// Result is one ranked game.
type Result struct {
	EntityID   string  `json:"entityId"`
	Similarity float64 `json:"similarity"`
	Label      string  `json:"label"`
}

// Insufficient reports whether fewer than min results were found.
// The fallback policy belongs to the caller.
func Insufficient(results []Result, min int) bool {
	return len(results) < min
}

// IDs returns the entity ids of results in order.
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.EntityID
	}
	return ids
}

func statusStrings(statuses []library.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
