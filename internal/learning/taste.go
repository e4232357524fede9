package learning

import (
	"sort"

	"github.com/khanglvm/game-curator/internal/storage"
	"github.com/khanglvm/game-curator/internal/vector"
)

// Candidate is a game with its embedding.
type Candidate struct {
	ID     string
	Name   string
	Vector []float32
}

// TasteMatch is a candidate scored against the user's preferences.
type TasteMatch struct {
	ID    string
	Name  string
	Score float64
}

// TasteScore is the confidence-weighted mean cosine similarity between v and
// each preference vector. Preferences with zero confidence are ignored.
func TasteScore(prefs []storage.Preference, v []float32) float64 {
	weighted, total := 0.0, 0.0
	for _, p := range prefs {
		if p.Confidence <= 0 {
			continue
		}
		weighted += p.Confidence * vector.Cosine(p.Vector, v)
		total += p.Confidence
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// RankByTaste orders candidates by TasteScore, best first. Ties keep the
// candidates' input order.
func RankByTaste(prefs []storage.Preference, candidates []Candidate) []TasteMatch {
	matches := make([]TasteMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, TasteMatch{
			ID:    c.ID,
			Name:  c.Name,
			Score: TasteScore(prefs, c.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
