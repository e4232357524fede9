/*
Package sampling picks the subset of a library that fits into a prompt.

Selection runs in two stages. When the caller has a theme, the library is
searched semantically for it. When there is no theme, or the search finds
too few games, a deterministic quota sample is taken instead. Quota
sampling uses no randomness so identical libraries always produce identical
prompts.
*/
package sampling

import "github.com/khanglvm/game-curator/internal/library"

// Quota shares in percent of the limit. Each share is floored.
const (
	playingShare   = 20
	highRatedShare = 20
	diverseShare   = 40
	backlogShare   = 20

	highRating = 8
)

// QuotaSample selects at most limit games: playing first, then highly rated,
// then one game per genre round-robin, then backlog. Open slots are filled
// from the remaining games in input order.
func QuotaSample(games []library.GameSummary, limit int) []library.GameSummary {
	if limit <= 0 || len(games) == 0 {
		return []library.GameSummary{}
	}

	q := &quota{
		games:    games,
		selected: make([]bool, len(games)),
		out:      make([]library.GameSummary, 0, min(limit, len(games))),
	}

	q.take(limit*playingShare/100, func(g library.GameSummary) bool {
		return g.Status == library.StatusPlaying
	})
	q.take(limit*highRatedShare/100, func(g library.GameSummary) bool {
		return g.HasRatingAtLeast(highRating)
	})
	q.diverse(limit * diverseShare / 100)
	q.take(limit*backlogShare/100, func(g library.GameSummary) bool {
		return g.Status == library.StatusBacklog
	})
	q.take(limit-len(q.out), func(library.GameSummary) bool { return true })

	return q.out
}

type quota struct {
	games    []library.GameSummary
	selected []bool
	out      []library.GameSummary
}

func (q *quota) pick(i int) {
	q.selected[i] = true
	q.out = append(q.out, q.games[i])
}

// take selects up to n unselected games matching keep, in input order.
func (q *quota) take(n int, keep func(library.GameSummary) bool) {
	for i := 0; i < len(q.games) && n > 0; i++ {
		if q.selected[i] || !keep(q.games[i]) {
			continue
		}
		q.pick(i)
		n--
	}
}

// diverse cycles genre buckets in first-seen order, taking one unselected
// game per visited bucket until n games are taken or every bucket is empty.
func (q *quota) diverse(n int) {
	if n <= 0 {
		return
	}

	var order []string
	buckets := map[string][]int{}
	for i, g := range q.games {
		if q.selected[i] {
			continue
		}
		for _, genre := range g.Genres {
			if _, ok := buckets[genre]; !ok {
				order = append(order, genre)
			}
			buckets[genre] = append(buckets[genre], i)
		}
	}

	cursor := make(map[string]int, len(order))
	for n > 0 {
		progressed := false
		for _, genre := range order {
			if n == 0 {
				break
			}
			idx := buckets[genre]
			pos := cursor[genre]
			for pos < len(idx) && q.selected[idx[pos]] {
				pos++
			}
			cursor[genre] = pos
			if pos == len(idx) {
				continue
			}
			q.pick(idx[pos])
			n--
			progressed = true
		}
		if !progressed {
			return
		}
	}
}
