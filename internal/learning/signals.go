/*
Package learning derives taste signals from a user's library and keeps the
user's preference vectors fresh.

Each signal groups the games that express one kind of taste (highly rated
genres, long playtime, favorite franchises, favorites, completed games). A
signal is only emitted when its minimum sample size is met. Qualifying
signals are embedded and stored as one preference record per signal type;
signals that stop qualifying keep their last stored record.
*/
package learning

import (
	"sort"

	"github.com/khanglvm/game-curator/internal/library"
)

// SignalType tags a preference record.
type SignalType string

const (
	SignalGenreAffinity   SignalType = "genre_affinity"
	SignalHighPlaytime    SignalType = "high_playtime"
	SignalFranchise       SignalType = "franchise_affinity"
	SignalFavorites       SignalType = "favorites"
	SignalCompletedThemes SignalType = "completed_themes"
)

const (
	// minSampleSize gates every signal.
	minSampleSize = 3

	// highRatingThreshold is the average rating a genre needs to count as liked.
	highRatingThreshold = 8.0

	// highPlaytimeMinutes is 20 hours.
	highPlaytimeMinutes = 1200

	// topN caps how many genres or franchises feed a signal.
	topN = 3

	highPlaytimeWeight      = 0.9
	franchiseNoRatingWeight = 0.7
	favoritesWeight         = 1.0
	completedWeight         = 0.8
)

// Signal is one derived taste signal.
type Signal struct {
	Type SignalType

	// Games are the library games behind the signal, in library order.
	Games []library.Game

	// Weight becomes the preference confidence, in [0, 1].
	Weight float64
}

// SampleSize is the number of games behind the signal.
func (s Signal) SampleSize() int {
	return len(s.Games)
}

// DeriveSignals computes every qualifying signal for a library.
// The result is deterministic for identical input.
func DeriveSignals(entries []library.Entry) []Signal {
	var signals []Signal
	for _, derive := range []func([]library.Entry) (Signal, bool){
		genreAffinity,
		highPlaytime,
		franchiseAffinity,
		favorites,
		completedThemes,
	} {
		if s, ok := derive(entries); ok {
			signals = append(signals, s)
		}
	}
	return signals
}

type groupStats struct {
	key       string
	count     int
	rated     int
	ratingSum int
}

func (g groupStats) avgRating() float64 {
	if g.rated == 0 {
		return 0
	}
	return float64(g.ratingSum) / float64(g.rated)
}

// genreAffinity keeps genres averaging >= 8 over at least three rated games,
// then takes the top three by average rating.
func genreAffinity(entries []library.Entry) (Signal, bool) {
	stats := map[string]*groupStats{}
	var order []string
	for _, e := range entries {
		if e.Rating == nil {
			continue
		}
		for _, genre := range e.Game.Genres {
			gs, ok := stats[genre]
			if !ok {
				gs = &groupStats{key: genre}
				stats[genre] = gs
				order = append(order, genre)
			}
			gs.rated++
			gs.ratingSum += *e.Rating
		}
	}

	var liked []groupStats
	for _, genre := range order {
		gs := stats[genre]
		if gs.rated >= minSampleSize && gs.avgRating() >= highRatingThreshold {
			liked = append(liked, *gs)
		}
	}
	if len(liked) == 0 {
		return Signal{}, false
	}

	sort.SliceStable(liked, func(i, j int) bool {
		if liked[i].avgRating() != liked[j].avgRating() {
			return liked[i].avgRating() > liked[j].avgRating()
		}
		return liked[i].key < liked[j].key
	})
	if len(liked) > topN {
		liked = liked[:topN]
	}

	top := map[string]bool{}
	avgSum := 0.0
	for _, gs := range liked {
		top[gs.key] = true
		avgSum += gs.avgRating()
	}

	games := collect(entries, func(e library.Entry) bool {
		if e.Rating == nil {
			return false
		}
		for _, genre := range e.Game.Genres {
			if top[genre] {
				return true
			}
		}
		return false
	})

	return Signal{
		Type:   SignalGenreAffinity,
		Games:  games,
		Weight: clamp01(avgSum / float64(len(liked)) / 10),
	}, true
}

func highPlaytime(entries []library.Entry) (Signal, bool) {
	games := collect(entries, func(e library.Entry) bool {
		return e.PlaytimeMinutes >= highPlaytimeMinutes
	})
	return gated(SignalHighPlaytime, games, highPlaytimeWeight)
}

// franchiseAffinity keeps series with at least three owned entries and
// takes the top three by entry count.
func franchiseAffinity(entries []library.Entry) (Signal, bool) {
	stats := map[string]*groupStats{}
	var order []string
	for _, e := range entries {
		series := e.Game.SeriesName
		if series == "" {
			continue
		}
		gs, ok := stats[series]
		if !ok {
			gs = &groupStats{key: series}
			stats[series] = gs
			order = append(order, series)
		}
		gs.count++
		if e.Rating != nil {
			gs.rated++
			gs.ratingSum += *e.Rating
		}
	}

	var franchises []groupStats
	for _, series := range order {
		if gs := stats[series]; gs.count >= minSampleSize {
			franchises = append(franchises, *gs)
		}
	}
	if len(franchises) == 0 {
		return Signal{}, false
	}

	sort.SliceStable(franchises, func(i, j int) bool {
		if franchises[i].count != franchises[j].count {
			return franchises[i].count > franchises[j].count
		}
		return franchises[i].key < franchises[j].key
	})
	if len(franchises) > topN {
		franchises = franchises[:topN]
	}

	top := map[string]bool{}
	rated, ratingSum := 0, 0
	for _, gs := range franchises {
		top[gs.key] = true
		rated += gs.rated
		ratingSum += gs.ratingSum
	}

	weight := franchiseNoRatingWeight
	if rated > 0 {
		weight = clamp01(float64(ratingSum) / float64(rated) / 10)
	}

	return Signal{
		Type:   SignalFranchise,
		Games:  collect(entries, func(e library.Entry) bool { return top[e.Game.SeriesName] }),
		Weight: weight,
	}, true
}

func favorites(entries []library.Entry) (Signal, bool) {
	games := collect(entries, func(e library.Entry) bool { return e.Favorite })
	return gated(SignalFavorites, games, favoritesWeight)
}

func completedThemes(entries []library.Entry) (Signal, bool) {
	games := collect(entries, func(e library.Entry) bool { return e.Status == library.StatusCompleted })
	return gated(SignalCompletedThemes, games, completedWeight)
}

func gated(t SignalType, games []library.Game, weight float64) (Signal, bool) {
	if len(games) < minSampleSize {
		return Signal{}, false
	}
	return Signal{Type: t, Games: games, Weight: weight}, true
}

func collect(entries []library.Entry, keep func(library.Entry) bool) []library.Game {
	var games []library.Game
	for _, e := range entries {
		if keep(e) {
			games = append(games, e.Game)
		}
	}
	return games
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
