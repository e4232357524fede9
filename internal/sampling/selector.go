package sampling

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
	"github.com/khanglvm/game-curator/internal/search"
)

// Strategy names the stage that produced a selection.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyKeyword  Strategy = "keyword"
	StrategyQuota    Strategy = "quota"
)

// Searcher is the semantic stage.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
}

// KeywordIndex is the BM25 stage used when the semantic stage fails.
type KeywordIndex interface {
	IndexLibrary(userID string, entries []library.Entry) error
	Search(userID, text string, limit int, statuses []library.Status) ([]search.Result, error)
}

// Request describes one selection.
type Request struct {
	UserID string

	// Theme is free-text intent. Empty skips straight to quota sampling.
	Theme string

	Library []library.Entry

	// Statuses restricts the sub-library; empty means the whole library.
	Statuses []library.Status

	Limit         int
	MinViable     int
	MinSimilarity float64
}

// Selection is the chosen subset.
type Selection struct {
	Games    []library.GameSummary
	Strategy Strategy
}

// Preset holds the per-operation sampling parameters.
type Preset struct {
	Statuses      []library.Status
	Limit         int
	MinViable     int
	MinSimilarity float64
}

var (
	// CollectionsPreset samples the whole library.
	CollectionsPreset = Preset{Limit: 150, MinViable: 10, MinSimilarity: 0.3}

	// NextGamePreset samples what the user could play next.
	NextGamePreset = Preset{
		Statuses:      []library.Status{library.StatusBacklog, library.StatusPlaying},
		Limit:         60,
		MinViable:     5,
		MinSimilarity: 0.3,
	}
)

// Request builds a selection request from the preset.
func (p Preset) Request(userID, theme string, entries []library.Entry) Request {
	return Request{
		UserID:        userID,
		Theme:         theme,
		Library:       entries,
		Statuses:      p.Statuses,
		Limit:         p.Limit,
		MinViable:     p.MinViable,
		MinSimilarity: p.MinSimilarity,
	}
}

// Selector runs the two-stage selection.
type Selector struct {
	searcher Searcher
	keyword  KeywordIndex
	log      zerolog.Logger
}

// NewSelector creates a selector. keyword may be nil.
func NewSelector(searcher Searcher, keyword KeywordIndex) *Selector {
	return &Selector{
		searcher: searcher,
		keyword:  keyword,
		log:      logging.Component("sampling"),
	}
}

// Select picks games for a prompt. It never fails: search errors fall
// through to the next stage.
func (s *Selector) Select(ctx context.Context, req Request) Selection {
	pool := filterEntries(req.Library, req.Statuses)
	summaries := library.Summarize(pool)

	if req.Theme != "" {
		if games, strategy, ok := s.themed(ctx, req, pool, summaries); ok {
			metrics.SamplingStrategy.WithLabelValues(string(strategy)).Inc()
			return Selection{Games: games, Strategy: strategy}
		}
	}

	metrics.SamplingStrategy.WithLabelValues(string(StrategyQuota)).Inc()
	return Selection{Games: QuotaSample(summaries, req.Limit), Strategy: StrategyQuota}
}

func (s *Selector) themed(ctx context.Context, req Request, pool []library.Entry, summaries []library.GameSummary) ([]library.GameSummary, Strategy, bool) {
	strategy := StrategySemantic
	results, err := s.searcher.Search(ctx, search.Query{
		Text:          req.Theme,
		UserID:        req.UserID,
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
		Statuses:      req.Statuses,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user", req.UserID).Msg("Semantic search failed")
		if s.keyword == nil {
			return nil, "", false
		}
		strategy = StrategyKeyword
		results, err = s.keywordSearch(req, pool)
		if err != nil {
			s.log.Warn().Err(err).Str("user", req.UserID).Msg("Keyword search failed")
			return nil, "", false
		}
	}

	if search.Insufficient(results, req.MinViable) {
		s.log.Debug().
			Str("strategy", string(strategy)).
			Int("found", len(results)).
			Int("min", req.MinViable).
			Msg("Themed search insufficient, using quota sample")
		return nil, "", false
	}

	games := resolve(results, summaries)
	if len(games) < req.MinViable {
		return nil, "", false
	}
	return games, strategy, true
}

func (s *Selector) keywordSearch(req Request, pool []library.Entry) ([]search.Result, error) {
	if err := s.keyword.IndexLibrary(req.UserID, pool); err != nil {
		return nil, err
	}
	return s.keyword.Search(req.UserID, req.Theme, req.Limit, req.Statuses)
}

// resolve maps ranked results back to summaries, keeping result order and
// dropping ids that are not in the pool.
func resolve(results []search.Result, summaries []library.GameSummary) []library.GameSummary {
	byID := make(map[string]library.GameSummary, len(summaries))
	for _, g := range summaries {
		byID[g.ID] = g
	}
	seen := make(map[string]bool, len(results))
	games := make([]library.GameSummary, 0, len(results))
	for _, r := range results {
		g, ok := byID[r.EntityID]
		if !ok || seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		games = append(games, g)
	}
	return games
}

func filterEntries(entries []library.Entry, statuses []library.Status) []library.Entry {
	if len(statuses) == 0 {
		return entries
	}
	allowed := make(map[library.Status]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}
	out := make([]library.Entry, 0, len(entries))
	for _, e := range entries {
		if allowed[e.Status] {
			out = append(out, e)
		}
	}
	return out
}
