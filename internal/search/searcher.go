package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
	"github.com/khanglvm/game-curator/internal/storage"
	"github.com/khanglvm/game-curator/internal/vector"
)

// DefaultLimit caps results when a query leaves Limit unset.
const DefaultLimit = 20

// Embedder embeds query text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Store is the datastore view the searcher needs.
type Store interface {
	SimilarGames(ctx context.Context, q storage.SimilarityQuery) ([]storage.SimilarGame, error)
	GetOwnedGames(ctx context.Context, userID string, gameIDs []string) ([]library.Entry, error)
	GetGameEmbedding(ctx context.Context, gameID string) (storage.EmbeddingRecord, error)
}

// Searcher performs user-scoped vector retrieval with id-list caching.
type Searcher struct {
	embedder Embedder
	store    Store
	cache    *cache.Store
	log      zerolog.Logger
}

// NewSearcher creates a searcher. cacheStore may be nil.
func NewSearcher(embedder Embedder, store Store, cacheStore *cache.Store) *Searcher {
	return &Searcher{
		embedder: embedder,
		store:    store,
		cache:    cacheStore,
		log:      logging.Component("search"),
	}
}

// Search returns the user's games most similar to q.Text, best first.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.UserID == "" {
		return nil, errors.New("search requires a user id")
	}
	if strings.TrimSpace(q.Text) == "" {
		return []Result{}, nil
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	key := cache.SearchKey(scopeOf(q), cache.Hash(q.Text))
	cachedIDs, cached := s.cache.GetIDs(ctx, key)

	queryVec, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		if !cached {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		s.log.Warn().Err(err).Msg("Query embedding failed, serving cached order unscored")
		results, rerr := s.rehydrateOrder(ctx, q, cachedIDs)
		if rerr != nil || len(results) == 0 {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		metrics.SearchOutcomes.WithLabelValues("cache_hit").Inc()
		return results, nil
	}

	if cached {
		results, err := s.rehydrate(ctx, q, queryVec, cachedIDs)
		if err == nil {
			metrics.SearchOutcomes.WithLabelValues("cache_hit").Inc()
			return results, nil
		}
		s.log.Warn().Err(err).Msg("Cached search rehydration failed, recomputing")
	}
	metrics.SearchOutcomes.WithLabelValues("cache_miss").Inc()

	hits, err := s.store.SimilarGames(ctx, storage.SimilarityQuery{
		UserID:        q.UserID,
		Vector:        queryVec,
		Statuses:      statusStrings(q.Statuses),
		MinSimilarity: q.MinSimilarity,
		Limit:         q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{EntityID: h.GameID, Similarity: h.Similarity, Label: h.Name})
	}

	// Empty lists are not cached so freshly embedded games show up at once.
	if len(results) > 0 {
		s.cache.SetIDs(ctx, key, IDs(results))
	}
	return results, nil
}

// rehydrate turns cached ids back into results through an ownership-scoped
// lookup, re-scoring each game against the query vector.
func (s *Searcher) rehydrate(ctx context.Context, q Query, queryVec []float32, ids []string) ([]Result, error) {
	entries, err := s.store.GetOwnedGames(ctx, q.UserID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		rec, err := s.store.GetGameEmbedding(ctx, e.Game.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sim := vector.Cosine(queryVec, rec.Vector)
		if sim < q.MinSimilarity {
			continue
		}
		results = append(results, Result{EntityID: e.Game.ID, Similarity: sim, Label: e.Game.Name})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].EntityID < results[j].EntityID
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// rehydrateOrder resolves cached ids through the ownership-scoped lookup
// and keeps the cached order. Without a query vector the games cannot be
// re-scored, so each reports the scope's threshold, which every cached id
// met when the list was stored.
func (s *Searcher) rehydrateOrder(ctx context.Context, q Query, ids []string) ([]Result, error) {
	entries, err := s.store.GetOwnedGames(ctx, q.UserID, ids)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]string, len(entries))
	for _, e := range entries {
		owned[e.Game.ID] = e.Game.Name
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		name, ok := owned[id]
		if !ok {
			continue
		}
		results = append(results, Result{EntityID: id, Similarity: q.MinSimilarity, Label: name})
		if len(results) == q.Limit {
			break
		}
	}
	return results, nil
}

// scopeOf builds the cache scope: the user plus every parameter that
// changes the result list for the same text.
func scopeOf(q Query) string {
	statuses := statusStrings(q.Statuses)
	sort.Strings(statuses)
	tag := "all"
	if len(statuses) > 0 {
		tag = strings.Join(statuses, ",")
	}
	return strings.Join([]string{
		q.UserID,
		tag,
		strconv.Itoa(q.Limit),
		strconv.FormatFloat(q.MinSimilarity, 'f', 3, 64),
	}, ":")
}
