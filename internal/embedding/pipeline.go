/*
Package embedding turns games, collections and free text into vectors.

Every input is first rendered to canonical text and hashed. A vector is
looked up in the cache, then in the datastore when the stored text hash
still matches, and only then requested from the provider. New vectors are
persisted (last write wins) and written through the cache.
*/
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
	"github.com/khanglvm/game-curator/internal/storage"
)

// Entity kinds used in cache keys.
const (
	KindGame       = "game"
	KindCollection = "collection"
)

// DefaultBatchSize bounds the number of texts sent per backfill chunk.
const DefaultBatchSize = 100

// ErrMissingResult is returned when batch reconciliation loses an entity.
var ErrMissingResult = errors.New("embedding result missing after batch reconciliation")

// Provider generates embeddings. EmbedBatch must preserve input order.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Store persists embedding records.
type Store interface {
	GetGameEmbedding(ctx context.Context, gameID string) (storage.EmbeddingRecord, error)
	UpsertGameEmbedding(ctx context.Context, rec storage.EmbeddingRecord) error
	UpsertCollectionEmbedding(ctx context.Context, rec storage.EmbeddingRecord) error
}

// Result is one embedded entity.
type Result struct {
	EntityID string
	Vector   []float32
	TextHash string

	// Generated is true when the provider produced the vector in this call.
	Generated bool
}

// Pipeline is the cache-then-persist embedding pipeline.
type Pipeline struct {
	provider  Provider
	store     Store
	cache     *cache.Store
	batchSize int
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the backfill chunk size.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline. cacheStore may be nil.
func NewPipeline(provider Provider, store Store, cacheStore *cache.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:  provider,
		store:     store,
		cache:     cacheStore,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		log:       logging.Component("embedding"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the embedding model id.
func (p *Pipeline) Model() string {
	return p.provider.Model()
}

// EmbedText embeds ad-hoc text such as a search query. The vector is cached
// by text hash and never persisted.
func (p *Pipeline) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := cache.TextEmbeddingKey(p.provider.Model(), cache.Hash(text))
	if vec, ok := p.cache.GetVector(ctx, key); ok {
		return vec, nil
	}

	vec, err := p.embedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.SetVector(ctx, key, vec)
	return vec, nil
}

// EmbedGame returns the embedding for one game.
func (p *Pipeline) EmbedGame(ctx context.Context, g library.Game) (Result, error) {
	text := GameText(g)
	hash := cache.Hash(text)
	key := cache.EmbeddingKey(p.provider.Model(), KindGame, g.ID, hash)

	if vec, ok := p.lookup(ctx, g.ID, hash, key); ok {
		return Result{EntityID: g.ID, Vector: vec, TextHash: hash}, nil
	}

	vec, err := p.embedOne(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("embed game %s: %w", g.ID, err)
	}
	if err := p.persist(ctx, KindGame, g.ID, hash, vec); err != nil {
		return Result{}, err
	}
	p.cache.SetVector(ctx, key, vec)
	return Result{EntityID: g.ID, Vector: vec, TextHash: hash, Generated: true}, nil
}

// EmbedCollection returns the embedding for a persisted collection and
// stores it so duplicate checks can see it.
func (p *Pipeline) EmbedCollection(ctx context.Context, collectionID, name, description string) (Result, error) {
	text := CollectionText(name, description)
	hash := cache.Hash(text)
	key := cache.EmbeddingKey(p.provider.Model(), KindCollection, collectionID, hash)

	if vec, ok := p.cache.GetVector(ctx, key); ok {
		return Result{EntityID: collectionID, Vector: vec, TextHash: hash}, nil
	}

	vec, err := p.embedOne(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("embed collection %s: %w", collectionID, err)
	}
	if err := p.persist(ctx, KindCollection, collectionID, hash, vec); err != nil {
		return Result{}, err
	}
	p.cache.SetVector(ctx, key, vec)
	return Result{EntityID: collectionID, Vector: vec, TextHash: hash, Generated: true}, nil
}

type pending struct {
	game library.Game
	text string
	hash string
	key  string
}

// EmbedGames embeds games in one provider call over the entries that are
// not already cached or stored. Results come back in input order.
func (p *Pipeline) EmbedGames(ctx context.Context, games []library.Game) ([]Result, error) {
	if len(games) == 0 {
		return []Result{}, nil
	}

	found := make(map[string]Result, len(games))
	var misses []pending
	queued := make(map[string]bool)

	for _, g := range games {
		if _, done := found[g.ID]; done || queued[g.ID] {
			continue
		}
		text := GameText(g)
		hash := cache.Hash(text)
		key := cache.EmbeddingKey(p.provider.Model(), KindGame, g.ID, hash)

		if vec, ok := p.lookup(ctx, g.ID, hash, key); ok {
			found[g.ID] = Result{EntityID: g.ID, Vector: vec, TextHash: hash}
			continue
		}
		misses = append(misses, pending{game: g, text: text, hash: hash, key: key})
		queued[g.ID] = true
	}

	if len(misses) > 0 {
		texts := make([]string, len(misses))
		for i, m := range misses {
			texts[i] = m.text
		}

		vectors, err := p.provider.EmbedBatch(ctx, texts)
		if err != nil {
			metrics.EmbeddingRequests.WithLabelValues("batch", "error").Inc()
			return nil, fmt.Errorf("batch embedding of %d games: %w", len(texts), err)
		}
		metrics.EmbeddingRequests.WithLabelValues("batch", "success").Inc()
		metrics.EmbeddingTexts.Add(float64(len(texts)))

		if len(vectors) != len(misses) {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts: %w", len(vectors), len(misses), ErrMissingResult)
		}

		for i, m := range misses {
			if len(vectors[i]) == 0 {
				continue
			}
			if err := p.persist(ctx, KindGame, m.game.ID, m.hash, vectors[i]); err != nil {
				return nil, err
			}
			p.cache.SetVector(ctx, m.key, vectors[i])
			found[m.game.ID] = Result{EntityID: m.game.ID, Vector: vectors[i], TextHash: m.hash, Generated: true}
		}
	}

	results := make([]Result, 0, len(games))
	for _, g := range games {
		r, ok := found[g.ID]
		if !ok {
			return nil, fmt.Errorf("game %s: %w", g.ID, ErrMissingResult)
		}
		results = append(results, r)
	}

	p.log.Debug().Int("requested", len(games)).Int("generated", len(misses)).Msg("Batch embedding complete")
	return results, nil
}

// lookup checks the cache, then the datastore when its text hash matches.
// A datastore hit warms the cache.
func (p *Pipeline) lookup(ctx context.Context, gameID, hash, key string) ([]float32, bool) {
	if vec, ok := p.cache.GetVector(ctx, key); ok {
		return vec, true
	}
	if p.store == nil {
		return nil, false
	}

	rec, err := p.store.GetGameEmbedding(ctx, gameID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.log.Warn().Err(err).Str("game_id", gameID).Msg("Stored embedding lookup failed")
		}
		return nil, false
	}
	if rec.TextHash != hash || rec.Model != p.provider.Model() || len(rec.Vector) == 0 {
		return nil, false
	}
	p.cache.SetVector(ctx, key, rec.Vector)
	return rec.Vector, true
}

func (p *Pipeline) embedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.provider.Embed(ctx, text)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("single", "error").Inc()
		return nil, err
	}
	metrics.EmbeddingRequests.WithLabelValues("single", "success").Inc()
	metrics.EmbeddingTexts.Inc()
	if len(vec) == 0 {
		return nil, fmt.Errorf("provider returned an empty vector")
	}
	return vec, nil
}

func (p *Pipeline) persist(ctx context.Context, kind, id, hash string, vec []float32) error {
	if p.store == nil {
		return nil
	}
	rec := storage.EmbeddingRecord{
		EntityID:  id,
		Vector:    vec,
		TextHash:  hash,
		Model:     p.provider.Model(),
		UpdatedAt: p.now(),
	}
	var err error
	if kind == KindCollection {
		err = p.store.UpsertCollectionEmbedding(ctx, rec)
	} else {
		err = p.store.UpsertGameEmbedding(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("persist %s embedding %s: %w", kind, id, err)
	}
	return nil
}
