/*
Package cache implements content hashing and the fail-open key/value cache.

Backends satisfy the small Backend contract (get, set with TTL, delete).
Store wraps a backend and never propagates backend errors: a failed read is a
miss and a failed write is a no-op, so a cache outage degrades to "always
miss" instead of failing the caller.
*/
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
	"github.com/khanglvm/game-curator/internal/vector"
)

// Namespaces prefix every key.
const (
	NamespaceEmbedding = "emb"
	NamespaceSearch    = "search"
	NamespaceLibrary   = "library"
)

// Default TTLs per namespace.
const (
	DefaultEmbeddingTTL = 30 * 24 * time.Hour
	DefaultSearchTTL    = 24 * time.Hour
	DefaultLibraryTTL   = 5 * time.Minute
)

// Backend is the key/value contract a cache implementation must satisfy.
// Get reports found=false with a nil error on a plain miss.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TTLs configures per-namespace expiry.
type TTLs struct {
	Embedding time.Duration
	Search    time.Duration
	Library   time.Duration
}

// DefaultTTLs returns the standard namespace TTLs.
func DefaultTTLs() TTLs {
	return TTLs{
		Embedding: DefaultEmbeddingTTL,
		Search:    DefaultSearchTTL,
		Library:   DefaultLibraryTTL,
	}
}

// Hash returns a stable hex digest of text, used for cache keys and
// embedding text hashes. Not a security primitive.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbeddingKey keys an entity's embedding by model and the hash of its
// canonical text. Vectors from different models never share a key.
func EmbeddingKey(model, kind, entityID, textHash string) string {
	return strings.Join([]string{NamespaceEmbedding, model, kind, entityID, textHash}, ":")
}

// TextEmbeddingKey keys an ad-hoc text embedding (queries, signal texts).
func TextEmbeddingKey(model, textHash string) string {
	return strings.Join([]string{NamespaceEmbedding, model, "text", textHash}, ":")
}

// SearchKey keys a cached id list.
func SearchKey(scope, queryHash string) string {
	return NamespaceSearch + ":" + scope + ":" + queryHash
}

// LibraryKey keys a user's library snapshot.
func LibraryKey(userID string) string {
	return NamespaceLibrary + ":" + userID
}

// Store is a fail-open typed facade over a Backend.
type Store struct {
	backend Backend
	ttls    TTLs
	log     zerolog.Logger
}

// NewStore wraps backend. A nil backend yields a store that always misses.
func NewStore(backend Backend, ttls TTLs) *Store {
	return &Store{
		backend: backend,
		ttls:    ttls,
		log:     logging.Component("cache"),
	}
}

// TTLs returns the configured namespace TTLs.
func (s *Store) TTLs() TTLs {
	if s == nil {
		return DefaultTTLs()
	}
	return s.ttls
}

func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool) {
	ns := namespaceOf(key)
	if s == nil || s.backend == nil {
		metrics.CacheMisses.WithLabelValues(ns).Inc()
		return nil, false
	}

	data, found, err := s.backend.Get(ctx, key)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(ns, "get").Inc()
		metrics.CacheMisses.WithLabelValues(ns).Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return nil, false
	}
	if !found {
		metrics.CacheMisses.WithLabelValues(ns).Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(ns).Inc()
	return data, true
}

func (s *Store) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s == nil || s.backend == nil {
		return
	}
	if err := s.backend.SetWithTTL(ctx, key, value, ttl); err != nil {
		metrics.CacheErrors.WithLabelValues(namespaceOf(key), "set").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed, skipping")
	}
}

// Delete removes key. Errors are logged and swallowed.
func (s *Store) Delete(ctx context.Context, key string) {
	if s == nil || s.backend == nil {
		return
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		metrics.CacheErrors.WithLabelValues(namespaceOf(key), "delete").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// GetVector reads an embedding vector.
func (s *Store) GetVector(ctx context.Context, key string) ([]float32, bool) {
	data, ok := s.get(ctx, key)
	if !ok {
		return nil, false
	}
	vec, err := vector.Decode(data)
	if err != nil || len(vec) == 0 {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt cached vector, treating as miss")
		return nil, false
	}
	return vec, true
}

// SetVector writes an embedding vector with the embedding TTL.
func (s *Store) SetVector(ctx context.Context, key string, vec []float32) {
	if s == nil {
		return
	}
	s.set(ctx, key, vector.Encode(vec), s.ttls.Embedding)
}

// GetIDs reads an ordered id list.
func (s *Store) GetIDs(ctx context.Context, key string) ([]string, bool) {
	var ids []string
	if !s.GetJSON(ctx, key, &ids) {
		return nil, false
	}
	return ids, true
}

// SetIDs writes an ordered id list with the search TTL.
func (s *Store) SetIDs(ctx context.Context, key string, ids []string) {
	s.SetJSON(ctx, key, ids, s.TTLs().Search)
}

// GetJSON decodes a cached JSON value into dst. Decode failures are misses.
func (s *Store) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	data, ok := s.get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt cached value, treating as miss")
		return false
	}
	return true
}

// SetJSON encodes value as JSON and stores it with ttl.
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to encode cache value")
		return
	}
	s.set(ctx, key, data, ttl)
}
