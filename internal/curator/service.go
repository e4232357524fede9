/*
Package curator orchestrates the AI curation operations over a user's game
library: collection suggestions, next-game suggestions, collection covers,
duplicate checks and cost estimates.

Every generation operation follows the same sequence. Provider credentials
are checked first so a misconfigured user never incurs spend. The library
snapshot is loaded (cached briefly), missing game embeddings are backfilled
and stale preferences refreshed. The library is sampled to fit the prompt,
a model is routed, the provider is called and its output parsed. Each run
leaves an activity-log entry whether it succeeds or fails.
*/
package curator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/duplicate"
	"github.com/khanglvm/game-curator/internal/embedding"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/sampling"
	"github.com/khanglvm/game-curator/internal/storage"
)

// Datastore is the persistence the orchestrator needs.
type Datastore interface {
	ActivityWriter
	GetLibrary(ctx context.Context, userID string) ([]library.Entry, error)
	GamesMissingEmbeddings(ctx context.Context, userID string) ([]library.Game, error)
	GetGameEmbedding(ctx context.Context, gameID string) (storage.EmbeddingRecord, error)
	GetCollection(ctx context.Context, userID, collectionID string) (storage.Collection, error)
	CreateCollection(ctx context.Context, c storage.Collection) error
	SetCollectionCover(ctx context.Context, userID, collectionID, coverURL string) error
	GetAISettings(ctx context.Context, userID string) (routing.Settings, error)
	GetProviderCredentials(ctx context.Context, userID, provider string) (storage.ProviderCredentials, error)
}

// Embeddings is the embedding pipeline.
type Embeddings interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedCollection(ctx context.Context, collectionID, name, description string) (embedding.Result, error)
	Backfill(ctx context.Context, games []library.Game) embedding.JobResult
}

// Learner keeps preference vectors fresh.
type Learner interface {
	Refresh(ctx context.Context, userID string, entries []library.Entry, force bool) (int, error)
	Preferences(ctx context.Context, userID string) ([]storage.Preference, error)
}

// Sampler picks the games that go into a prompt.
type Sampler interface {
	Select(ctx context.Context, req sampling.Request) sampling.Selection
}

// DuplicateChecker compares a candidate collection with the user's own.
type DuplicateChecker interface {
	Check(ctx context.Context, userID, name, description string, minSimilarity float64) (duplicate.Result, error)
}

// GeneratorFactory builds a generation client from validated credentials.
type GeneratorFactory func(pc config.ProviderConfig) provider.Generator

// BreakerGenerators returns a factory of OpenAI-compatible clients that all
// share one circuit breaker.
func BreakerGenerators(cfg config.BreakerConfig) GeneratorFactory {
	breaker := provider.NewBreaker("generation", cfg)
	return func(pc config.ProviderConfig) provider.Generator {
		return provider.GuardGenerator(provider.NewClient(pc), breaker)
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store      Datastore
	Cache      *cache.Store
	Embeddings Embeddings
	Learner    Learner
	Sampler    Sampler
	Duplicates DuplicateChecker
	Generators GeneratorFactory
	Images     ImageStore

	// Provider names the generation provider whose credentials are used.
	// Defaults to "openai".
	Provider string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs the curation operations.
type Service struct {
	store      Datastore
	cache      *cache.Store
	embeddings Embeddings
	learner    Learner
	sampler    Sampler
	duplicates DuplicateChecker
	generators GeneratorFactory
	images     ImageStore
	provider   string
	now        func() time.Time
	recorder   *Recorder
	log        zerolog.Logger
}

// New creates a Service and starts its activity recorder.
func New(d Deps) *Service {
	if d.Provider == "" {
		d.Provider = "openai"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		store:      d.Store,
		cache:      d.Cache,
		embeddings: d.Embeddings,
		learner:    d.Learner,
		sampler:    d.Sampler,
		duplicates: d.Duplicates,
		generators: d.Generators,
		images:     d.Images,
		provider:   d.Provider,
		now:        d.Now,
		recorder:   NewRecorder(d.Store),
		log:        logging.Component("curator"),
	}
}

// Close flushes pending activity entries.
func (s *Service) Close() {
	if n := s.recorder.Pending(); n > 0 {
		s.log.Debug().Int("pending", n).Msg("Flushing activity log")
	}
	s.recorder.Stop()
}
