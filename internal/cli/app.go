/*
Package cli implements the command-line interface for game-curator.

Each command is implemented as a separate function that returns a *cobra.Command.
Commands that touch the library open an App, which wires configuration,
storage, the cache backend, the embedding pipeline and the curator.
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/curator"
	"github.com/khanglvm/game-curator/internal/duplicate"
	"github.com/khanglvm/game-curator/internal/embedding"
	"github.com/khanglvm/game-curator/internal/learning"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/sampling"
	"github.com/khanglvm/game-curator/internal/search"
	"github.com/khanglvm/game-curator/internal/storage"
)

const (
	// UserEnvVar supplies the default library owner.
	UserEnvVar = "GAME_CURATOR_USER"

	// fallbackKeyEnvVar is read when embedding.api_key is unset.
	fallbackKeyEnvVar = "OPENAI_API_KEY"
)

// errNoUser is returned by commands that need a library owner.
var errNoUser = errors.New("no user selected: pass --user or set " + UserEnvVar)

// Globals are the persistent root flags.
type Globals struct {
	ConfigPath string
	UserID     string
	JSON       bool
}

// defaultUser returns the --user flag or the environment default.
func (g *Globals) defaultUser() string {
	if u := strings.TrimSpace(g.UserID); u != "" {
		return u
	}
	return strings.TrimSpace(os.Getenv(UserEnvVar))
}

// user returns the selected library owner or errNoUser.
func (g *Globals) user() (string, error) {
	if u := g.defaultUser(); u != "" {
		return u, nil
	}
	return "", errNoUser
}

// loadConfig reads --config when given, else the default locations.
func (g *Globals) loadConfig() (*config.Config, error) {
	if path := strings.TrimSpace(g.ConfigPath); path != "" {
		return config.LoadFrom(path, true)
	}
	return config.Load()
}

// App holds the wired components for one command invocation.
type App struct {
	Config   *config.Config
	Store    *storage.SQLiteStorage
	Cache    *cache.Store
	Memory   *cache.MemoryBackend // nil unless the memory backend is in use
	Pipeline *embedding.Pipeline
	Searcher *search.Searcher
	Keyword  *search.KeywordIndex
	Learner  *learning.Learner
	Curator  *curator.Service

	closers []func() error
}

// openApp loads configuration and wires every component. The returned App
// must be closed.
func openApp(ctx context.Context, g *Globals) (*App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	app := &App{Config: cfg}

	app.Store = storage.NewStorage(cfg.Database.Path)
	if err := app.Store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.closers = append(app.closers, app.Store.Close)

	backend := app.cacheBackend(ctx)
	app.Cache = cache.NewStore(backend, cache.TTLs{
		Embedding: cfg.Cache.EmbeddingTTL,
		Search:    cfg.Cache.SearchTTL,
		Library:   cfg.Cache.LibraryTTL,
	})

	app.Pipeline = embedding.NewPipeline(
		newEmbedder(cfg.Embedding, cfg.Breaker),
		app.Store,
		app.Cache,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
	)
	app.Searcher = search.NewSearcher(app.Pipeline, app.Store, app.Cache)

	app.Keyword, err = search.NewKeywordIndex()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	app.closers = append(app.closers, app.Keyword.Close)

	app.Learner = learning.NewLearner(app.Pipeline, app.Store, nil)

	app.Curator = curator.New(curator.Deps{
		Store:      app.Store,
		Cache:      app.Cache,
		Embeddings: app.Pipeline,
		Learner:    app.Learner,
		Sampler:    sampling.NewSelector(app.Searcher, app.Keyword),
		Duplicates: duplicate.NewDetector(app.Pipeline, app.Store),
		Generators: curator.BreakerGenerators(cfg.Breaker),
		Images:     curator.NewFileImageStore(cfg.Covers.Dir, cfg.Covers.PublicBaseURL),
		Provider:   cfg.Generation.Provider,
	})
	app.closers = append(app.closers, func() error {
		app.Curator.Close()
		return nil
	})

	return app, nil
}

// cacheBackend builds the configured backend. An unreachable redis falls
// back to the in-process backend.
func (a *App) cacheBackend(ctx context.Context) cache.Backend {
	opts := a.Config.Cache
	switch opts.Backend {
	case "none":
		return nil
	case "redis":
		rb, err := cache.NewRedisBackend(ctx, cache.RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err == nil {
			a.closers = append(a.closers, rb.Close)
			return rb
		}
		logging.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
	}
	a.Memory = cache.NewMemoryBackend()
	return a.Memory
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("Error during cleanup")
		}
	}
	a.closers = nil
}

// newEmbedder builds the breaker-guarded embedding client. Without
// credentials it returns an embedder that always fails, so retrieval
// degrades to keyword and quota sampling instead of blocking the command.
func newEmbedder(cfg config.EmbeddingConfig, breaker config.BreakerConfig) embedding.Provider {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(fallbackKeyEnvVar)
	}
	pc, err := config.NewProviderConfig(cfg.Provider, key, cfg.BaseURL, true)
	if err != nil {
		logging.Debug().Err(err).Msg("Embedding provider not configured")
		return unavailableEmbedder{model: cfg.Model, err: err}
	}
	client := provider.NewClient(pc, provider.WithEmbeddingModel(cfg.Model, cfg.Dimensions))
	return provider.GuardEmbedder(client, provider.NewBreaker("embedding", breaker))
}

type unavailableEmbedder struct {
	model string
	err   error
}

func (u unavailableEmbedder) Model() string { return u.model }

func (u unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, u.err
}

func (u unavailableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, u.err
}

// withUserApp opens an App for the selected user and runs fn.
func withUserApp(cmd *cobra.Command, g *Globals, fn func(ctx context.Context, app *App, userID string) error) error {
	userID, err := g.user()
	if err != nil {
		return err
	}
	ctx := logging.WithCorrelationID(commandContext(cmd))
	app, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app, userID)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
