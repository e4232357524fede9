package curator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/storage"
)

// Activity actions.
const (
	ActionSuggestCollections = "suggest_collections"
	ActionSuggestNextGame    = "suggest_next_game"
	ActionGenerateCover      = "generate_collection_cover"
)

// session is the per-request provider setup.
type session struct {
	generator provider.Generator
	settings  routing.Settings
}

// begin loads the user's credentials and router settings concurrently and
// builds the generation client. Missing or inactive credentials fail with
// a ConfigurationError.
func (s *Service) begin(ctx context.Context, userID string) (session, error) {
	var (
		creds    storage.ProviderCredentials
		settings routing.Settings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.store.GetProviderCredentials(gctx, userID, s.provider)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return &ConfigurationError{Provider: s.provider, Err: config.ErrMissingCredentials}
			}
			return fmt.Errorf("load %s credentials: %w", s.provider, err)
		}
		creds = c
		return nil
	})
	g.Go(func() error {
		st, err := s.store.GetAISettings(gctx, userID)
		if err != nil {
			return fmt.Errorf("load AI settings: %w", err)
		}
		settings = st
		return nil
	})
	if err := g.Wait(); err != nil {
		return session{}, err
	}

	pc, err := config.NewProviderConfig(creds.Provider, creds.APIKey, creds.BaseURL, creds.Active)
	if err != nil {
		return session{}, &ConfigurationError{Provider: s.provider, Err: err}
	}

	return session{generator: s.generators(pc), settings: settings}, nil
}

// loadLibrary returns the user's library, served from the snapshot cache
// when possible.
func (s *Service) loadLibrary(ctx context.Context, userID string) ([]library.Entry, error) {
	key := cache.LibraryKey(userID)

	var entries []library.Entry
	if s.cache.GetJSON(ctx, key, &entries) {
		return entries, nil
	}

	entries, err := s.store.GetLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Resource: "library", ID: userID}
	}

	s.cache.SetJSON(ctx, key, entries, s.cache.TTLs().Library)
	return entries, nil
}

// InvalidateLibrary drops the cached library snapshot for a user.
func (s *Service) InvalidateLibrary(ctx context.Context, userID string) {
	s.cache.Delete(ctx, cache.LibraryKey(userID))
}

// refreshDerived backfills missing game embeddings and refreshes stale
// preferences. Failures are logged; the operation continues with whatever
// is available.
func (s *Service) refreshDerived(ctx context.Context, userID string, entries []library.Entry) {
	log := logging.Ctx(ctx)

	missing, err := s.store.GamesMissingEmbeddings(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Could not list games missing embeddings")
	} else if len(missing) > 0 {
		res := s.embeddings.Backfill(ctx, missing)
		ev := log.Info()
		if res.Errors > 0 {
			ev = log.Warn()
		}
		ev.Str("user", userID).
			Int("processed", res.Processed).
			Int("generated", res.Generated).
			Int("errors", res.Errors).
			Msg("Backfilled game embeddings")
	}

	if _, err := s.learner.Refresh(ctx, userID, entries, false); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Preference refresh failed")
	}
}

// availableModels lists the provider's models. A failure returns nil,
// which disables smart routing for this request.
func (s *Service) availableModels(ctx context.Context, gen provider.Generator) []string {
	models, err := gen.ListModels(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not list provider models")
		return nil
	}
	return models
}

// operation accumulates what the activity-log entry needs.
type operation struct {
	s       *Service
	userID  string
	action  string
	started time.Time
	model   string
	cost    float64
	details map[string]interface{}
}

func (s *Service) startOp(userID, action string) *operation {
	return &operation{
		s:       s,
		userID:  userID,
		action:  action,
		started: s.now(),
		details: map[string]interface{}{},
	}
}

// finish records the activity entry and metrics for the operation.
func (op *operation) finish(ctx context.Context, err error) {
	elapsed := op.s.now().Sub(op.started)
	status := storage.ActivitySuccess
	errMsg := ""
	if err != nil {
		status = storage.ActivityFailure
		errMsg = err.Error()
	}

	op.s.recorder.Record(storage.Activity{
		ID:         uuid.New().String(),
		UserID:     op.userID,
		Action:     op.action,
		Status:     status,
		Model:      op.model,
		CostUSD:    op.cost,
		DurationMS: elapsed.Milliseconds(),
		Error:      errMsg,
		Details:    op.details,
		CreatedAt:  op.s.now(),
	})

	metrics.OperationDuration.WithLabelValues(op.action, status).Observe(elapsed.Seconds())
	if op.cost > 0 {
		metrics.EstimatedCostUSD.WithLabelValues(op.action, op.model).Add(op.cost)
	}

	ev := logging.Ctx(ctx).Info()
	if err != nil {
		ev = logging.Ctx(ctx).Error().Err(err)
	}
	ev.Str("action", op.action).
		Str("user", op.userID).
		Str("model", op.model).
		Float64("cost_usd", op.cost).
		Dur("duration", elapsed).
		Msg("Curation operation finished")
}
