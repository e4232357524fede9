package curator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/sampling"
	"github.com/khanglvm/game-curator/internal/storage"
)

// SuggestedCollection is one collection proposed by the model.
type SuggestedCollection struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	GameNames   []string `json:"gameNames"`
	GameIDs     []string `json:"gameIds"`
	Reasoning   string   `json:"reasoning"`
}

// CollectionSuggestions is the result of SuggestCollections.
type CollectionSuggestions struct {
	Collections []SuggestedCollection `json:"collections"`
	Cost        float64               `json:"cost"`
	Model       string                `json:"model"`
	Strategy    sampling.Strategy     `json:"strategy"`
}

type collectionsOutput struct {
	Collections []struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		GameNames   []string `json:"gameNames"`
		Reasoning   string   `json:"reasoning"`
	} `json:"collections"`
}

// SuggestCollections proposes themed collections from the user's library.
// Suggestions are not persisted.
func (s *Service) SuggestCollections(ctx context.Context, userID, theme string) (result CollectionSuggestions, err error) {
	ctx = logging.WithCorrelationID(ctx)
	op := s.startOp(userID, ActionSuggestCollections)
	defer func() { op.finish(ctx, err) }()

	sess, err := s.begin(ctx, userID)
	if err != nil {
		return CollectionSuggestions{}, err
	}

	entries, err := s.loadLibrary(ctx, userID)
	if err != nil {
		return CollectionSuggestions{}, err
	}
	s.refreshDerived(ctx, userID, entries)

	theme = strings.TrimSpace(theme)
	sel := s.sampler.Select(ctx, sampling.CollectionsPreset.Request(userID, theme, entries))
	op.details["strategy"] = string(sel.Strategy)
	op.details["sampled"] = len(sel.Games)
	if theme != "" {
		op.details["theme"] = theme
	}

	route := routing.SelectModel(routing.TaskCollectionSuggestions, sess.settings, s.availableModels(ctx, sess.generator))
	op.model = route.Model

	resp, err := sess.generator.GenerateText(ctx, provider.TextRequest{
		Model:        route.Model,
		SystemPrompt: collectionsSystemPrompt,
		UserPrompt:   collectionsPrompt(sel.Games, theme),
		MaxTokens:    route.MaxTokens,
		Temperature:  route.Temperature,
		Reasoning:    route.IsReasoningModel,
	})
	if err != nil {
		return CollectionSuggestions{}, &ProviderError{Op: "generate collections", Model: route.Model, Err: err}
	}
	op.cost = routing.EstimateTextCost(route.Model, resp.PromptTokens, resp.CompletionTokens)

	var out collectionsOutput
	if err := decodeOutput(resp, route.MaxTokens, &out); err != nil {
		return CollectionSuggestions{}, err
	}

	index := library.IndexByName(library.Summarize(entries))
	collections := make([]SuggestedCollection, 0, len(out.Collections))
	dropped := 0
	for _, c := range out.Collections {
		names, ids, unmatched := mapNames(c.GameNames, index)
		dropped += len(unmatched)
		if len(unmatched) > 0 {
			logging.Ctx(ctx).Debug().
				Str("collection", c.Name).
				Strs("unmatched", unmatched).
				Msg("Dropped suggested games not in library")
		}
		collections = append(collections, SuggestedCollection{
			Name:        strings.TrimSpace(c.Name),
			Description: strings.TrimSpace(c.Description),
			GameNames:   names,
			GameIDs:     ids,
			Reasoning:   c.Reasoning,
		})
	}
	op.details["collections"] = len(collections)
	op.details["dropped_names"] = dropped

	return CollectionSuggestions{
		Collections: collections,
		Cost:        op.cost,
		Model:       route.Model,
		Strategy:    sel.Strategy,
	}, nil
}

// CreateCollection persists a collection and embeds it right away so later
// duplicate checks see it. Game ids the user does not own are rejected.
func (s *Service) CreateCollection(ctx context.Context, userID, name, description string, gameIDs []string) (storage.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Collection{}, fmt.Errorf("collection name is required")
	}

	if len(gameIDs) > 0 {
		entries, err := s.loadLibrary(ctx, userID)
		if err != nil {
			return storage.Collection{}, err
		}
		owned := make(map[string]bool, len(entries))
		for _, e := range entries {
			owned[e.Game.ID] = true
		}
		for _, id := range gameIDs {
			if !owned[id] {
				return storage.Collection{}, &NotFoundError{Resource: "game", ID: id}
			}
		}
	}

	c := storage.Collection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		GameIDs:     gameIDs,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateCollection(ctx, c); err != nil {
		return storage.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	if _, err := s.embeddings.EmbedCollection(ctx, c.ID, c.Name, c.Description); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("collection", c.ID).Msg("Collection saved without embedding")
	}
	return c, nil
}
