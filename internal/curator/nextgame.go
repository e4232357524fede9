package curator

import (
	"context"
	"errors"
	"strings"

	"github.com/khanglvm/game-curator/internal/learning"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/sampling"
	"github.com/khanglvm/game-curator/internal/storage"
)

// tasteMatchCount is how many taste matches the next-game prompt lists.
const tasteMatchCount = 5

// NextGame is the suggested game.
type NextGame struct {
	GameName string `json:"gameName"`
	// GameID is empty when the suggested name is not in the library.
	GameID         string   `json:"gameId,omitempty"`
	Reasoning      string   `json:"reasoning"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
}

// NextGameSuggestion is the result of SuggestNextGame.
type NextGameSuggestion struct {
	Suggestion NextGame          `json:"suggestion"`
	Cost       float64           `json:"cost"`
	Model      string            `json:"model"`
	Strategy   sampling.Strategy `json:"strategy"`
}

type nextGameOutput struct {
	GameName       string   `json:"gameName"`
	Reasoning      string   `json:"reasoning"`
	EstimatedHours *float64 `json:"estimatedHours"`
}

// SuggestNextGame picks what the user should play next from their backlog
// and in-progress games, optionally steered by free-text input.
func (s *Service) SuggestNextGame(ctx context.Context, userID, userInput string) (result NextGameSuggestion, err error) {
	ctx = logging.WithCorrelationID(ctx)
	op := s.startOp(userID, ActionSuggestNextGame)
	defer func() { op.finish(ctx, err) }()

	sess, err := s.begin(ctx, userID)
	if err != nil {
		return NextGameSuggestion{}, err
	}

	entries, err := s.loadLibrary(ctx, userID)
	if err != nil {
		return NextGameSuggestion{}, err
	}
	s.refreshDerived(ctx, userID, entries)

	userInput = strings.TrimSpace(userInput)
	sel := s.sampler.Select(ctx, sampling.NextGamePreset.Request(userID, userInput, entries))
	if len(sel.Games) == 0 {
		return NextGameSuggestion{}, &NotFoundError{Resource: "backlog or in-progress games", ID: userID}
	}
	op.details["strategy"] = string(sel.Strategy)
	op.details["sampled"] = len(sel.Games)

	matches := s.tasteMatches(ctx, userID, sel.Games)
	op.details["taste_matches"] = len(matches)

	route := routing.SelectModel(routing.TaskNextGame, sess.settings, s.availableModels(ctx, sess.generator))
	op.model = route.Model

	resp, err := sess.generator.GenerateText(ctx, provider.TextRequest{
		Model:        route.Model,
		SystemPrompt: nextGameSystemPrompt,
		UserPrompt:   nextGamePrompt(sel.Games, matches, userInput),
		MaxTokens:    route.MaxTokens,
		Temperature:  route.Temperature,
		Reasoning:    route.IsReasoningModel,
	})
	if err != nil {
		return NextGameSuggestion{}, &ProviderError{Op: "generate next game", Model: route.Model, Err: err}
	}
	op.cost = routing.EstimateTextCost(route.Model, resp.PromptTokens, resp.CompletionTokens)

	var out nextGameOutput
	if err := decodeOutput(resp, route.MaxTokens, &out); err != nil {
		return NextGameSuggestion{}, err
	}
	if strings.TrimSpace(out.GameName) == "" {
		return NextGameSuggestion{}, &ParseError{Err: errors.New("no game name in model output")}
	}

	name := strings.TrimSpace(out.GameName)
	suggestion := NextGame{
		GameName:       name,
		GameID:         library.IndexByName(sel.Games)[name],
		Reasoning:      out.Reasoning,
		EstimatedHours: out.EstimatedHours,
	}
	if suggestion.GameID == "" {
		logging.Ctx(ctx).Debug().Str("game", name).Msg("Suggested game is not among the candidates")
	}

	return NextGameSuggestion{
		Suggestion: suggestion,
		Cost:       op.cost,
		Model:      route.Model,
		Strategy:   sel.Strategy,
	}, nil
}

// tasteMatches ranks the sampled games against the user's preference
// vectors. Games without a stored embedding are skipped.
func (s *Service) tasteMatches(ctx context.Context, userID string, games []library.GameSummary) []learning.TasteMatch {
	prefs, err := s.learner.Preferences(ctx, userID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not load preferences")
		return nil
	}
	if len(prefs) == 0 {
		return nil
	}

	candidates := make([]learning.Candidate, 0, len(games))
	for _, g := range games {
		rec, err := s.store.GetGameEmbedding(ctx, g.ID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				logging.Ctx(ctx).Warn().Err(err).Str("game", g.ID).Msg("Could not load game embedding")
			}
			continue
		}
		candidates = append(candidates, learning.Candidate{ID: g.ID, Name: g.Name, Vector: rec.Vector})
	}

	matches := learning.RankByTaste(prefs, candidates)
	if len(matches) > tasteMatchCount {
		matches = matches[:tasteMatchCount]
	}
	return matches
}
