package curator

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanglvm/game-curator/internal/duplicate"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/sampling"
)

// CostEstimate is the result of EstimateCost.
type CostEstimate struct {
	Task  routing.TaskType `json:"task"`
	Model string           `json:"model"`
	USD   float64          `json:"usd"`
}

// EstimateCost predicts the spend of one run of task from the user's router
// settings and typical token usage. No provider is called; every priced
// model counts as available.
func (s *Service) EstimateCost(ctx context.Context, userID string, task routing.TaskType) (CostEstimate, error) {
	if !task.Valid() {
		return CostEstimate{}, fmt.Errorf("unknown task type %q", task)
	}

	settings, err := s.store.GetAISettings(ctx, userID)
	if err != nil {
		return CostEstimate{}, fmt.Errorf("load AI settings: %w", err)
	}

	route := routing.SelectModel(task, settings, routing.PricedModels())
	return CostEstimate{
		Task:  task,
		Model: route.Model,
		USD:   routing.EstimateTaskCost(task, route.Model),
	}, nil
}

// CheckDuplicateCollection reports whether a proposed collection is close
// to one the user already has. A non-positive minSimilarity uses the
// default threshold.
func (s *Service) CheckDuplicateCollection(ctx context.Context, userID, name, description string, minSimilarity float64) (duplicate.Result, error) {
	if strings.TrimSpace(name) == "" {
		return duplicate.Result{}, fmt.Errorf("collection name is required")
	}
	res, err := s.duplicates.Check(ctx, userID, name, description, minSimilarity)
	if err != nil {
		return duplicate.Result{}, fmt.Errorf("duplicate check: %w", err)
	}
	return res, nil
}

// PromptPreview is the collection-suggestion prompt rendered for the whole
// library and for the sampled subset.
type PromptPreview struct {
	Model         string
	Strategy      sampling.Strategy
	FullGames     int
	FullPrompt    string
	SampledGames  int
	SampledPrompt string
}

// PreviewCollectionsPrompt renders both prompts without calling a provider,
// so the effect of sampling on prompt size can be measured.
func (s *Service) PreviewCollectionsPrompt(ctx context.Context, userID, theme string) (PromptPreview, error) {
	settings, err := s.store.GetAISettings(ctx, userID)
	if err != nil {
		return PromptPreview{}, fmt.Errorf("load AI settings: %w", err)
	}
	entries, err := s.loadLibrary(ctx, userID)
	if err != nil {
		return PromptPreview{}, err
	}

	theme = strings.TrimSpace(theme)
	sel := s.sampler.Select(ctx, sampling.CollectionsPreset.Request(userID, theme, entries))
	all := library.Summarize(entries)
	route := routing.SelectModel(routing.TaskCollectionSuggestions, settings, routing.PricedModels())

	return PromptPreview{
		Model:         route.Model,
		Strategy:      sel.Strategy,
		FullGames:     len(all),
		FullPrompt:    collectionsSystemPrompt + "\n\n" + collectionsPrompt(all, theme),
		SampledGames:  len(sel.Games),
		SampledPrompt: collectionsSystemPrompt + "\n\n" + collectionsPrompt(sel.Games, theme),
	}, nil
}
