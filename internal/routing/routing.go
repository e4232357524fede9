/*
Package routing selects a generation model and its parameters per task.

Selection precedence:
 1. A user override for the task wins outright.
 2. With smart routing enabled (the default), the task's primary model is
    used if available, otherwise the first available declared fallback.
 3. Otherwise the user's general default model is used.

Reasoning-family models reject a temperature parameter, so any selection that
lands on one resolves temperature to unset.
*/
package routing

import (
	"regexp"
	"strings"
)

// TaskType identifies a generation task.
type TaskType string

const (
	TaskCollectionSuggestions TaskType = "collection_suggestions"
	TaskNextGame              TaskType = "next_game"
	TaskCoverImage            TaskType = "cover_image"
)

// Valid reports whether t names a routed task.
func (t TaskType) Valid() bool {
	_, ok := DefaultRoutes[t]
	return ok
}

// Route is the static routing entry for one task.
type Route struct {
	Primary     string
	Fallbacks   []string
	MaxTokens   int      // 0 when the task has no token budget (images)
	Temperature *float64 // nil leaves the provider default
}

// DefaultRoutes is the static per-task routing table.
var DefaultRoutes = map[TaskType]Route{
	TaskCollectionSuggestions: {
		Primary:     "gpt-4o",
		Fallbacks:   []string{"gpt-4o-mini", "gpt-4.1-mini"},
		MaxTokens:   4000,
		Temperature: Float(0.7),
	},
	TaskNextGame: {
		Primary:     "gpt-4o-mini",
		Fallbacks:   []string{"gpt-4o"},
		MaxTokens:   1500,
		Temperature: Float(0.8),
	},
	TaskCoverImage: {
		Primary:   "dall-e-3",
		Fallbacks: []string{"gpt-image-1", "dall-e-2"},
	},
}

// Override pins a task to a specific model.
type Override struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Settings are a user's routing preferences.
type Settings struct {
	DefaultModel       string                `json:"defaultModel"`
	DefaultMaxTokens   int                   `json:"defaultMaxTokens"`
	DefaultTemperature *float64              `json:"defaultTemperature,omitempty"`
	SmartRouting       *bool                 `json:"smartRouting,omitempty"`
	Overrides          map[TaskType]Override `json:"overrides,omitempty"`
}

// DefaultSettings returns the settings used when a user has saved none.
func DefaultSettings() Settings {
	return Settings{
		DefaultModel:       "gpt-4o-mini",
		DefaultMaxTokens:   2000,
		DefaultTemperature: Float(0.7),
	}
}

// SmartRoutingEnabled reports the smart routing flag; unset means enabled.
func (s Settings) SmartRoutingEnabled() bool {
	return s.SmartRouting == nil || *s.SmartRouting
}

// Source records which precedence step produced a selection.
type Source string

const (
	SourceOverride Source = "override"
	SourceSmart    Source = "smart"
	SourceDefault  Source = "default"
)

// Selection is the resolved model and parameters for one call.
type Selection struct {
	Model            string
	MaxTokens        int
	Temperature      *float64
	IsReasoningModel bool
	Source           Source
}

var reasoningPattern = regexp.MustCompile(`^o[1-9]([-_].*)?$`)

// IsReasoningModel reports whether model belongs to a family that rejects
// a temperature parameter (o1, o3-mini, o4-mini, gpt-5...).
func IsReasoningModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	return reasoningPattern.MatchString(m) || strings.HasPrefix(m, "gpt-5")
}

// SelectModel resolves the model for task. It performs no I/O.
func SelectModel(task TaskType, settings Settings, available []string) Selection {
	route, hasRoute := DefaultRoutes[task]

	if o, ok := settings.Overrides[task]; ok && strings.TrimSpace(o.Model) != "" {
		temp := o.Temperature
		if temp == nil {
			temp = firstTemperature(route.Temperature, settings.DefaultTemperature)
		}
		return finalize(Selection{
			Model:       strings.TrimSpace(o.Model),
			MaxTokens:   firstPositive(route.MaxTokens, settings.DefaultMaxTokens),
			Temperature: temp,
			Source:      SourceOverride,
		})
	}

	if hasRoute && settings.SmartRoutingEnabled() {
		avail := make(map[string]bool, len(available))
		for _, m := range available {
			avail[m] = true
		}
		for _, candidate := range append([]string{route.Primary}, route.Fallbacks...) {
			if avail[candidate] {
				return finalize(Selection{
					Model:       candidate,
					MaxTokens:   firstPositive(route.MaxTokens, settings.DefaultMaxTokens),
					Temperature: firstTemperature(route.Temperature, settings.DefaultTemperature),
					Source:      SourceSmart,
				})
			}
		}
	}

	model := settings.DefaultModel
	if model == "" {
		model = DefaultSettings().DefaultModel
	}
	if task == TaskCoverImage && hasRoute {
		// A chat default cannot draw; image tasks fall back to the route primary.
		model = route.Primary
	}
	return finalize(Selection{
		Model:       model,
		MaxTokens:   settings.DefaultMaxTokens,
		Temperature: settings.DefaultTemperature,
		Source:      SourceDefault,
	})
}

func finalize(sel Selection) Selection {
	sel.IsReasoningModel = IsReasoningModel(sel.Model)
	if sel.IsReasoningModel {
		sel.Temperature = nil
	}
	return sel
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstTemperature(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
