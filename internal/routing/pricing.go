package routing

import "sort"

// Price is a per-model rate card in USD.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
	PerImage         float64
}

// Pricing is the static price table used for cost estimates.
var Pricing = map[string]Price{
	"gpt-4o":                 {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":            {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1":                {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini":           {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"o1":                     {InputPerMillion: 15.00, OutputPerMillion: 60.00},
	"o3-mini":                {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"o4-mini":                {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"gpt-5":                  {InputPerMillion: 1.25, OutputPerMillion: 10.00},
	"gpt-5-mini":             {InputPerMillion: 0.25, OutputPerMillion: 2.00},
	"text-embedding-3-small": {InputPerMillion: 0.02},
	"text-embedding-3-large": {InputPerMillion: 0.13},
	"dall-e-2":               {PerImage: 0.020},
	"dall-e-3":               {PerImage: 0.040},
	"gpt-image-1":            {PerImage: 0.042},
}

// unknown models are priced like the collections primary so estimates err high.
var fallbackPrice = Pricing["gpt-4o"]

var fallbackImagePrice = Pricing["dall-e-3"]

// PriceFor returns the rate card for model and whether it was listed.
func PriceFor(model string) (Price, bool) {
	p, ok := Pricing[model]
	return p, ok
}

// EstimateTextCost prices a completion from its token counts.
func EstimateTextCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := Pricing[model]
	if !ok || (p.InputPerMillion == 0 && p.OutputPerMillion == 0) {
		p = fallbackPrice
	}
	return float64(inputTokens)/1e6*p.InputPerMillion + float64(outputTokens)/1e6*p.OutputPerMillion
}

// EstimateImageCost prices n generated images.
func EstimateImageCost(model string, n int) float64 {
	p, ok := Pricing[model]
	if !ok || p.PerImage == 0 {
		p = fallbackImagePrice
	}
	return float64(n) * p.PerImage
}

// PricedModels lists every model in the price table, sorted.
func PricedModels() []string {
	models := make([]string, 0, len(Pricing))
	for m := range Pricing {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Usage is an assumed token/image footprint for a task.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Images       int
}

// AssumedUsage is the static footprint behind pre-flight cost estimates.
var AssumedUsage = map[TaskType]Usage{
	TaskCollectionSuggestions: {InputTokens: 6000, OutputTokens: 2500},
	TaskNextGame:              {InputTokens: 3000, OutputTokens: 600},
	TaskCoverImage:            {Images: 1},
}

// EstimateTaskCost estimates the USD cost of running task on model.
func EstimateTaskCost(task TaskType, model string) float64 {
	u := AssumedUsage[task]
	if u.Images > 0 {
		return EstimateImageCost(model, u.Images)
	}
	return EstimateTextCost(model, u.InputTokens, u.OutputTokens)
}
