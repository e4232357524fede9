/*
Package benchmark measures how much sampling shrinks generation prompts.

It compares the input tokens of a prompt listing the whole library with the
prompt actually sent after sampling, and prices both at the routed model.

Token estimation is an approximation: ~4 characters per token for English
text, ~3 for JSON.
*/
package benchmark

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/routing"
)

// Prompt is a rendered user prompt and the number of games it lists.
type Prompt struct {
	Games int
	Text  string
}

// Footprint is the estimated size and input cost of one prompt.
type Footprint struct {
	Games   int     `json:"games"`
	Tokens  int     `json:"tokens"`
	CostUSD float64 `json:"costUsd"`
}

// BenchmarkResult contains comparison results.
type BenchmarkResult struct {
	Model          string    `json:"model"`
	Strategy       string    `json:"strategy"`
	Full           Footprint `json:"full"`
	Sampled        Footprint `json:"sampled"`
	TokenSavings   int       `json:"tokenSavings"`
	SavingsPercent float64   `json:"savingsPercent"`
}

// EstimateTokens approximates the token count of natural-language text.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// CountTokens estimates the token count of v encoded as JSON.
func CountTokens(v interface{}) int {
	if v == nil {
		return 0
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data) / 3
}

// Compare prices the full and sampled prompts for model.
func Compare(model, strategy string, full, sampled Prompt) *BenchmarkResult {
	r := &BenchmarkResult{
		Model:    model,
		Strategy: strategy,
		Full:     footprint(model, full),
		Sampled:  footprint(model, sampled),
	}
	r.TokenSavings = r.Full.Tokens - r.Sampled.Tokens
	if r.Full.Tokens > 0 {
		r.SavingsPercent = float64(r.TokenSavings) / float64(r.Full.Tokens) * 100
	}
	return r
}

func footprint(model string, p Prompt) Footprint {
	tokens := EstimateTokens(p.Text)
	return Footprint{
		Games:   p.Games,
		Tokens:  tokens,
		CostUSD: routing.EstimateTextCost(model, tokens, 0),
	}
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *BenchmarkResult) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║              PROMPT SIZE BENCHMARK RESULTS                   ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString(fmt.Sprintf("║  Model:    %-50s║\n", result.Model))
	sb.WriteString(fmt.Sprintf("║  Sampling: %-50s║\n", result.Strategy))
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║  📚 WHOLE LIBRARY                                            ║\n")
	sb.WriteString(fmt.Sprintf("║     Games:  %-49d║\n", result.Full.Games))
	sb.WriteString(fmt.Sprintf("║     Tokens: ~%-48d║\n", result.Full.Tokens))
	sb.WriteString(fmt.Sprintf("║     Input:  $%-48.5f║\n", result.Full.CostUSD))
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║  🎯 SAMPLED                                                  ║\n")
	sb.WriteString(fmt.Sprintf("║     Games:  %-49d║\n", result.Sampled.Games))
	sb.WriteString(fmt.Sprintf("║     Tokens: ~%-48d║\n", result.Sampled.Tokens))
	sb.WriteString(fmt.Sprintf("║     Input:  $%-48.5f║\n", result.Sampled.CostUSD))
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║  💰 SAVINGS                                                  ║\n")
	sb.WriteString(fmt.Sprintf("║     Tokens saved: ~%-42d║\n", result.TokenSavings))
	sb.WriteString(fmt.Sprintf("║     Reduction:    %-43s║\n", fmt.Sprintf("%.1f%%", result.SavingsPercent)))
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")

	return sb.String()
}
