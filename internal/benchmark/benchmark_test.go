package benchmark

import (
	"strings"
	"testing"

	"github.com/khanglvm/game-curator/internal/routing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"four chars", "abcd", 1},
		{"five chars", "abcde", 2},
		{"forty chars", strings.Repeat("x", 40), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		wantMin int
		wantMax int
	}{
		{
			name:    "simple string",
			input:   "hello world",
			wantMin: 3,
			wantMax: 10,
		},
		{
			name: "json object",
			input: map[string]interface{}{
				"name":        "Hades",
				"description": "Escape the underworld",
			},
			wantMin: 10,
			wantMax: 30,
		},
		{
			name:    "nil",
			input:   nil,
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountTokens(tt.input)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("CountTokens() = %d, want between %d and %d", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		fullChars   int
		sampleChars int
		wantSavings int
		wantPercent float64
	}{
		{"quarter of the library", 4000, 1000, 750, 75.0},
		{"whole library sampled", 800, 800, 0, 0.0},
		{"empty library", 0, 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full := Prompt{Games: 100, Text: strings.Repeat("x", tt.fullChars)}
			sampled := Prompt{Games: 25, Text: strings.Repeat("x", tt.sampleChars)}

			r := Compare("gpt-4o", "semantic", full, sampled)

			if r.TokenSavings != tt.wantSavings {
				t.Errorf("TokenSavings = %d, want %d", r.TokenSavings, tt.wantSavings)
			}
			if r.SavingsPercent < tt.wantPercent-0.1 || r.SavingsPercent > tt.wantPercent+0.1 {
				t.Errorf("SavingsPercent = %.2f, want %.2f", r.SavingsPercent, tt.wantPercent)
			}
			if r.Full.Games != 100 || r.Sampled.Games != 25 {
				t.Errorf("game counts = %d/%d, want 100/25", r.Full.Games, r.Sampled.Games)
			}
		})
	}
}

func TestCompare_PricesAtModel(t *testing.T) {
	full := Prompt{Games: 10, Text: strings.Repeat("x", 4_000_000)}
	r := Compare("gpt-4o-mini", "quota", full, Prompt{})

	want := routing.EstimateTextCost("gpt-4o-mini", 1_000_000, 0)
	if r.Full.CostUSD != want {
		t.Errorf("Full.CostUSD = %v, want %v", r.Full.CostUSD, want)
	}
	if r.Sampled.CostUSD != 0 {
		t.Errorf("Sampled.CostUSD = %v, want 0", r.Sampled.CostUSD)
	}
}

func TestFormatResult(t *testing.T) {
	r := Compare("gpt-4o", "semantic", Prompt{Games: 40, Text: strings.Repeat("x", 400)}, Prompt{Games: 10, Text: strings.Repeat("x", 100)})
	out := FormatResult(r)

	for _, want := range []string{"PROMPT SIZE BENCHMARK", "gpt-4o", "semantic", "~100", "~25", "75.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatResult() missing %q:\n%s", want, out)
		}
	}
}
