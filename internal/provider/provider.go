/*
Package provider adapts external AI services to the curator.

Client talks to any OpenAI-compatible endpoint through go-openai and serves
both embeddings and generation. Breaker wraps either role with a gobreaker
circuit breaker. FakeEmbedder and FakeGenerator are deterministic stand-ins
for tests.
*/
package provider

import "context"

// FinishReasonLength marks a completion cut off by the token budget.
const FinishReasonLength = "length"

// TextRequest is a single chat completion request.
type TextRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil leaves the provider default
	Reasoning    bool     // reasoning models take a completion-token budget
}

// TextResponse is the completion text plus accounting.
type TextResponse struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Truncated reports whether the output hit the token limit.
func (r TextResponse) Truncated() bool {
	return r.FinishReason == FinishReasonLength
}

// ImageRequest asks for one generated image.
type ImageRequest struct {
	Model  string
	Prompt string
	Size   string
}

// ImageResponse carries the raw image bytes.
type ImageResponse struct {
	Data      []byte
	MediaType string
}

// Generator is the text and image generation contract.
type Generator interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResponse, error)
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}
