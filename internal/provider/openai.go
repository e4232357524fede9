package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/khanglvm/game-curator/internal/config"
)

// DefaultImageSize is used when an image request leaves Size empty.
const DefaultImageSize = openai.CreateImageSize1024x1024

// Client is an OpenAI-compatible embedding and generation client.
type Client struct {
	api            *openai.Client
	embeddingModel string
	dimensions     int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEmbeddingModel sets the embedding model and optional output dimensions.
func WithEmbeddingModel(model string, dimensions int) ClientOption {
	return func(c *Client) {
		c.embeddingModel = model
		c.dimensions = dimensions
	}
}

// NewClient builds a client from validated provider credentials.
func NewClient(pc config.ProviderConfig, opts ...ClientOption) *Client {
	cfg := openai.DefaultConfig(pc.APIKey())
	if pc.BaseURL() != "" {
		cfg.BaseURL = pc.BaseURL()
	}
	c := &Client{
		api:            openai.NewClientWithConfig(cfg),
		embeddingModel: string(openai.SmallEmbedding3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the embedding model id.
func (c *Client) Model() string {
	return c.embeddingModel
}

// Embed embeds a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// GenerateText runs one system+user chat completion.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	creq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}
	if req.Reasoning {
		creq.MaxCompletionTokens = req.MaxTokens
	} else {
		creq.MaxTokens = req.MaxTokens
		if req.Temperature != nil {
			creq.Temperature = float32(*req.Temperature)
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return TextResponse{}, fmt.Errorf("openai chat completion (%s): %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return TextResponse{}, errors.New("openai chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return TextResponse{
		Text:             choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// GenerateImage creates one image and returns its decoded bytes.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	size := req.Size
	if size == "" {
		size = DefaultImageSize
	}
	ireq := openai.ImageRequest{
		Prompt: req.Prompt,
		Model:  req.Model,
		N:      1,
		Size:   size,
	}
	// gpt-image-1 always returns base64 and rejects the parameter.
	if req.Model != "gpt-image-1" {
		ireq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := c.api.CreateImage(ctx, ireq)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("openai image (%s): %w", req.Model, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return ImageResponse{}, errors.New("openai image returned no data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return ImageResponse{}, fmt.Errorf("decode image payload: %w", err)
	}
	return ImageResponse{Data: data, MediaType: "image/png"}, nil
}

// ListModels returns the model ids the endpoint exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
