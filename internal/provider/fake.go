package provider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// FakeEmbedder returns deterministic hash-seeded vectors. Vectors pins
// specific texts to chosen vectors.
type FakeEmbedder struct {
	Dim     int
	Name    string
	Vectors map[string][]float32
	Err     error

	mu         sync.Mutex
	singles    int
	batches    int
	batchTexts [][]string
}

// NewFakeEmbedder returns a fake producing dim-length vectors.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim, Name: "fake-embedding", Vectors: map[string][]float32{}}
}

func (f *FakeEmbedder) Model() string { return f.Name }

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.singles++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.vectorFor(text), nil
}

func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches++
	f.batchTexts = append(f.batchTexts, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

// Calls returns the number of single and batch calls made.
func (f *FakeEmbedder) Calls() (singles, batches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.singles, f.batches
}

// BatchTexts returns the texts sent in each batch call.
func (f *FakeEmbedder) BatchTexts() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batchTexts...)
}

func (f *FakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := f.Vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	return HashVector(text, f.Dim)
}

// HashVector derives a deterministic vector in [-1, 1] from text.
func HashVector(text string, dim int) []float32 {
	if dim <= 0 {
		dim = 8
	}
	out := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	for i := 0; i < dim; i++ {
		if i > 0 && i%8 == 0 {
			seed = sha256.Sum256(seed[:])
		}
		n := binary.LittleEndian.Uint32(seed[(i%8)*4:])
		out[i] = float32(n)/float32(^uint32(0))*2 - 1
	}
	return out
}

// FakeGenerator replays canned responses and records requests.
type FakeGenerator struct {
	Text     TextResponse
	TextErr  error
	Image    ImageResponse
	ImageErr error
	Models   []string
	ListErr  error

	mu            sync.Mutex
	TextRequests  []TextRequest
	ImageRequests []ImageRequest
}

func (f *FakeGenerator) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	f.mu.Lock()
	f.TextRequests = append(f.TextRequests, req)
	f.mu.Unlock()
	if f.TextErr != nil {
		return TextResponse{}, f.TextErr
	}
	return f.Text, nil
}

func (f *FakeGenerator) GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	f.mu.Lock()
	f.ImageRequests = append(f.ImageRequests, req)
	f.mu.Unlock()
	if f.ImageErr != nil {
		return ImageResponse{}, f.ImageErr
	}
	return f.Image, nil
}

func (f *FakeGenerator) ListModels(ctx context.Context) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Models, nil
}
