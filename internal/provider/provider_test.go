package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/vector"
)

func TestHashVector_Deterministic(t *testing.T) {
	a := HashVector("Hades", 16)
	b := HashVector("Hades", 16)
	c := HashVector("Celeste", 16)

	if len(a) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(a))
	}
	if vector.Cosine(a, b) < 0.9999 {
		t.Error("same text should produce the same vector")
	}
	if vector.Cosine(a, c) > 0.9999 {
		t.Error("different text should produce a different vector")
	}
	for _, v := range a {
		if v < -1 || v > 1 {
			t.Fatalf("component %v outside [-1, 1]", v)
		}
	}
}

func TestFakeEmbedder_PinnedVectors(t *testing.T) {
	f := NewFakeEmbedder(4)
	f.Vectors["pinned"] = []float32{1, 0, 0, 0}

	got, err := f.EmbedBatch(context.Background(), []string{"pinned", "other"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if got[0][0] != 1 || len(got[1]) != 4 {
		t.Errorf("unexpected vectors %v", got)
	}
	if _, batches := f.Calls(); batches != 1 {
		t.Errorf("expected 1 batch call, got %d", batches)
	}
}

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	inner := NewFakeEmbedder(4)
	inner.Err = errors.New("boom")
	guarded := GuardEmbedder(inner, NewBreaker("test-embedder-open", testBreakerConfig()))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := guarded.Embed(ctx, "x"); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := guarded.Embed(ctx, "x")
	if err == nil {
		t.Fatal("expected open circuit error")
	}
	if singles, _ := inner.Calls(); singles != 2 {
		t.Errorf("open circuit should not reach the provider; got %d calls", singles)
	}
}

func TestBreaker_PassesResults(t *testing.T) {
	gen := &FakeGenerator{Text: TextResponse{Text: "ok", FinishReason: "stop"}, Models: []string{"gpt-4o"}}
	guarded := GuardGenerator(gen, NewBreaker("test-generator-pass", testBreakerConfig()))

	resp, err := guarded.GenerateText(context.Background(), TextRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if resp.Text != "ok" || resp.Truncated() {
		t.Errorf("unexpected response %+v", resp)
	}

	models, err := guarded.ListModels(context.Background())
	if err != nil || len(models) != 1 {
		t.Errorf("ListModels = %v, %v", models, err)
	}
}

func TestTextResponse_Truncated(t *testing.T) {
	if !(TextResponse{FinishReason: FinishReasonLength}).Truncated() {
		t.Error("length finish reason should be truncated")
	}
}
