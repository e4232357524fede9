package provider

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/metrics"
)

// Breaker guards provider calls with a circuit breaker. An open circuit
// fails fast instead of spending a request timeout on a dead endpoint.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewBreaker creates a named breaker tuned by cfg.
func NewBreaker(name string, cfg config.BreakerConfig) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= cfg.FailureRatio
			if trip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Breaker{cb: cb, name: name}
}

// State returns the current breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%s unavailable: %w", b.name, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Embedder is the embedding contract guarded by GuardEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type guardedEmbedder struct {
	inner Embedder
	b     *Breaker
}

// GuardEmbedder wraps an embedder with b.
func GuardEmbedder(inner Embedder, b *Breaker) Embedder {
	return &guardedEmbedder{inner: inner, b: b}
}

func (g *guardedEmbedder) Model() string { return g.inner.Model() }

func (g *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return castResult[[]float32](g.b.execute(func() (interface{}, error) {
		return g.inner.Embed(ctx, text)
	}))
}

func (g *guardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return castResult[[][]float32](g.b.execute(func() (interface{}, error) {
		return g.inner.EmbedBatch(ctx, texts)
	}))
}

type guardedGenerator struct {
	inner Generator
	b     *Breaker
}

// GuardGenerator wraps a generator with b.
func GuardGenerator(inner Generator, b *Breaker) Generator {
	return &guardedGenerator{inner: inner, b: b}
}

func (g *guardedGenerator) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	return castResult[TextResponse](g.b.execute(func() (interface{}, error) {
		return g.inner.GenerateText(ctx, req)
	}))
}

func (g *guardedGenerator) GenerateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	return castResult[ImageResponse](g.b.execute(func() (interface{}, error) {
		return g.inner.GenerateImage(ctx, req)
	}))
}

func (g *guardedGenerator) ListModels(ctx context.Context) ([]string, error) {
	return castResult[[]string](g.b.execute(func() (interface{}, error) {
		return g.inner.ListModels(ctx)
	}))
}
