/*
Package duplicate flags a proposed collection that is semantically close to
one the user already has.
*/
package duplicate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/khanglvm/game-curator/internal/embedding"
	"github.com/khanglvm/game-curator/internal/storage"
	"github.com/khanglvm/game-curator/internal/vector"
)

const (
	// DefaultMinSimilarity is the duplicate threshold when the caller gives none.
	DefaultMinSimilarity = 0.85

	// MaxSimilar caps the reported similar collections.
	MaxSimilar = 5
)

// Embedder embeds collection text through the cached pipeline.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Store lists the collection embeddings owned by a user.
type Store interface {
	ListCollectionEmbeddings(ctx context.Context, userID string) ([]storage.CollectionVector, error)
}

// SimilarCollection is an existing collection close to the candidate.
type SimilarCollection struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate        bool                `json:"isDuplicate"`
	SimilarCollections []SimilarCollection `json:"similarCollections"`
}

// Detector compares candidate collections against the user's own.
type Detector struct {
	embedder Embedder
	store    Store
}

// NewDetector creates a detector.
func NewDetector(embedder Embedder, store Store) *Detector {
	return &Detector{embedder: embedder, store: store}
}

// Check embeds name and description and compares the vector with every
// collection the user owns. Matches at or above minSimilarity are returned
// best first. A non-positive minSimilarity uses DefaultMinSimilarity.
func (d *Detector) Check(ctx context.Context, userID, name, description string, minSimilarity float64) (Result, error) {
	if userID == "" {
		return Result{}, errors.New("duplicate check requires a user id")
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	candidate, err := d.embedder.EmbedText(ctx, embedding.CollectionText(name, description))
	if err != nil {
		return Result{}, fmt.Errorf("embed collection: %w", err)
	}

	existing, err := d.store.ListCollectionEmbeddings(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("list collection embeddings: %w", err)
	}

	similar := make([]SimilarCollection, 0, MaxSimilar)
	for _, c := range existing {
		sim := vector.Cosine(candidate, c.Vector)
		if sim < minSimilarity {
			continue
		}
		similar = append(similar, SimilarCollection{
			ID:          c.CollectionID,
			Name:        c.Name,
			Description: c.Description,
			Similarity:  sim,
		})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].ID < similar[j].ID
	})
	if len(similar) > MaxSimilar {
		similar = similar[:MaxSimilar]
	}

	return Result{
		IsDuplicate:        len(similar) > 0 && similar[0].Similarity >= minSimilarity,
		SimilarCollections: similar,
	}, nil
}
