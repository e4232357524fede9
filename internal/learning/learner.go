package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/embedding"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/storage"
)

// StalenessWindow is how old the newest preference record may get before
// the user's preferences are regenerated.
const StalenessWindow = 7 * 24 * time.Hour

// ShouldRegenerate reports whether a user's preferences are due.
// Only the newest record is inspected.
func ShouldRegenerate(prefs []storage.Preference, now time.Time) bool {
	if len(prefs) == 0 {
		return true
	}
	newest := prefs[0].UpdatedAt
	for _, p := range prefs[1:] {
		if p.UpdatedAt.After(newest) {
			newest = p.UpdatedAt
		}
	}
	return now.Sub(newest) > StalenessWindow
}

// Embedder embeds signal text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Store persists preference records.
type Store interface {
	ListPreferences(ctx context.Context, userID string) ([]storage.Preference, error)
	UpsertPreference(ctx context.Context, p storage.Preference) error
}

// Learner refreshes stored preference vectors.
type Learner struct {
	embedder Embedder
	store    Store
	now      func() time.Time
	log      zerolog.Logger
}

// NewLearner creates a learner. A nil clock uses time.Now.
func NewLearner(embedder Embedder, store Store, now func() time.Time) *Learner {
	if now == nil {
		now = time.Now
	}
	return &Learner{
		embedder: embedder,
		store:    store,
		now:      now,
		log:      logging.Component("learning"),
	}
}

// Refresh regenerates the user's preference records when they are stale,
// or always when force is set. It returns how many records were written.
func (l *Learner) Refresh(ctx context.Context, userID string, entries []library.Entry, force bool) (int, error) {
	if !force {
		prefs, err := l.store.ListPreferences(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("list preferences: %w", err)
		}
		if !ShouldRegenerate(prefs, l.now()) {
			return 0, nil
		}
	}

	signals := DeriveSignals(entries)
	written := 0
	for _, sig := range signals {
		vec, err := l.embedder.EmbedText(ctx, embedding.SignalText(sig.Games))
		if err != nil {
			return written, fmt.Errorf("embed %s signal: %w", sig.Type, err)
		}

		err = l.store.UpsertPreference(ctx, storage.Preference{
			UserID:     userID,
			Type:       string(sig.Type),
			Vector:     vec,
			Confidence: sig.Weight,
			SampleSize: sig.SampleSize(),
			UpdatedAt:  l.now(),
		})
		if err != nil {
			return written, fmt.Errorf("store %s signal: %w", sig.Type, err)
		}
		written++
	}

	l.log.Debug().
		Str("user", userID).
		Int("signals", len(signals)).
		Int("written", written).
		Msg("Preferences refreshed")
	return written, nil
}

// Preferences returns the user's stored preference records.
func (l *Learner) Preferences(ctx context.Context, userID string) ([]storage.Preference, error) {
	return l.store.ListPreferences(ctx, userID)
}
