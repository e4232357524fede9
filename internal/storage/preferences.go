package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/vector"
)

// ListPreferences returns all of a user's preference records, most recently
// updated first.
func (s *SQLiteStorage) ListPreferences(ctx context.Context, userID string) ([]Preference, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, preference_type, vector, confidence, sample_size, updated_at
		FROM user_preferences
		WHERE user_id = ?
		ORDER BY updated_at DESC, preference_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := []Preference{}
	for rows.Next() {
		var (
			p         Preference
			blob      []byte
			updatedAt string
		)
		if err := rows.Scan(&p.UserID, &p.Type, &blob, &p.Confidence, &p.SampleSize, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		if p.Vector, err = vector.Decode(blob); err != nil {
			log := logging.Component("storage")
			log.Warn().Err(err).Str("type", p.Type).Msg("Skipping corrupt preference vector")
			continue
		}
		p.UpdatedAt = parseTime(updatedAt)
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// UpsertPreference overwrites the (user, type) preference record.
func (s *SQLiteStorage) UpsertPreference(ctx context.Context, p Preference) error {
	if err := s.ready(); err != nil {
		return err
	}
	if p.UserID == "" || p.Type == "" {
		return fmt.Errorf("preference requires user id and type")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("preference confidence %v outside [0, 1]", p.Confidence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, preference_type, vector, confidence, sample_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, preference_type) DO UPDATE SET
			vector = excluded.vector,
			confidence = excluded.confidence,
			sample_size = excluded.sample_size,
			updated_at = excluded.updated_at
	`, p.UserID, p.Type, vector.Encode(p.Vector), p.Confidence, p.SampleSize, formatTime(updatedAt)); err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}
