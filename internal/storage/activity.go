package storage

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/khanglvm/game-curator/internal/logging"
)

// RecordActivity appends an entry to the activity log. A missing ID or
// timestamp is filled in.
func (s *SQLiteStorage) RecordActivity(ctx context.Context, a Activity) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	details := []byte("{}")
	if len(a.Details) > 0 {
		var err error
		if details, err = json.Marshal(a.Details); err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, user_id, action, status, model, cost_usd, duration_ms, error, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Action, a.Status, a.Model, a.CostUSD, a.DurationMS, a.Error,
		string(details), formatTime(a.CreatedAt)); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns the user's most recent activity entries.
func (s *SQLiteStorage) ListActivity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action, status, model, cost_usd, duration_ms, error, details, created_at
		FROM activity_log
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	entries := []Activity{}
	for rows.Next() {
		var (
			a         Activity
			details   string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Status, &a.Model, &a.CostUSD,
			&a.DurationMS, &a.Error, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
				log := logging.Component("storage")
				log.Warn().Err(err).Str("id", a.ID).Msg("Failed to decode activity details")
			}
		}
		a.CreatedAt = parseTime(createdAt)
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
