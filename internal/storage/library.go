package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/library"
)

// UpsertLibraryEntry writes the catalog game and the user's entry for it.
func (s *SQLiteStorage) UpsertLibraryEntry(ctx context.Context, entry library.Entry) error {
	if err := s.ready(); err != nil {
		return err
	}
	if entry.UserID == "" || entry.Game.ID == "" {
		return fmt.Errorf("library entry requires user and game ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	genres, err := json.Marshal(nonNilStrings(entry.Game.Genres))
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, name, genres, description, series_name, release_year, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			genres = excluded.genres,
			description = excluded.description,
			series_name = excluded.series_name,
			release_year = excluded.release_year,
			updated_at = excluded.updated_at
	`, entry.Game.ID, entry.Game.Name, string(genres), entry.Game.Description,
		entry.Game.SeriesName, entry.Game.ReleaseYear, now); err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	var rating sql.NullInt64
	if entry.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*entry.Rating), Valid: true}
	}
	status := entry.Status
	if !status.Valid() {
		status = library.StatusBacklog
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_games (user_id, game_id, status, rating, playtime_minutes, completion_pct, favorite, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, game_id) DO UPDATE SET
			status = excluded.status,
			rating = excluded.rating,
			playtime_minutes = excluded.playtime_minutes,
			completion_pct = excluded.completion_pct,
			favorite = excluded.favorite
	`, entry.UserID, entry.Game.ID, string(status), rating, entry.PlaytimeMinutes,
		entry.CompletionPct, boolToInt(entry.Favorite), now); err != nil {
		return fmt.Errorf("failed to upsert library entry: %w", err)
	}

	return tx.Commit()
}

const entryColumns = `
	g.id, g.name, g.genres, g.description, g.series_name, g.release_year,
	ug.user_id, ug.status, ug.rating, ug.playtime_minutes, ug.completion_pct, ug.favorite
`

// GetLibrary returns a user's library in insertion order.
func (s *SQLiteStorage) GetLibrary(ctx context.Context, userID string) ([]library.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ?
		ORDER BY ug.rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query library: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetOwnedGames returns the user's entries for gameIDs in the order given.
// Ids the user does not own are silently skipped.
func (s *SQLiteStorage) GetOwnedGames(ctx context.Context, userID string, gameIDs []string) ([]library.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(gameIDs) == 0 {
		return []library.Entry{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	args := make([]interface{}, 0, len(gameIDs)+1)
	args = append(args, userID)
	for _, id := range gameIDs {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(gameIDs)), ",")

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ? AND ug.game_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned games: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]library.Entry, len(entries))
	for _, e := range entries {
		byID[e.Game.ID] = e
	}
	ordered := make([]library.Entry, 0, len(entries))
	for _, id := range gameIDs {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func scanEntries(rows *sql.Rows) ([]library.Entry, error) {
	entries := []library.Entry{}
	for rows.Next() {
		var (
			e        library.Entry
			genres   string
			status   string
			rating   sql.NullInt64
			favorite int
		)
		if err := rows.Scan(
			&e.Game.ID, &e.Game.Name, &genres, &e.Game.Description, &e.Game.SeriesName, &e.Game.ReleaseYear,
			&e.UserID, &status, &rating, &e.PlaytimeMinutes, &e.CompletionPct, &favorite,
		); err != nil {
			return nil, fmt.Errorf("failed to scan library row: %w", err)
		}
		if err := json.Unmarshal([]byte(genres), &e.Game.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode genres for %s: %w", e.Game.ID, err)
		}
		e.Status = library.ParseStatus(status)
		if rating.Valid {
			r := int(rating.Int64)
			e.Rating = &r
		}
		e.Favorite = favorite == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
