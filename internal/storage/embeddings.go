package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/vector"
)

// GetGameEmbedding returns the stored embedding for a game, or ErrNotFound.
func (s *SQLiteStorage) GetGameEmbedding(ctx context.Context, gameID string) (EmbeddingRecord, error) {
	if err := s.ready(); err != nil {
		return EmbeddingRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rec       EmbeddingRecord
		blob      []byte
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT game_id, vector, text_hash, model, updated_at
		FROM game_embeddings
		WHERE game_id = ?
	`, gameID).Scan(&rec.EntityID, &blob, &rec.TextHash, &rec.Model, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EmbeddingRecord{}, ErrNotFound
	}
	if err != nil {
		return EmbeddingRecord{}, fmt.Errorf("failed to query game embedding: %w", err)
	}

	rec.Vector, err = vector.Decode(blob)
	if err != nil {
		return EmbeddingRecord{}, fmt.Errorf("corrupt embedding for game %s: %w", gameID, err)
	}
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

// UpsertGameEmbedding overwrites the game's embedding. Concurrent writers
// race safely; the last write wins.
func (s *SQLiteStorage) UpsertGameEmbedding(ctx context.Context, rec EmbeddingRecord) error {
	return s.upsertEmbedding(ctx, "game_embeddings", "game_id", rec)
}

// UpsertCollectionEmbedding overwrites the collection's embedding.
func (s *SQLiteStorage) UpsertCollectionEmbedding(ctx context.Context, rec EmbeddingRecord) error {
	return s.upsertEmbedding(ctx, "collection_embeddings", "collection_id", rec)
}

func (s *SQLiteStorage) upsertEmbedding(ctx context.Context, table, idColumn string, rec EmbeddingRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if rec.EntityID == "" || len(rec.Vector) == 0 {
		return fmt.Errorf("embedding record requires an entity id and a vector")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, vector, text_hash, model, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(%[2]s) DO UPDATE SET
			vector = excluded.vector,
			text_hash = excluded.text_hash,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, table, idColumn)

	if _, err := s.db.ExecContext(ctx, query,
		rec.EntityID, vector.Encode(rec.Vector), rec.TextHash, rec.Model, formatTime(updatedAt),
	); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	return nil
}

// GamesMissingEmbeddings lists the user's library games that have no
// stored embedding yet.
func (s *SQLiteStorage) GamesMissingEmbeddings(ctx context.Context, userID string) ([]library.Game, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.genres, g.description, g.series_name, g.release_year
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		LEFT JOIN game_embeddings ge ON ge.game_id = g.id
		WHERE ug.user_id = ? AND ge.game_id IS NULL
		ORDER BY ug.rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing embeddings: %w", err)
	}
	defer rows.Close()

	games := []library.Game{}
	for rows.Next() {
		var g library.Game
		var genres string
		if err := rows.Scan(&g.ID, &g.Name, &genres, &g.Description, &g.SeriesName, &g.ReleaseYear); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		if err := json.Unmarshal([]byte(genres), &g.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode genres for %s: %w", g.ID, err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SimilarGames ranks the user's own games by cosine similarity to q.Vector.
// Only games in the user's library (optionally filtered by status) are
// scored; results below q.MinSimilarity are dropped. Ties break by id so the
// order is stable.
func (s *SQLiteStorage) SimilarGames(ctx context.Context, q SimilarityQuery) ([]SimilarGame, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if q.UserID == "" {
		return nil, fmt.Errorf("similarity query requires a user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT g.id, g.name, ge.vector
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		JOIN game_embeddings ge ON ge.game_id = ug.game_id
		WHERE ug.user_id = ?
	`
	args := []interface{}{q.UserID}
	if len(q.Statuses) > 0 {
		query += " AND ug.status IN (" + strings.TrimSuffix(strings.Repeat("?,", len(q.Statuses)), ",") + ")"
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var hits []SimilarGame
	for rows.Next() {
		var (
			hit  SimilarGame
			blob []byte
		)
		if err := rows.Scan(&hit.GameID, &hit.Name, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			log := logging.Component("storage")
			log.Warn().Err(err).Str("game_id", hit.GameID).Msg("Skipping corrupt embedding")
			continue
		}
		if len(vec) != len(q.Vector) {
			continue
		}
		hit.Similarity = vector.Cosine(q.Vector, vec)
		if hit.Similarity >= q.MinSimilarity {
			hits = append(hits, hit)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].GameID < hits[j].GameID
	})

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	if hits == nil {
		hits = []SimilarGame{}
	}
	return hits, nil
}
