package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/vector"
)

// CreateCollection inserts a new collection.
func (s *SQLiteStorage) CreateCollection(ctx context.Context, c Collection) error {
	if err := s.ready(); err != nil {
		return err
	}
	if c.ID == "" || c.UserID == "" || c.Name == "" {
		return fmt.Errorf("collection requires id, user id and name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gameIDs, err := json.Marshal(nonNilStrings(c.GameIDs))
	if err != nil {
		return fmt.Errorf("failed to encode game ids: %w", err)
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, user_id, name, description, cover_url, game_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.Description, c.CoverURL, string(gameIDs), formatTime(createdAt)); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

// GetCollection returns one of the user's collections, or ErrNotFound.
func (s *SQLiteStorage) GetCollection(ctx context.Context, userID, collectionID string) (Collection, error) {
	if err := s.ready(); err != nil {
		return Collection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, cover_url, game_ids, created_at
		FROM collections
		WHERE id = ? AND user_id = ?
	`, collectionID, userID)

	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, ErrNotFound
	}
	return c, err
}

// ListCollections returns the user's collections, oldest first.
func (s *SQLiteStorage) ListCollections(ctx context.Context, userID string) ([]Collection, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, cover_url, game_ids, created_at
		FROM collections
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	collections := []Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCollection(row rowScanner) (Collection, error) {
	var (
		c         Collection
		gameIDs   string
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CoverURL, &gameIDs, &createdAt); err != nil {
		return Collection{}, err
	}
	if err := json.Unmarshal([]byte(gameIDs), &c.GameIDs); err != nil {
		return Collection{}, fmt.Errorf("failed to decode game ids for %s: %w", c.ID, err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// SetCollectionCover records the cover image URL of a user's collection.
func (s *SQLiteStorage) SetCollectionCover(ctx context.Context, userID, collectionID, coverURL string) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE collections SET cover_url = ? WHERE id = ? AND user_id = ?",
		coverURL, collectionID, userID)
	if err != nil {
		return fmt.Errorf("failed to update collection cover: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCollectionEmbeddings returns the embeddings of the user's own
// collections. Collections without an embedding are omitted.
func (s *SQLiteStorage) ListCollectionEmbeddings(ctx context.Context, userID string) ([]CollectionVector, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, ce.vector
		FROM collections c
		JOIN collection_embeddings ce ON ce.collection_id = c.id
		WHERE c.user_id = ?
		ORDER BY c.created_at, c.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection embeddings: %w", err)
	}
	defer rows.Close()

	out := []CollectionVector{}
	for rows.Next() {
		var (
			cv   CollectionVector
			blob []byte
		)
		if err := rows.Scan(&cv.CollectionID, &cv.Name, &cv.Description, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan collection embedding: %w", err)
		}
		if cv.Vector, err = vector.Decode(blob); err != nil {
			log := logging.Component("storage")
			log.Warn().Err(err).Str("collection_id", cv.CollectionID).Msg("Skipping corrupt embedding")
			continue
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
