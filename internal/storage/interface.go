/*
Package storage implements the curator's persistent datastore.

It keeps the catalog, each user's library, embedding records for games and
collections, preference records, per-user AI settings and provider
credentials, and the activity log in a single SQLite database using
modernc.org/sqlite (a pure Go, CGo-free implementation).

Similarity queries are always joined through the owning user's library or
collections, so they never return another user's entities.
*/
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/routing"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrDisabled is returned when the database could not be initialized.
	ErrDisabled = errors.New("storage is disabled")
)

// Storage defines the datastore operations used by the curator.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// Library
	UpsertLibraryEntry(ctx context.Context, entry library.Entry) error
	GetLibrary(ctx context.Context, userID string) ([]library.Entry, error)
	GetOwnedGames(ctx context.Context, userID string, gameIDs []string) ([]library.Entry, error)

	// Embeddings
	GetGameEmbedding(ctx context.Context, gameID string) (EmbeddingRecord, error)
	UpsertGameEmbedding(ctx context.Context, rec EmbeddingRecord) error
	GamesMissingEmbeddings(ctx context.Context, userID string) ([]library.Game, error)
	SimilarGames(ctx context.Context, q SimilarityQuery) ([]SimilarGame, error)

	// Collections
	CreateCollection(ctx context.Context, c Collection) error
	GetCollection(ctx context.Context, userID, collectionID string) (Collection, error)
	ListCollections(ctx context.Context, userID string) ([]Collection, error)
	SetCollectionCover(ctx context.Context, userID, collectionID, coverURL string) error
	UpsertCollectionEmbedding(ctx context.Context, rec EmbeddingRecord) error
	ListCollectionEmbeddings(ctx context.Context, userID string) ([]CollectionVector, error)

	// Preferences
	ListPreferences(ctx context.Context, userID string) ([]Preference, error)
	UpsertPreference(ctx context.Context, p Preference) error

	// Settings and credentials
	GetAISettings(ctx context.Context, userID string) (routing.Settings, error)
	SaveAISettings(ctx context.Context, userID string, settings routing.Settings) error
	GetProviderCredentials(ctx context.Context, userID, provider string) (ProviderCredentials, error)
	SaveProviderCredentials(ctx context.Context, creds ProviderCredentials) error

	// Activity log
	RecordActivity(ctx context.Context, a Activity) error
	ListActivity(ctx context.Context, userID string, limit int) ([]Activity, error)

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

var _ Storage = (*SQLiteStorage)(nil)

// NewStorage creates a storage instance for the database at dbPath.
// The file and its directory are created by Init.
func NewStorage(dbPath string) *SQLiteStorage {
	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: dbPath != "",
	}
}

// Init opens the database, applies pragmas and runs migrations.
//
// If initialization fails, storage is disabled and every subsequent
// operation returns ErrDisabled.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return ErrDisabled
	}

	var initErr error
	s.initOnce.Do(func() {
		log := logging.Component("storage")

		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			log.Warn().Err(initErr).Msg("Storage disabled")
			return
		}
		// One connection keeps per-connection pragmas in force.
		db.SetMaxOpenConns(1)
		s.db = db

		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				initErr = fmt.Errorf("apply pragma %q: %w", pragma, err)
				s.disable()
				log.Warn().Err(initErr).Msg("Storage disabled")
				return
			}
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.disable()
			log.Warn().Err(initErr).Msg("Storage disabled")
			return
		}
	})

	return initErr
}

func (s *SQLiteStorage) disable() {
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	s.enabled = false
}

// ready reports ErrDisabled when the database is unusable.
func (s *SQLiteStorage) ready() error {
	if !s.enabled || s.db == nil {
		return ErrDisabled
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}
