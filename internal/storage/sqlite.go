package storage

import (
	"fmt"
	"time"

	"github.com/khanglvm/game-curator/internal/logging"
)

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes database schema migrations in order.
func (s *SQLiteStorage) runMigrations() error {
	if s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "library_schema", up: s.migration001Library},
		{version: 2, name: "embeddings_schema", up: s.migration002Embeddings},
		{version: 3, name: "user_settings_schema", up: s.migration003UserSettings},
	}

	for _, m := range migrations {
		if version < m.version {
			log := logging.Component("storage")
			log.Info().Int("version", m.version).Str("name", m.name).Msg("Running migration")
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

func (s *SQLiteStorage) execAll(stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w (statement: %.60s)", err, stmt)
		}
	}
	return nil
}

// migration001Library creates the catalog, libraries and collections.
func (s *SQLiteStorage) migration001Library() error {
	return s.execAll([]string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			genres TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			series_name TEXT NOT NULL DEFAULT '',
			release_year INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_games (
			user_id TEXT NOT NULL,
			game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			rating INTEGER,
			playtime_minutes INTEGER NOT NULL DEFAULT 0,
			completion_pct INTEGER NOT NULL DEFAULT 0,
			favorite INTEGER NOT NULL DEFAULT 0,
			added_at TEXT NOT NULL,
			PRIMARY KEY (user_id, game_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_games_status ON user_games(user_id, status)`,
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cover_url TEXT NOT NULL DEFAULT '',
			game_ids TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_user ON collections(user_id)`,
	})
}

// migration002Embeddings creates the embedding and preference tables.
func (s *SQLiteStorage) migration002Embeddings() error {
	return s.execAll([]string{
		`CREATE TABLE IF NOT EXISTS game_embeddings (
			game_id TEXT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
			vector BLOB NOT NULL,
			text_hash TEXT NOT NULL,
			model TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collection_embeddings (
			collection_id TEXT PRIMARY KEY REFERENCES collections(id) ON DELETE CASCADE,
			vector BLOB NOT NULL,
			text_hash TEXT NOT NULL,
			model TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT NOT NULL,
			preference_type TEXT NOT NULL,
			vector BLOB NOT NULL,
			confidence REAL NOT NULL,
			sample_size INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, preference_type)
		)`,
	})
}

// migration003UserSettings creates settings, credentials and the activity log.
func (s *SQLiteStorage) migration003UserSettings() error {
	return s.execAll([]string{
		`CREATE TABLE IF NOT EXISTS user_ai_settings (
			user_id TEXT PRIMARY KEY,
			settings TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provider_credentials (
			user_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			api_key TEXT NOT NULL,
			base_url TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			cost_usd REAL NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_user_time ON activity_log(user_id, created_at DESC)`,
	})
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		log := logging.Component("storage")
		log.Warn().Err(err).Str("value", s).Msg("Failed to parse timestamp")
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
