package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/routing"
)

// GetAISettings returns the user's routing settings, or the defaults when
// none are saved.
func (s *SQLiteStorage) GetAISettings(ctx context.Context, userID string) (routing.Settings, error) {
	if err := s.ready(); err != nil {
		return routing.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT settings FROM user_ai_settings WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return routing.DefaultSettings(), nil
	}
	if err != nil {
		return routing.Settings{}, fmt.Errorf("failed to query ai settings: %w", err)
	}

	settings := routing.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return routing.Settings{}, fmt.Errorf("failed to decode ai settings: %w", err)
	}
	return settings, nil
}

// SaveAISettings stores the user's routing settings.
func (s *SQLiteStorage) SaveAISettings(ctx context.Context, userID string, settings routing.Settings) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode ai settings: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_ai_settings (user_id, settings, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			settings = excluded.settings,
			updated_at = excluded.updated_at
	`, userID, string(raw), formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to save ai settings: %w", err)
	}
	return nil
}

// GetProviderCredentials returns the user's stored credentials for provider,
// or ErrNotFound.
func (s *SQLiteStorage) GetProviderCredentials(ctx context.Context, userID, provider string) (ProviderCredentials, error) {
	if err := s.ready(); err != nil {
		return ProviderCredentials{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds := ProviderCredentials{UserID: userID, Provider: normalizeProvider(provider)}
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT api_key, base_url, active
		FROM provider_credentials
		WHERE user_id = ? AND provider = ?
	`, userID, creds.Provider).Scan(&creds.APIKey, &creds.BaseURL, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return ProviderCredentials{}, ErrNotFound
	}
	if err != nil {
		return ProviderCredentials{}, fmt.Errorf("failed to query provider credentials: %w", err)
	}
	creds.Active = active == 1
	return creds, nil
}

// SaveProviderCredentials stores credentials for one provider.
func (s *SQLiteStorage) SaveProviderCredentials(ctx context.Context, creds ProviderCredentials) error {
	if err := s.ready(); err != nil {
		return err
	}
	if creds.UserID == "" || creds.Provider == "" {
		return fmt.Errorf("credentials require user id and provider")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO provider_credentials (user_id, provider, api_key, base_url, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			api_key = excluded.api_key,
			base_url = excluded.base_url,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, creds.UserID, normalizeProvider(creds.Provider), creds.APIKey, creds.BaseURL,
		boolToInt(creds.Active), formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to save provider credentials: %w", err)
	}
	return nil
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
