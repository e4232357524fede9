package storage

import "time"

// EmbeddingRecord is the single stored vector for a game or collection.
// A content change yields a new TextHash; the old vector stays until the
// next successful upsert overwrites it.
type EmbeddingRecord struct {
	// EntityID is the game or collection id.
	EntityID string `json:"entity_id"`

	// Vector is the embedding, stored as a little-endian float32 blob.
	Vector []float32 `json:"vector"`

	// TextHash is the hash of the canonical text that produced Vector.
	TextHash string `json:"text_hash"`

	// Model is the embedding model id.
	Model string `json:"model"`

	UpdatedAt time.Time `json:"updated_at"`
}

// SimilarityQuery scopes a nearest-neighbour search to one user's library.
type SimilarityQuery struct {
	UserID        string
	Vector        []float32
	Statuses      []string // empty means every status
	MinSimilarity float64
	Limit         int
}

// SimilarGame is one ranked similarity hit.
type SimilarGame struct {
	GameID     string  `json:"game_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Collection is a user-curated group of games.
type Collection struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	GameIDs     []string  `json:"game_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectionVector is a collection embedding joined with its owner's metadata.
type CollectionVector struct {
	CollectionID string
	Name         string
	Description  string
	Vector       []float32
}

// Preference is one learned taste signal, unique per (UserID, Type).
type Preference struct {
	UserID string `json:"user_id"`

	// Type is the signal tag (genre_affinity, high_playtime, ...).
	Type string `json:"type"`

	Vector []float32 `json:"vector"`

	// Confidence is the signal weight in [0, 1].
	Confidence float64 `json:"confidence"`

	// SampleSize is the number of games behind the signal.
	SampleSize int `json:"sample_size"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ProviderCredentials are a user's stored keys for one generation provider.
type ProviderCredentials struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
	APIKey   string `json:"-"`
	BaseURL  string `json:"base_url,omitempty"`
	Active   bool   `json:"active"`
}

// Activity is one activity-log entry.
type Activity struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	Action     string                 `json:"action"`
	Status     string                 `json:"status"`
	Model      string                 `json:"model,omitempty"`
	CostUSD    float64                `json:"cost_usd"`
	DurationMS int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Activity statuses.
const (
	ActivitySuccess = "success"
	ActivityFailure = "failure"
)
