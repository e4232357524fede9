package learning

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/storage"
)

// mockStore is an in-memory preference store.
type mockStore struct {
	mu      sync.Mutex
	prefs   map[string]storage.Preference
	listErr error
	upserts int
}

func newMockStore() *mockStore {
	return &mockStore{prefs: map[string]storage.Preference{}}
}

func (m *mockStore) ListPreferences(ctx context.Context, userID string) ([]storage.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []storage.Preference
	for _, p := range m.prefs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertPreference(ctx context.Context, p storage.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.prefs[p.UserID+"/"+p.Type] = p
	return nil
}

// textEmbedder returns a constant vector and records the texts.
type textEmbedder struct {
	texts []string
	err   error
}

func (e *textEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{1, 0}, nil
}

func entry(id, name string, opts ...func(*library.Entry)) library.Entry {
	e := library.Entry{UserID: "u1", Game: library.Game{ID: id, Name: name}, Status: library.StatusBacklog}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func rated(r int) func(*library.Entry) {
	return func(e *library.Entry) { e.Rating = library.IntPtr(r) }
}

func genres(g ...string) func(*library.Entry) {
	return func(e *library.Entry) { e.Game.Genres = g }
}

func series(s string) func(*library.Entry) {
	return func(e *library.Entry) { e.Game.SeriesName = s }
}

func playtime(min int) func(*library.Entry) {
	return func(e *library.Entry) { e.PlaytimeMinutes = min }
}

func favorite(e *library.Entry) { e.Favorite = true }

func completed(e *library.Entry) { e.Status = library.StatusCompleted }

func signalOf(signals []Signal, t SignalType) (Signal, bool) {
	for _, s := range signals {
		if s.Type == t {
			return s, true
		}
	}
	return Signal{}, false
}

func TestDeriveSignals_EmptyLibrary(t *testing.T) {
	if got := DeriveSignals(nil); len(got) != 0 {
		t.Errorf("expected no signals, got %d", len(got))
	}
}

func TestDeriveSignals_GenreAffinity(t *testing.T) {
	entries := []library.Entry{
		entry("1", "A", rated(9), genres("RPG")),
		entry("2", "B", rated(8), genres("RPG")),
		entry("3", "C", rated(10), genres("RPG", "Action")),
		entry("4", "D", rated(9), genres("Action")),
		entry("5", "E", rated(3), genres("Action")),
		entry("6", "F", genres("RPG")),
	}

	sig, ok := signalOf(DeriveSignals(entries), SignalGenreAffinity)
	if !ok {
		t.Fatal("expected genre affinity signal")
	}
	// RPG averages 9 over three rated games; Action averages 7.33.
	if math.Abs(sig.Weight-0.9) > 1e-9 {
		t.Errorf("expected weight 0.9, got %f", sig.Weight)
	}
	if sig.SampleSize() != 3 {
		t.Errorf("expected the 3 rated RPGs, got %d", sig.SampleSize())
	}
}

func TestDeriveSignals_GenreAffinityNeedsThreeRated(t *testing.T) {
	entries := []library.Entry{
		entry("1", "A", rated(10), genres("RPG")),
		entry("2", "B", rated(10), genres("RPG")),
		entry("3", "C", genres("RPG")),
	}
	if _, ok := signalOf(DeriveSignals(entries), SignalGenreAffinity); ok {
		t.Error("two rated games should not qualify")
	}
}

func TestDeriveSignals_GenreAffinityTopThree(t *testing.T) {
	var entries []library.Entry
	for i, g := range []string{"A", "B", "C", "D"} {
		for j := 0; j < 3; j++ {
			entries = append(entries, entry(g+string(rune('0'+j)), g, rated(10-i/3), genres(g)))
		}
	}
	sig, ok := signalOf(DeriveSignals(entries), SignalGenreAffinity)
	if !ok {
		t.Fatal("expected genre affinity signal")
	}
	if sig.SampleSize() != 9 {
		t.Errorf("expected games from 3 genres, got %d", sig.SampleSize())
	}
}

func TestDeriveSignals_HighPlaytime(t *testing.T) {
	entries := []library.Entry{
		entry("1", "A", playtime(1200)),
		entry("2", "B", playtime(5000)),
		entry("3", "C", playtime(1199)),
	}
	if _, ok := signalOf(DeriveSignals(entries), SignalHighPlaytime); ok {
		t.Error("two long games should not qualify")
	}

	entries = append(entries, entry("4", "D", playtime(2400)))
	sig, ok := signalOf(DeriveSignals(entries), SignalHighPlaytime)
	if !ok {
		t.Fatal("expected high playtime signal")
	}
	if sig.Weight != 0.9 || sig.SampleSize() != 3 {
		t.Errorf("unexpected signal: weight=%f size=%d", sig.Weight, sig.SampleSize())
	}
}

func TestDeriveSignals_Franchise(t *testing.T) {
	entries := []library.Entry{
		entry("1", "Zelda 1", series("Zelda")),
		entry("2", "Zelda 2", series("Zelda")),
		entry("3", "Zelda 3", series("Zelda")),
		entry("4", "Mario 1", series("Mario")),
	}
	sig, ok := signalOf(DeriveSignals(entries), SignalFranchise)
	if !ok {
		t.Fatal("expected franchise signal")
	}
	if sig.Weight != 0.7 {
		t.Errorf("unrated franchise should weigh 0.7, got %f", sig.Weight)
	}
	if sig.SampleSize() != 3 {
		t.Errorf("expected 3 zelda games, got %d", sig.SampleSize())
	}

	entries[0].Rating = library.IntPtr(6)
	entries[1].Rating = library.IntPtr(8)
	sig, _ = signalOf(DeriveSignals(entries), SignalFranchise)
	if math.Abs(sig.Weight-0.7) > 1e-9 {
		t.Errorf("expected avg rating 7 -> 0.7, got %f", sig.Weight)
	}

	entries[0].Rating = library.IntPtr(10)
	sig, _ = signalOf(DeriveSignals(entries), SignalFranchise)
	if math.Abs(sig.Weight-0.9) > 1e-9 {
		t.Errorf("expected avg rating 9 -> 0.9, got %f", sig.Weight)
	}
}

func TestDeriveSignals_FavoritesAndCompleted(t *testing.T) {
	entries := []library.Entry{
		entry("1", "A", favorite, completed),
		entry("2", "B", favorite, completed),
		entry("3", "C", favorite),
		entry("4", "D", completed),
	}
	signals := DeriveSignals(entries)

	fav, ok := signalOf(signals, SignalFavorites)
	if !ok || fav.Weight != 1.0 || fav.SampleSize() != 3 {
		t.Errorf("unexpected favorites signal: %+v ok=%v", fav, ok)
	}
	done, ok := signalOf(signals, SignalCompletedThemes)
	if !ok || done.Weight != 0.8 || done.SampleSize() != 3 {
		t.Errorf("unexpected completed signal: %+v ok=%v", done, ok)
	}
}

func TestShouldRegenerate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		prefs []storage.Preference
		want  bool
	}{
		{"no records", nil, true},
		{"fresh", []storage.Preference{{UpdatedAt: now.Add(-24 * time.Hour)}}, false},
		{"stale", []storage.Preference{{UpdatedAt: now.Add(-8 * 24 * time.Hour)}}, true},
		{"exactly seven days", []storage.Preference{{UpdatedAt: now.Add(-StalenessWindow)}}, false},
		{"newest wins", []storage.Preference{
			{UpdatedAt: now.Add(-30 * 24 * time.Hour)},
			{UpdatedAt: now.Add(-time.Hour)},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRegenerate(tt.prefs, now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func favoritesLibrary() []library.Entry {
	return []library.Entry{
		entry("1", "A", favorite, genres("RPG")),
		entry("2", "B", favorite),
		entry("3", "C", favorite),
	}
}

func TestLearner_RefreshWritesSignals(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := newMockStore()
	emb := &textEmbedder{}
	l := NewLearner(emb, store, func() time.Time { return now })

	n, err := l.Refresh(context.Background(), "u1", favoritesLibrary(), false)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}

	p, ok := store.prefs["u1/favorites"]
	if !ok {
		t.Fatal("favorites preference not stored")
	}
	if p.Confidence != 1.0 || p.SampleSize != 3 || !p.UpdatedAt.Equal(now) {
		t.Errorf("unexpected preference: %+v", p)
	}
	if emb.texts[0] != "A (RPG)\nB\nC" {
		t.Errorf("unexpected signal text %q", emb.texts[0])
	}
}

func TestLearner_RefreshSkipsFreshPreferences(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.prefs["u1/favorites"] = storage.Preference{UserID: "u1", Type: "favorites", UpdatedAt: now.Add(-time.Hour)}
	emb := &textEmbedder{}
	l := NewLearner(emb, store, func() time.Time { return now })

	n, err := l.Refresh(context.Background(), "u1", favoritesLibrary(), false)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 0 || len(emb.texts) != 0 {
		t.Errorf("fresh preferences should not regenerate, wrote %d", n)
	}

	n, err = l.Refresh(context.Background(), "u1", favoritesLibrary(), true)
	if err != nil {
		t.Fatalf("forced Refresh failed: %v", err)
	}
	if n != 1 {
		t.Errorf("forced refresh should write, got %d", n)
	}
}

func TestLearner_RefreshKeepsOrphanedSignals(t *testing.T) {
	store := newMockStore()
	store.prefs["u1/high_playtime"] = storage.Preference{UserID: "u1", Type: "high_playtime", Confidence: 0.9}
	l := NewLearner(&textEmbedder{}, store, nil)

	if _, err := l.Refresh(context.Background(), "u1", favoritesLibrary(), true); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, ok := store.prefs["u1/high_playtime"]; !ok {
		t.Error("signals that stop qualifying should be left in place")
	}
}

func TestLearner_RefreshErrors(t *testing.T) {
	store := newMockStore()
	l := NewLearner(&textEmbedder{err: errors.New("provider down")}, store, nil)
	if _, err := l.Refresh(context.Background(), "u1", favoritesLibrary(), true); err == nil {
		t.Error("expected embed error")
	}

	store.listErr = errors.New("db locked")
	if _, err := l.Refresh(context.Background(), "u1", favoritesLibrary(), false); err == nil {
		t.Error("expected list error")
	}
}

func TestRankByTaste(t *testing.T) {
	prefs := []storage.Preference{
		{Vector: []float32{1, 0}, Confidence: 1.0},
		{Vector: []float32{0, 1}, Confidence: 0.5},
		{Vector: []float32{-1, 0}, Confidence: 0},
	}
	candidates := []Candidate{
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{-1, -1}},
	}

	got := RankByTaste(prefs, candidates)
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("unexpected order: %+v", got)
	}
	if math.Abs(got[0].Score-2.0/3.0) > 1e-9 {
		t.Errorf("expected score 2/3, got %f", got[0].Score)
	}
}

func TestTasteScore_NoPreferences(t *testing.T) {
	if TasteScore(nil, []float32{1, 0}) != 0 {
		t.Error("expected 0 without preferences")
	}
}
