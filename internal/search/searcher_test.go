package search

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/khanglvm/game-curator/internal/cache"
	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/storage"
	"github.com/khanglvm/game-curator/internal/vector"
)

// fakeEmbedder returns pinned vectors per text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return []float32{0, 0, 1}, nil
	}
	return v, nil
}

// fakeStore keeps libraries and embeddings in memory.
type fakeStore struct {
	mu           sync.Mutex
	owned        map[string][]library.Entry
	embeddings   map[string][]float32
	similarCalls int
	similarErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		owned:      map[string][]library.Entry{},
		embeddings: map[string][]float32{},
	}
}

func (f *fakeStore) add(userID, gameID, name string, status library.Status, vec []float32) {
	f.owned[userID] = append(f.owned[userID], library.Entry{
		UserID: userID,
		Game:   library.Game{ID: gameID, Name: name},
		Status: status,
	})
	if vec != nil {
		f.embeddings[gameID] = vec
	}
}

func (f *fakeStore) SimilarGames(ctx context.Context, q storage.SimilarityQuery) ([]storage.SimilarGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.similarCalls++
	if f.similarErr != nil {
		return nil, f.similarErr
	}

	allowed := map[string]bool{}
	for _, s := range q.Statuses {
		allowed[s] = true
	}

	var out []storage.SimilarGame
	for _, e := range f.owned[q.UserID] {
		if len(allowed) > 0 && !allowed[string(e.Status)] {
			continue
		}
		vec, ok := f.embeddings[e.Game.ID]
		if !ok {
			continue
		}
		sim := vector.Cosine(q.Vector, vec)
		if sim < q.MinSimilarity {
			continue
		}
		out = append(out, storage.SimilarGame{GameID: e.Game.ID, Name: e.Game.Name, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetOwnedGames(ctx context.Context, userID string, gameIDs []string) ([]library.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byID := map[string]library.Entry{}
	for _, e := range f.owned[userID] {
		byID[e.Game.ID] = e
	}
	var out []library.Entry
	for _, id := range gameIDs {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetGameEmbedding(ctx context.Context, gameID string) (storage.EmbeddingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vec, ok := f.embeddings[gameID]
	if !ok {
		return storage.EmbeddingRecord{}, storage.ErrNotFound
	}
	return storage.EmbeddingRecord{EntityID: gameID, Vector: vec}, nil
}

func newTestSearcher(store *fakeStore) (*Searcher, *cache.Store) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"rpg": {1, 0, 0}}}
	c := cache.NewStore(cache.NewMemoryBackend(), cache.DefaultTTLs())
	return NewSearcher(emb, store, c), c
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "g1", "Close", library.StatusBacklog, []float32{0.9, 0.1, 0})
	store.add("alice", "g2", "Exact", library.StatusBacklog, []float32{1, 0, 0})
	store.add("alice", "g3", "Far", library.StatusBacklog, []float32{0, 1, 0})

	s, _ := newTestSearcher(store)
	results, err := s.Search(context.Background(), Query{Text: "rpg", UserID: "alice", MinSimilarity: 0.5})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	got := IDs(results)
	if len(got) != 2 || got[0] != "g2" || got[1] != "g1" {
		t.Errorf("expected [g2 g1], got %v", got)
	}
	if results[0].Label != "Exact" {
		t.Errorf("expected label Exact, got %q", results[0].Label)
	}
}

func TestSearch_RequiresUser(t *testing.T) {
	s, _ := newTestSearcher(newFakeStore())
	if _, err := s.Search(context.Background(), Query{Text: "rpg"}); err == nil {
		t.Error("expected error for missing user id")
	}
}

func TestSearch_EmptyText(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestSearcher(store)

	results, err := s.Search(context.Background(), Query{Text: "   ", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if store.similarCalls != 0 {
		t.Error("empty query should not reach the store")
	}
}

func TestSearch_CacheHitSkipsSimilarityQuery(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "g1", "Exact", library.StatusBacklog, []float32{1, 0, 0})

	s, _ := newTestSearcher(store)
	ctx := context.Background()
	q := Query{Text: "rpg", UserID: "alice"}

	first, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if store.similarCalls != 1 {
		t.Errorf("expected 1 similarity query, got %d", store.similarCalls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].EntityID != second[0].EntityID {
		t.Errorf("cached result mismatch: %v vs %v", first, second)
	}
	if second[0].Similarity < 0.999 {
		t.Errorf("expected rescored similarity ~1, got %f", second[0].Similarity)
	}
}

func TestSearch_CachedIDsAreOwnershipScoped(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "a1", "Alice Game", library.StatusBacklog, []float32{1, 0, 0})
	store.add("bob", "b1", "Bob Game", library.StatusBacklog, []float32{1, 0, 0})

	s, c := newTestSearcher(store)
	ctx := context.Background()
	q := Query{Text: "rpg", UserID: "bob", Limit: DefaultLimit}

	// A poisoned entry under bob's key that names alice's game.
	c.SetIDs(ctx, cache.SearchKey(scopeOf(q), cache.Hash(q.Text)), []string{"a1", "b1"})

	results, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.EntityID == "a1" {
			t.Fatal("search leaked a game bob does not own")
		}
	}
	if len(results) != 1 || results[0].EntityID != "b1" {
		t.Errorf("expected [b1], got %v", IDs(results))
	}
}

func TestSearch_UsersDoNotShareResults(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "a1", "Alice Game", library.StatusBacklog, []float32{1, 0, 0})
	store.add("bob", "b1", "Bob Game", library.StatusBacklog, []float32{1, 0, 0})

	s, _ := newTestSearcher(store)
	ctx := context.Background()

	alice, err := s.Search(ctx, Query{Text: "rpg", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	bob, err := s.Search(ctx, Query{Text: "rpg", UserID: "bob"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(alice) != 1 || alice[0].EntityID != "a1" {
		t.Errorf("alice: expected [a1], got %v", IDs(alice))
	}
	if len(bob) != 1 || bob[0].EntityID != "b1" {
		t.Errorf("bob: expected [b1], got %v", IDs(bob))
	}
	if store.similarCalls != 2 {
		t.Errorf("expected a fresh query per user, got %d", store.similarCalls)
	}
}

func TestSearch_StatusFilterChangesScope(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "g1", "Backlog Game", library.StatusBacklog, []float32{1, 0, 0})
	store.add("alice", "g2", "Playing Game", library.StatusPlaying, []float32{1, 0, 0})

	s, _ := newTestSearcher(store)
	ctx := context.Background()

	all, err := s.Search(ctx, Query{Text: "rpg", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	backlog, err := s.Search(ctx, Query{Text: "rpg", UserID: "alice", Statuses: []library.Status{library.StatusBacklog}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(all) != 2 {
		t.Errorf("expected 2 results, got %d", len(all))
	}
	if len(backlog) != 1 || backlog[0].EntityID != "g1" {
		t.Errorf("expected [g1], got %v", IDs(backlog))
	}
}

func TestSearch_EmptyResultsNotCached(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestSearcher(store)
	ctx := context.Background()
	q := Query{Text: "rpg", UserID: "alice"}

	if _, err := s.Search(ctx, q); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	store.add("alice", "g1", "New Game", library.StatusBacklog, []float32{1, 0, 0})

	results, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected newly added game, got %v", IDs(results))
	}
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()

	emb := &fakeEmbedder{err: errors.New("provider down")}
	s := NewSearcher(emb, newFakeStore(), nil)
	if _, err := s.Search(ctx, Query{Text: "rpg", UserID: "alice"}); err == nil {
		t.Error("expected embed error")
	}

	store := newFakeStore()
	store.similarErr = errors.New("db locked")
	s = NewSearcher(&fakeEmbedder{}, store, nil)
	if _, err := s.Search(ctx, Query{Text: "rpg", UserID: "alice"}); err == nil {
		t.Error("expected similarity error")
	}
}

func TestSearch_CachedOrderServedWhenEmbeddingFails(t *testing.T) {
	store := newFakeStore()
	store.add("alice", "g1", "Close", library.StatusBacklog, []float32{0.9, 0.1, 0})
	store.add("alice", "g2", "Exact", library.StatusBacklog, []float32{1, 0, 0})
	store.add("bob", "b1", "Bob Game", library.StatusBacklog, []float32{1, 0, 0})

	s, c := newTestSearcher(store)
	ctx := context.Background()
	q := Query{Text: "rpg", UserID: "alice", MinSimilarity: 0.5}

	warm, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	key := cache.SearchKey(scopeOf(Query{Text: "rpg", UserID: "alice", Limit: DefaultLimit, MinSimilarity: 0.5}), cache.Hash("rpg"))
	c.SetIDs(ctx, key, append(IDs(warm), "b1"))

	s.embedder.(*fakeEmbedder).err = errors.New("provider down")
	results, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("warm cache should survive an embedding outage: %v", err)
	}
	if store.similarCalls != 1 {
		t.Errorf("expected no new similarity query, got %d", store.similarCalls)
	}
	if got := IDs(results); len(got) != 2 || got[0] != "g2" || got[1] != "g1" {
		t.Errorf("expected cached order [g2 g1] without bob's game, got %v", got)
	}
	for _, r := range results {
		if r.Similarity != q.MinSimilarity {
			t.Errorf("unscored result %s should report the threshold, got %f", r.EntityID, r.Similarity)
		}
	}

	if _, err := s.Search(ctx, Query{Text: "roguelike", UserID: "alice"}); err == nil {
		t.Error("a cold query should still fail when embedding fails")
	}
}

func TestInsufficient(t *testing.T) {
	results := []Result{{EntityID: "a"}, {EntityID: "b"}}
	if !Insufficient(results, 3) {
		t.Error("2 < 3 should be insufficient")
	}
	if Insufficient(results, 2) {
		t.Error("2 >= 2 should be sufficient")
	}
}

func TestScopeOf(t *testing.T) {
	a := scopeOf(Query{UserID: "u", Limit: 10, Statuses: []library.Status{library.StatusPlaying, library.StatusBacklog}})
	b := scopeOf(Query{UserID: "u", Limit: 10, Statuses: []library.Status{library.StatusBacklog, library.StatusPlaying}})
	if a != b {
		t.Errorf("status order should not change scope: %q vs %q", a, b)
	}
	if scopeOf(Query{UserID: "u", Limit: 10}) == scopeOf(Query{UserID: "v", Limit: 10}) {
		t.Error("different users must have different scopes")
	}
}
