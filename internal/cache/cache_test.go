package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// failingBackend errors on every call, simulating a cache outage.
type failingBackend struct {
	gets, sets, deletes int
}

func (f *failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.gets++
	return nil, false, errors.New("connection refused")
}

func (f *failingBackend) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.sets++
	return errors.New("connection refused")
}

func (f *failingBackend) Delete(ctx context.Context, key string) error {
	f.deletes++
	return errors.New("connection refused")
}

func TestHash_Stable(t *testing.T) {
	a := Hash("Game: Hades\nGenres: Roguelike")
	b := Hash("Game: Hades\nGenres: Roguelike")
	c := Hash("Game: Hades\nGenres: Roguelike, Action")

	if a != b {
		t.Error("hash should be stable for identical text")
	}
	if a == c {
		t.Error("hash should change when text changes")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestKeys(t *testing.T) {
	if got := EmbeddingKey("text-embedding-3-small", "game", "g1", "abc"); got != "emb:text-embedding-3-small:game:g1:abc" {
		t.Errorf("unexpected embedding key %q", got)
	}
	if got := TextEmbeddingKey("text-embedding-3-small", "abc"); got != "emb:text-embedding-3-small:text:abc" {
		t.Errorf("unexpected text embedding key %q", got)
	}
	if EmbeddingKey("a", "game", "g1", "abc") == EmbeddingKey("b", "game", "g1", "abc") {
		t.Error("embedding keys should differ by model")
	}
	if got := SearchKey("u1", "abc"); got != "search:u1:abc" {
		t.Errorf("unexpected search key %q", got)
	}
	if got := LibraryKey("u1"); got != "library:u1" {
		t.Errorf("unexpected library key %q", got)
	}
}

func TestStore_VectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), DefaultTTLs())

	if _, ok := store.GetVector(ctx, "emb:game:1:h"); ok {
		t.Fatal("expected miss on empty cache")
	}

	store.SetVector(ctx, "emb:game:1:h", []float32{0.1, 0.2, 0.3})

	vec, ok := store.GetVector(ctx, "emb:game:1:h")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestStore_IDsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), DefaultTTLs())

	store.SetIDs(ctx, "search:u1:q", []string{"c", "a", "b"})

	ids, ok := store.GetIDs(ctx, "search:u1:q")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(ids) != 3 || ids[0] != "c" || ids[2] != "b" {
		t.Errorf("order not preserved: %v", ids)
	}
}

func TestStore_FailOpen(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	store := NewStore(backend, DefaultTTLs())

	store.SetVector(ctx, "emb:game:1:h", []float32{1})
	if _, ok := store.GetVector(ctx, "emb:game:1:h"); ok {
		t.Error("failing backend should read as a miss")
	}
	store.Delete(ctx, "emb:game:1:h")

	if backend.gets != 1 || backend.sets != 1 || backend.deletes != 1 {
		t.Errorf("expected one call each, got gets=%d sets=%d deletes=%d", backend.gets, backend.sets, backend.deletes)
	}
}

func TestStore_NilBackend(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, DefaultTTLs())

	store.SetIDs(ctx, "search:u:q", []string{"a"})
	if _, ok := store.GetIDs(ctx, "search:u:q"); ok {
		t.Error("nil backend should always miss")
	}
}

func TestStore_NilStore(t *testing.T) {
	ctx := context.Background()
	var store *Store

	store.SetVector(ctx, "emb:text:h", []float32{1})
	store.SetIDs(ctx, "search:u:q", []string{"a"})
	store.Delete(ctx, "emb:text:h")
	if _, ok := store.GetVector(ctx, "emb:text:h"); ok {
		t.Error("nil store should always miss")
	}
	if store.TTLs() != DefaultTTLs() {
		t.Error("nil store should report default TTLs")
	}
}

func TestStore_CorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, DefaultTTLs())

	_ = backend.SetWithTTL(ctx, "emb:game:1:h", []byte{1, 2, 3}, time.Hour)
	if _, ok := store.GetVector(ctx, "emb:game:1:h"); ok {
		t.Error("corrupt vector should be treated as a miss")
	}

	_ = backend.SetWithTTL(ctx, "search:u:q", []byte("not json"), time.Hour)
	if _, ok := store.GetIDs(ctx, "search:u:q"); ok {
		t.Error("corrupt id list should be treated as a miss")
	}
}

func TestMemoryBackend_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryBackend()
	m.now = func() time.Time { return now }

	_ = m.SetWithTTL(ctx, "k", []byte("v"), time.Minute)
	_ = m.SetWithTTL(ctx, "forever", []byte("v"), 0)

	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("zero TTL entries should not expire")
	}
}

func TestMemoryBackend_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemoryBackend()
	m.now = func() time.Time { return now }

	_ = m.SetWithTTL(ctx, "a", []byte("1"), time.Second)
	_ = m.SetWithTTL(ctx, "b", []byte("2"), time.Hour)

	now = now.Add(time.Minute)

	if removed := m.Sweep(); removed != 1 {
		t.Errorf("expected 1 expired entry removed, got %d", removed)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", m.Len())
	}
}
