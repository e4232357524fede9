package sampling

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/search"
)

func game(id string, status library.Status, rating int, genres ...string) library.GameSummary {
	g := library.GameSummary{ID: id, Name: "Game " + id, Status: status, Genres: genres}
	if rating > 0 {
		g.Rating = library.IntPtr(rating)
	}
	return g
}

// quotaFixture has 5 playing, 5 rated 9, 10 finished games across 8 genres
// and 5 backlog games. Only the finished games carry genres.
func quotaFixture() []library.GameSummary {
	var games []library.GameSummary
	for i := 0; i < 10; i++ {
		games = append(games, game(fmt.Sprintf("f%d", i), library.StatusFinished, 0, fmt.Sprintf("G%d", i%8)))
	}
	for i := 0; i < 5; i++ {
		games = append(games, game(fmt.Sprintf("p%d", i), library.StatusPlaying, 0))
	}
	for i := 0; i < 5; i++ {
		games = append(games, game(fmt.Sprintf("r%d", i), library.StatusFinished, 9))
	}
	for i := 0; i < 5; i++ {
		games = append(games, game(fmt.Sprintf("b%d", i), library.StatusBacklog, 0))
	}
	return games
}

func TestQuotaSample_ExactQuotas(t *testing.T) {
	got := QuotaSample(quotaFixture(), 20)
	if len(got) != 20 {
		t.Fatalf("expected 20 games, got %d", len(got))
	}

	counts := map[byte]int{}
	genres := map[string]bool{}
	for _, g := range got {
		counts[g.ID[0]]++
		for _, genre := range g.Genres {
			genres[genre] = true
		}
	}

	want := map[byte]int{'p': 4, 'r': 4, 'f': 8, 'b': 4}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("expected %v, got %v", want, counts)
	}
	if len(genres) != 8 {
		t.Errorf("diverse stage should cover 8 genres, got %d", len(genres))
	}
}

func TestQuotaSample_StageOrder(t *testing.T) {
	got := QuotaSample(quotaFixture(), 20)
	ids := make([]string, len(got))
	for i, g := range got {
		ids[i] = g.ID
	}
	want := []string{
		"p0", "p1", "p2", "p3",
		"r0", "r1", "r2", "r3",
		"f0", "f1", "f2", "f3", "f4", "f5", "f6", "f7",
		"b0", "b1", "b2", "b3",
	}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestQuotaSample_Deterministic(t *testing.T) {
	games := quotaFixture()
	first := QuotaSample(games, 13)
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(first, QuotaSample(games, 13)) {
			t.Fatal("quota sample is not deterministic")
		}
	}
}

func TestQuotaSample_NoDuplicates(t *testing.T) {
	// Multi-genre games show up in several buckets.
	games := []library.GameSummary{
		game("a", library.StatusPlaying, 9, "RPG", "Action"),
		game("b", library.StatusBacklog, 9, "RPG", "Action", "Indie"),
		game("c", library.StatusFinished, 0, "Indie", "RPG"),
		game("d", library.StatusBacklog, 0, "Action"),
		game("e", library.StatusBacklog, 0),
	}
	for limit := 1; limit <= 8; limit++ {
		got := QuotaSample(games, limit)
		if len(got) > limit {
			t.Errorf("limit %d: got %d games", limit, len(got))
		}
		seen := map[string]bool{}
		for _, g := range got {
			if seen[g.ID] {
				t.Errorf("limit %d: duplicate %s", limit, g.ID)
			}
			seen[g.ID] = true
		}
	}
}

func TestQuotaSample_RemainderFillsInOrder(t *testing.T) {
	games := []library.GameSummary{
		game("x1", library.StatusFinished, 0),
		game("x2", library.StatusDropped, 0),
		game("x3", library.StatusFinished, 0),
	}
	got := QuotaSample(games, 10)
	if len(got) != 3 {
		t.Fatalf("expected whole library, got %d", len(got))
	}
	for i, want := range []string{"x1", "x2", "x3"} {
		if got[i].ID != want {
			t.Errorf("index %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestQuotaSample_EdgeCases(t *testing.T) {
	if got := QuotaSample(nil, 10); len(got) != 0 {
		t.Errorf("expected empty sample for empty library, got %d", len(got))
	}
	if got := QuotaSample(quotaFixture(), 0); len(got) != 0 {
		t.Errorf("expected empty sample for zero limit, got %d", len(got))
	}
}

// fakeSearcher returns canned results.
type fakeSearcher struct {
	results []search.Result
	err     error
	queries []search.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

// fakeKeyword records indexing and returns canned results.
type fakeKeyword struct {
	indexed []library.Entry
	results []search.Result
	err     error
}

func (f *fakeKeyword) IndexLibrary(userID string, entries []library.Entry) error {
	f.indexed = entries
	return nil
}

func (f *fakeKeyword) Search(userID, text string, limit int, statuses []library.Status) ([]search.Result, error) {
	return f.results, f.err
}

func libraryEntries(n int) []library.Entry {
	entries := make([]library.Entry, 0, n)
	for i := 0; i < n; i++ {
		status := library.StatusBacklog
		if i%2 == 1 {
			status = library.StatusFinished
		}
		entries = append(entries, library.Entry{
			UserID: "u1",
			Game:   library.Game{ID: fmt.Sprintf("g%d", i), Name: fmt.Sprintf("Game %d", i)},
			Status: status,
		})
	}
	return entries
}

func results(ids ...string) []search.Result {
	out := make([]search.Result, len(ids))
	for i, id := range ids {
		out[i] = search.Result{EntityID: id, Similarity: 0.9}
	}
	return out
}

func TestSelect_SemanticStage(t *testing.T) {
	searcher := &fakeSearcher{results: results("g4", "g2", "g0", "ghost")}
	s := NewSelector(searcher, nil)

	sel := s.Select(context.Background(), Request{
		UserID: "u1", Theme: "cozy", Library: libraryEntries(6), Limit: 10, MinViable: 3,
	})
	if sel.Strategy != StrategySemantic {
		t.Fatalf("expected semantic, got %s", sel.Strategy)
	}
	if len(sel.Games) != 3 || sel.Games[0].ID != "g4" || sel.Games[2].ID != "g0" {
		t.Errorf("unexpected selection: %+v", sel.Games)
	}
	if searcher.queries[0].UserID != "u1" || searcher.queries[0].Text != "cozy" {
		t.Errorf("unexpected query: %+v", searcher.queries[0])
	}
}

func TestSelect_InsufficientFallsBackToQuota(t *testing.T) {
	s := NewSelector(&fakeSearcher{results: results("g1")}, nil)
	sel := s.Select(context.Background(), Request{
		UserID: "u1", Theme: "cozy", Library: libraryEntries(6), Limit: 4, MinViable: 3,
	})
	if sel.Strategy != StrategyQuota {
		t.Fatalf("expected quota, got %s", sel.Strategy)
	}
	if len(sel.Games) != 4 {
		t.Errorf("expected 4 games, got %d", len(sel.Games))
	}
}

func TestSelect_NoThemeUsesQuota(t *testing.T) {
	searcher := &fakeSearcher{results: results("g1", "g2", "g3")}
	s := NewSelector(searcher, nil)
	sel := s.Select(context.Background(), Request{UserID: "u1", Library: libraryEntries(6), Limit: 10, MinViable: 1})
	if sel.Strategy != StrategyQuota {
		t.Errorf("expected quota, got %s", sel.Strategy)
	}
	if len(searcher.queries) != 0 {
		t.Error("searcher should not run without a theme")
	}
}

func TestSelect_KeywordOnlyOnSemanticError(t *testing.T) {
	kw := &fakeKeyword{results: results("g0", "g2")}
	s := NewSelector(&fakeSearcher{err: errors.New("embedding provider down")}, kw)

	sel := s.Select(context.Background(), Request{
		UserID: "u1", Theme: "cozy", Library: libraryEntries(6),
		Statuses: []library.Status{library.StatusBacklog}, Limit: 10, MinViable: 2,
	})
	if sel.Strategy != StrategyKeyword {
		t.Fatalf("expected keyword, got %s", sel.Strategy)
	}
	if len(kw.indexed) != 3 {
		t.Errorf("expected only backlog entries indexed, got %d", len(kw.indexed))
	}

	kw.err = errors.New("index broken")
	sel = s.Select(context.Background(), Request{UserID: "u1", Theme: "cozy", Library: libraryEntries(6), Limit: 10, MinViable: 2})
	if sel.Strategy != StrategyQuota {
		t.Errorf("expected quota after both stages fail, got %s", sel.Strategy)
	}
}

func TestSelect_StatusFilterAppliesToQuota(t *testing.T) {
	s := NewSelector(&fakeSearcher{}, nil)
	sel := s.Select(context.Background(), NextGamePreset.Request("u1", "", libraryEntries(10)))
	for _, g := range sel.Games {
		if g.Status != library.StatusBacklog && g.Status != library.StatusPlaying {
			t.Errorf("next game sample included %s game %s", g.Status, g.ID)
		}
	}
	if len(sel.Games) != 5 {
		t.Errorf("expected the 5 backlog games, got %d", len(sel.Games))
	}
}

func TestPresets(t *testing.T) {
	if CollectionsPreset.Limit != 150 || CollectionsPreset.MinViable != 10 || len(CollectionsPreset.Statuses) != 0 {
		t.Errorf("unexpected collections preset: %+v", CollectionsPreset)
	}
	if NextGamePreset.Limit != 60 || NextGamePreset.MinViable != 5 || len(NextGamePreset.Statuses) != 2 {
		t.Errorf("unexpected next game preset: %+v", NextGamePreset)
	}
}
