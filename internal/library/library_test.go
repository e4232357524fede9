package library

import "testing"

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"playing":    StatusPlaying,
		" Completed": StatusCompleted,
		"DROPPED":    StatusDropped,
		"wishlist":   StatusBacklog,
		"":           StatusBacklog,
	}

	for in, want := range tests {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Game: Game{ID: "g1", Name: "Hades", Genres: []string{"Roguelike"}}, Status: StatusPlaying, PlaytimeMinutes: 90, Rating: IntPtr(9)},
		{Game: Game{ID: "g2", Name: "Celeste"}, Status: StatusBacklog},
	}

	got := Summarize(entries)

	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].ID != "g1" || got[1].ID != "g2" {
		t.Errorf("order not preserved: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].PlaytimeHours != 1.5 {
		t.Errorf("expected 1.5 hours, got %f", got[0].PlaytimeHours)
	}
	if !got[0].HasRatingAtLeast(8) || got[1].HasRatingAtLeast(1) {
		t.Error("HasRatingAtLeast mismatch")
	}
}

func TestFilterStatus(t *testing.T) {
	games := []GameSummary{
		{ID: "a", Status: StatusBacklog},
		{ID: "b", Status: StatusCompleted},
		{ID: "c", Status: StatusPlaying},
	}

	got := FilterStatus(games, StatusBacklog, StatusPlaying)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected filter result: %+v", got)
	}

	if all := FilterStatus(games); len(all) != 3 {
		t.Errorf("empty filter should keep all, got %d", len(all))
	}
}

func TestIndexByName(t *testing.T) {
	idx := IndexByName([]GameSummary{
		{ID: "1", Name: "Portal "},
		{ID: "2", Name: "Portal"},
	})

	if idx["Portal"] != "1" {
		t.Errorf("expected first match to win, got %q", idx["Portal"])
	}
}
