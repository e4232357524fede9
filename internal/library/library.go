/*
Package library defines the game library model shared across the curator.

A user's persisted library is a list of Entry values (catalog game plus the
user's own status, rating and playtime). Each request derives GameSummary
values from it; summaries are the canonical unit fed into sampling and prompt
building.
*/
package library

import "strings"

// Status is the play state of a game in a user's library.
type Status string

const (
	StatusBacklog   Status = "backlog"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
	StatusDropped   Status = "dropped"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusPlaying, StatusFinished, StatusDropped, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus normalizes a status string. Unknown values map to backlog.
func ParseStatus(s string) Status {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st
	}
	return StatusBacklog
}

// Game is a catalog entry, independent of any user.
type Game struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Genres      []string `json:"genres,omitempty"`
	Description string   `json:"description,omitempty"`
	SeriesName  string   `json:"seriesName,omitempty"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
}

// Entry is a game as it appears in one user's library.
type Entry struct {
	UserID          string `json:"userId"`
	Game            Game   `json:"game"`
	Status          Status `json:"status"`
	Rating          *int   `json:"rating,omitempty"`
	PlaytimeMinutes int    `json:"playtimeMinutes"`
	CompletionPct   int    `json:"completionPct"`
	Favorite        bool   `json:"favorite"`
}

// GameSummary is the per-request view of a library entry.
type GameSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Genres        []string `json:"genres,omitempty"`
	Status        Status   `json:"status"`
	Rating        *int     `json:"rating,omitempty"`
	PlaytimeHours float64  `json:"playtimeHours"`
	CompletionPct int      `json:"completionPct"`
	SeriesName    string   `json:"seriesName,omitempty"`
	ReleaseYear   int      `json:"releaseYear,omitempty"`
}

// HasRatingAtLeast reports whether the game is rated and the rating is >= min.
func (g GameSummary) HasRatingAtLeast(min int) bool {
	return g.Rating != nil && *g.Rating >= min
}

// Summarize converts library entries to summaries, preserving order.
func Summarize(entries []Entry) []GameSummary {
	out := make([]GameSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, GameSummary{
			ID:            e.Game.ID,
			Name:          e.Game.Name,
			Genres:        e.Game.Genres,
			Status:        e.Status,
			Rating:        e.Rating,
			PlaytimeHours: float64(e.PlaytimeMinutes) / 60.0,
			CompletionPct: e.CompletionPct,
			SeriesName:    e.Game.SeriesName,
			ReleaseYear:   e.Game.ReleaseYear,
		})
	}
	return out
}

// FilterStatus keeps summaries whose status is in statuses, preserving order.
// An empty statuses list keeps everything.
func FilterStatus(games []GameSummary, statuses ...Status) []GameSummary {
	if len(statuses) == 0 {
		return games
	}
	allowed := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		if allowed[g.Status] {
			out = append(out, g)
		}
	}
	return out
}

// Games extracts the catalog games from entries.
func Games(entries []Entry) []Game {
	out := make([]Game, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Game)
	}
	return out
}

// IndexByName maps exact (whitespace-trimmed) game names to ids.
// When two games share a name the first one wins.
func IndexByName(games []GameSummary) map[string]string {
	idx := make(map[string]string, len(games))
	for _, g := range games {
		name := strings.TrimSpace(g.Name)
		if _, exists := idx[name]; !exists {
			idx[name] = g.ID
		}
	}
	return idx
}

// IntPtr returns a pointer to v. Handy for ratings in fixtures.
func IntPtr(v int) *int {
	return &v
}
