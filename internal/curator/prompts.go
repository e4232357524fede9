package curator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/khanglvm/game-curator/internal/learning"
	"github.com/khanglvm/game-curator/internal/library"
)

const collectionsSystemPrompt = `You are a video game curator. You group games from a player's library into themed collections.
Only use games that appear in the library list, and copy their names exactly as written.
Respond with JSON only, in this shape:
{"collections":[{"name":"...","description":"...","gameNames":["..."],"reasoning":"..."}]}`

const nextGameSystemPrompt = `You are a video game advisor. You pick the single best game for a player to play next from their backlog and in-progress games.
Only pick a game that appears in the list, and copy its name exactly as written.
Respond with JSON only, in this shape:
{"gameName":"...","reasoning":"...","estimatedHours":12}`

// collectionsPrompt renders the user prompt for collection suggestions.
func collectionsPrompt(games []library.GameSummary, theme string) string {
	var b strings.Builder
	if theme != "" {
		fmt.Fprintf(&b, "Theme: %s\n\n", theme)
		b.WriteString("Suggest 3 to 5 collections that fit the theme.\n\n")
	} else {
		b.WriteString("Suggest 3 to 5 collections that group the library in interesting ways.\n\n")
	}
	b.WriteString("Library:\n")
	writeGames(&b, games)
	return b.String()
}

// nextGamePrompt renders the user prompt for a next-game suggestion.
func nextGamePrompt(games []library.GameSummary, matches []learning.TasteMatch, userInput string) string {
	var b strings.Builder
	if userInput != "" {
		fmt.Fprintf(&b, "What the player is in the mood for: %s\n\n", userInput)
	}
	if len(matches) > 0 {
		b.WriteString("Closest matches to the player's taste:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s\n", m.Name)
		}
		b.WriteString("\n")
	}
	b.WriteString("Candidates:\n")
	writeGames(&b, games)
	return b.String()
}

// coverPrompt renders the image prompt for a collection cover.
func coverPrompt(name, description string) string {
	prompt := fmt.Sprintf("Cover art for a video game collection titled %q.", name)
	if description != "" {
		prompt += " Theme: " + description + "."
	}
	return prompt + " Stylized illustration, no text, no logos, no existing game characters."
}

// writeGames renders one line per game: name, genres, status and the
// optional rating, playtime and completion fields.
func writeGames(b *strings.Builder, games []library.GameSummary) {
	for _, g := range games {
		parts := []string{g.Name}
		if len(g.Genres) > 0 {
			parts = append(parts, strings.Join(g.Genres, "/"))
		}
		parts = append(parts, string(g.Status))
		if g.Rating != nil {
			parts = append(parts, "rated "+strconv.Itoa(*g.Rating)+"/10")
		}
		if g.PlaytimeHours > 0 {
			parts = append(parts, strconv.FormatFloat(g.PlaytimeHours, 'f', 1, 64)+"h played")
		}
		if g.CompletionPct > 0 {
			parts = append(parts, strconv.Itoa(g.CompletionPct)+"% complete")
		}
		b.WriteString("- ")
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
}
