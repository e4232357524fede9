package embedding

import (
	"strconv"
	"strings"

	"github.com/khanglvm/game-curator/internal/library"
)

// GameText builds the canonical text for a catalog game. Empty optional
// fields are omitted entirely so identical content always hashes the same.
func GameText(g library.Game) string {
	var b labeledText
	b.add("Game", g.Name)
	b.add("Genres", joinGenres(g.Genres))
	b.add("Description", g.Description)
	b.add("Series", g.SeriesName)
	if g.ReleaseYear > 0 {
		b.add("Released", strconv.Itoa(g.ReleaseYear))
	}
	return b.String()
}

// CollectionText builds the canonical text for a collection.
func CollectionText(name, description string) string {
	var b labeledText
	b.add("Collection", name)
	b.add("Description", description)
	return b.String()
}

// SignalText renders a preference signal as "name (genres)" lines.
func SignalText(games []library.Game) string {
	lines := make([]string, 0, len(games))
	for _, g := range games {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		if genres := joinGenres(g.Genres); genres != "" {
			lines = append(lines, name+" ("+genres+")")
		} else {
			lines = append(lines, name)
		}
	}
	return strings.Join(lines, "\n")
}

func joinGenres(genres []string) string {
	kept := make([]string, 0, len(genres))
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			kept = append(kept, g)
		}
	}
	return strings.Join(kept, ", ")
}

type labeledText struct {
	lines []string
}

func (t *labeledText) add(label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		t.lines = append(t.lines, label+": "+value)
	}
}

func (t *labeledText) String() string {
	return strings.Join(t.lines, "\n")
}
