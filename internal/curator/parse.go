package curator

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/provider"
)

var errEmptyOutput = errors.New("empty model output")

// decodeOutput unmarshals the JSON body of a completion into dst. Markdown
// code fences and text around the outermost object are ignored.
func decodeOutput(resp provider.TextResponse, maxTokens int, dst interface{}) error {
	if resp.Truncated() {
		return &ParseError{Truncated: true, MaxTokens: maxTokens}
	}

	body := extractJSON(resp.Text)
	if body == "" {
		return &ParseError{Err: errEmptyOutput}
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// extractJSON strips code fences and returns the outermost {...} span.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

// mapNames resolves names to library ids by exact trimmed match. Unmatched
// names are returned separately and dropped from the result.
func mapNames(names []string, index map[string]string) (matchedNames, ids, unmatched []string) {
	matchedNames = []string{}
	ids = []string{}
	seen := map[string]bool{}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		id, ok := index[trimmed]
		if !ok {
			unmatched = append(unmatched, name)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		matchedNames = append(matchedNames, trimmed)
		ids = append(ids, id)
	}
	return matchedNames, ids, unmatched
}
