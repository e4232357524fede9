package mcp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/khanglvm/game-curator/internal/curator"
	"github.com/khanglvm/game-curator/internal/duplicate"
	"github.com/khanglvm/game-curator/internal/routing"
)

// mockCurator records calls and returns canned results.
type mockCurator struct {
	err      error
	lastUser string
	lastArgs []string
	minSim   float64
}

func (m *mockCurator) SuggestCollections(ctx context.Context, userID, theme string) (curator.CollectionSuggestions, error) {
	m.lastUser, m.lastArgs = userID, []string{theme}
	return curator.CollectionSuggestions{
		Collections: []curator.SuggestedCollection{{Name: "Cozy", GameIDs: []string{"g1"}}},
		Cost:        0.01,
	}, m.err
}

func (m *mockCurator) SuggestNextGame(ctx context.Context, userID, userInput string) (curator.NextGameSuggestion, error) {
	m.lastUser, m.lastArgs = userID, []string{userInput}
	return curator.NextGameSuggestion{Suggestion: curator.NextGame{GameName: "Celeste"}}, m.err
}

func (m *mockCurator) GenerateCollectionCover(ctx context.Context, userID, name, description, collectionID string) (curator.CoverResult, error) {
	m.lastUser, m.lastArgs = userID, []string{name, description, collectionID}
	return curator.CoverResult{ImageURL: "https://cdn.test/c1.png"}, m.err
}

func (m *mockCurator) CheckDuplicateCollection(ctx context.Context, userID, name, description string, minSimilarity float64) (duplicate.Result, error) {
	m.lastUser, m.lastArgs, m.minSim = userID, []string{name, description}, minSimilarity
	return duplicate.Result{IsDuplicate: true}, m.err
}

func (m *mockCurator) EstimateCost(ctx context.Context, userID string, task routing.TaskType) (curator.CostEstimate, error) {
	m.lastUser, m.lastArgs = userID, []string{string(task)}
	return curator.CostEstimate{Task: task, Model: "gpt-4o", USD: 0.04}, m.err
}

func call(t *testing.T, s *Server, tool string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": tool, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	req, err := json.Marshal(MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := s.handleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("handleRequest failed: %v", err)
	}
	return resp
}

func resultText(t *testing.T, resp *MCPResponse) string {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	return content[0]["text"].(string)
}

func TestInitialize(t *testing.T) {
	s := NewServer(&mockCurator{}, "alice")
	resp, err := s.handleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	if err != nil {
		t.Fatalf("handleRequest failed: %v", err)
	}
	info := resp.Result.(map[string]interface{})["serverInfo"].(map[string]interface{})
	if info["name"] != "game-curator" {
		t.Errorf("unexpected server name %v", info["name"])
	}
}

func TestToolsList(t *testing.T) {
	s := NewServer(&mockCurator{}, "alice")
	resp, err := s.handleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	if err != nil {
		t.Fatalf("handleRequest failed: %v", err)
	}

	tools := resp.Result.(map[string]interface{})["tools"].([]map[string]interface{})
	want := map[string]bool{
		"suggest_collections":        true,
		"suggest_next_game":          true,
		"generate_collection_cover":  true,
		"check_duplicate_collection": true,
		"estimate_cost":              true,
	}
	if len(tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools))
	}
	for _, tool := range tools {
		if !want[tool["name"].(string)] {
			t.Errorf("unexpected tool %v", tool["name"])
		}
		if _, ok := tool["inputSchema"]; !ok {
			t.Errorf("tool %v has no input schema", tool["name"])
		}
	}
}

func TestToolsCall_DefaultAndExplicitUser(t *testing.T) {
	m := &mockCurator{}
	s := NewServer(m, "alice")

	text := resultText(t, call(t, s, "suggest_collections", map[string]interface{}{"theme": "cozy"}))
	if m.lastUser != "alice" || m.lastArgs[0] != "cozy" {
		t.Errorf("unexpected call: user=%s args=%v", m.lastUser, m.lastArgs)
	}
	if !strings.Contains(text, `"Cozy"`) {
		t.Errorf("result should be JSON text, got %s", text)
	}

	resultText(t, call(t, s, "suggest_next_game", map[string]interface{}{"userId": "bob", "userInput": "short"}))
	if m.lastUser != "bob" || m.lastArgs[0] != "short" {
		t.Errorf("explicit user should win: user=%s args=%v", m.lastUser, m.lastArgs)
	}
}

func TestToolsCall_Arguments(t *testing.T) {
	m := &mockCurator{}
	s := NewServer(m, "alice")

	resultText(t, call(t, s, "check_duplicate_collection", map[string]interface{}{
		"name": "Cozy", "description": "calm", "minSimilarity": 0.9,
	}))
	if m.minSim != 0.9 || m.lastArgs[0] != "Cozy" {
		t.Errorf("unexpected duplicate args: %v %f", m.lastArgs, m.minSim)
	}

	resultText(t, call(t, s, "generate_collection_cover", map[string]interface{}{
		"name": "Cozy", "collectionId": "c1",
	}))
	if m.lastArgs[2] != "c1" {
		t.Errorf("unexpected cover args: %v", m.lastArgs)
	}

	text := resultText(t, call(t, s, "estimate_cost", map[string]interface{}{"taskType": "next_game"}))
	if !strings.Contains(text, "gpt-4o") {
		t.Errorf("unexpected estimate %s", text)
	}
}

func TestToolsCall_InvalidParams(t *testing.T) {
	s := NewServer(&mockCurator{}, "")

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"suggest_collections", map[string]interface{}{}},
		{"generate_collection_cover", map[string]interface{}{"userId": "a"}},
		{"check_duplicate_collection", map[string]interface{}{"userId": "a"}},
		{"estimate_cost", map[string]interface{}{"userId": "a", "taskType": "poetry"}},
		{"no_such_tool", map[string]interface{}{"userId": "a"}},
	}
	for _, tt := range tests {
		resp := call(t, s, tt.tool, tt.args)
		if resp.Error == nil || resp.Error.Code != codeInvalidParams {
			t.Errorf("%s: expected invalid params error, got %+v", tt.tool, resp.Error)
		}
	}
}

func TestToolsCall_ErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&curator.ConfigurationError{Provider: "openai"}, codeConfiguration},
		{&curator.NotFoundError{Resource: "library"}, codeNotFound},
		{&curator.ProviderError{Op: "generate", Err: errors.New("429")}, codeProvider},
		{&curator.ParseError{Truncated: true}, codeBadOutput},
		{errors.New("disk full"), codeInternal},
	}
	for _, tt := range tests {
		s := NewServer(&mockCurator{err: tt.err}, "alice")
		resp := call(t, s, "suggest_collections", nil)
		if resp.Error == nil || resp.Error.Code != tt.code {
			t.Errorf("%T: expected code %d, got %+v", tt.err, tt.code, resp.Error)
		}
	}
}

func TestServe(t *testing.T) {
	s := NewServer(&mockCurator{}, "alice")
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"bogus"}`,
	}, "\n"))
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %d: %q", len(lines), out.String())
	}

	var parseErr MCPResponse
	if err := json.Unmarshal([]byte(lines[1]), &parseErr); err != nil {
		t.Fatalf("bad response line: %v", err)
	}
	if parseErr.Error == nil || parseErr.Error.Code != codeParseError {
		t.Errorf("expected parse error, got %+v", parseErr)
	}

	var notFound MCPResponse
	if err := json.Unmarshal([]byte(lines[2]), &notFound); err != nil {
		t.Fatalf("bad response line: %v", err)
	}
	if notFound.Error == nil || notFound.Error.Code != codeMethodNotFound {
		t.Errorf("expected method not found, got %+v", notFound)
	}
}
