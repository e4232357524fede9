/*
Package mcp implements the MCP server that exposes the curation operations.

The server uses stdio transport and exposes 5 tools:
  - suggest_collections: Propose themed collections from the library
  - suggest_next_game: Pick the next game to play from backlog and in-progress games
  - generate_collection_cover: Draw cover art for an existing collection
  - check_duplicate_collection: Find existing collections close to a proposed one
  - estimate_cost: Estimate the spend of one run of a task
*/
package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khanglvm/game-curator/internal/curator"
	"github.com/khanglvm/game-curator/internal/duplicate"
	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/version"
)

// JSON-RPC error codes. Codes above -32099 are application errors.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32000
	codeConfiguration  = -32001
	codeNotFound       = -32002
	codeProvider       = -32003
	codeBadOutput      = -32004
)

// maxLineSize bounds one request line.
const maxLineSize = 4 * 1024 * 1024

// Curator is the set of operations the server exposes.
type Curator interface {
	SuggestCollections(ctx context.Context, userID, theme string) (curator.CollectionSuggestions, error)
	SuggestNextGame(ctx context.Context, userID, userInput string) (curator.NextGameSuggestion, error)
	GenerateCollectionCover(ctx context.Context, userID, name, description, collectionID string) (curator.CoverResult, error)
	CheckDuplicateCollection(ctx context.Context, userID, name, description string, minSimilarity float64) (duplicate.Result, error)
	EstimateCost(ctx context.Context, userID string, task routing.TaskType) (curator.CostEstimate, error)
}

// Server represents the game-curator MCP server.
type Server struct {
	curator     Curator
	defaultUser string
	log         zerolog.Logger
}

// NewServer creates a server. defaultUser is used when a tool call does not
// name a user.
func NewServer(c Curator, defaultUser string) *Server {
	return &Server{
		curator:     c,
		defaultUser: defaultUser,
		log:         logging.Component("mcp"),
	}
}

// Run serves on stdio until stdin is closed.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		response, err := s.handleRequest(ctx, line)
		if err != nil {
			s.send(w, &MCPResponse{
				JSONRPC: "2.0",
				Error:   &MCPError{Code: codeParseError, Message: err.Error()},
			})
			continue
		}

		if response != nil {
			s.send(w, response)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// handleRequest processes an incoming MCP request. Notifications (no id)
// get no response.
func (s *Server) handleRequest(ctx context.Context, data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req), nil
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		return s.handleToolsList(&req), nil
	case "tools/call":
		return s.handleToolsCall(ctx, &req), nil
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found"), nil
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "game-curator",
				"version": version.Version,
			},
		},
	}
}

// toolCall is the decoded tools/call params.
type toolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (c toolCall) str(key string) string {
	v, _ := c.Arguments[key].(string)
	return v
}

func (c toolCall) float(key string) float64 {
	v, _ := c.Arguments[key].(float64)
	return v
}

// handleToolsCall dispatches a tool call and renders its result as JSON text.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var call toolCall
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}

	userID := call.str("userId")
	if userID == "" {
		userID = s.defaultUser
	}
	if userID == "" {
		return errorResponse(req.ID, codeInvalidParams, "userId is required")
	}

	ctx = logging.WithCorrelationID(ctx)
	var (
		result interface{}
		err    error
	)

	switch call.Name {
	case "suggest_collections":
		result, err = s.curator.SuggestCollections(ctx, userID, call.str("theme"))
	case "suggest_next_game":
		result, err = s.curator.SuggestNextGame(ctx, userID, call.str("userInput"))
	case "generate_collection_cover":
		if call.str("collectionId") == "" {
			return errorResponse(req.ID, codeInvalidParams, "collectionId is required")
		}
		result, err = s.curator.GenerateCollectionCover(ctx, userID,
			call.str("name"), call.str("description"), call.str("collectionId"))
	case "check_duplicate_collection":
		if call.str("name") == "" {
			return errorResponse(req.ID, codeInvalidParams, "name is required")
		}
		result, err = s.curator.CheckDuplicateCollection(ctx, userID,
			call.str("name"), call.str("description"), call.float("minSimilarity"))
	case "estimate_cost":
		task := routing.TaskType(call.str("taskType"))
		if !task.Valid() {
			return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown taskType %q", task))
		}
		result, err = s.curator.EstimateCost(ctx, userID, task)
	default:
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	if err != nil {
		s.log.Warn().Err(err).Str("tool", call.Name).Str("user", userID).Msg("Tool call failed")
		return errorResponse(req.ID, errorCode(err), err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResponse(req.ID, codeInternal, fmt.Sprintf("failed to encode result: %v", err))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// errorCode maps curator error types to JSON-RPC codes.
func errorCode(err error) int {
	var (
		configErr   *curator.ConfigurationError
		notFound    *curator.NotFoundError
		providerErr *curator.ProviderError
		parseErr    *curator.ParseError
	)
	switch {
	case errors.As(err, &configErr):
		return codeConfiguration
	case errors.As(err, &notFound):
		return codeNotFound
	case errors.As(err, &providerErr):
		return codeProvider
	case errors.As(err, &parseErr):
		return codeBadOutput
	default:
		return codeInternal
	}
}

func errorResponse(id interface{}, code int, msg string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: msg},
	}
}

// send writes a JSON-RPC response as one line.
func (s *Server) send(w io.Writer, resp *MCPResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to write response")
	}
}
