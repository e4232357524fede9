package mcp

import "github.com/khanglvm/game-curator/internal/routing"

// userIDProperty is accepted by every tool; it falls back to the server's
// default user.
var userIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Library owner. Optional when the server was started with --user",
}

// handleToolsList returns the available tools with AI-facing descriptions.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	tools := []map[string]interface{}{
		{
			"name": "suggest_collections",
			"description": `Propose 3 to 5 themed collections built from the player's own library.

WHEN TO USE: The user wants to organize their games, or asks for groupings like "cozy games" or "short games for a weekend".

Returns: JSON with collections (name, description, gameNames, gameIds, reasoning) and the estimated cost in USD. Collections are NOT saved.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty,
					"theme": map[string]interface{}{
						"type":        "string",
						"description": "Optional free-text theme, e.g. \"atmospheric horror\"",
					},
				},
			},
		},
		{
			"name": "suggest_next_game",
			"description": `Pick the single best game to play next from the backlog and in-progress games.

WHEN TO USE: The user asks "what should I play next?" or describes a mood or time budget.

Returns: JSON with the suggestion (gameName, gameId, reasoning, estimatedHours) and the estimated cost in USD.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty,
					"userInput": map[string]interface{}{
						"type":        "string",
						"description": "Optional mood or constraint, e.g. \"something under 10 hours\"",
					},
				},
			},
		},
		{
			"name": "generate_collection_cover",
			"description": `Generate cover art for an existing collection and save its URL on the collection.

WHEN TO USE: After a collection is saved and the user wants artwork for it.

Returns: JSON with imageUrl and the estimated cost in USD.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty,
					"collectionId": map[string]interface{}{
						"type":        "string",
						"description": "Id of the user's collection",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Collection name used in the image prompt",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Collection description used in the image prompt",
					},
				},
				"required": []string{"collectionId"},
			},
		},
		{
			"name": "check_duplicate_collection",
			"description": `Check whether a proposed collection is semantically close to one the user already has.

WHEN TO USE: Before saving a new collection.

Returns: JSON with isDuplicate and up to 5 similarCollections, best first.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty,
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Proposed collection name",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Proposed collection description",
					},
					"minSimilarity": map[string]interface{}{
						"type":        "number",
						"description": "Cosine similarity threshold, default 0.85",
					},
				},
				"required": []string{"name"},
			},
		},
		{
			"name": "estimate_cost",
			"description": `Estimate the USD cost of one run of a task from the user's model settings. Nothing is generated.

WHEN TO USE: Before an expensive operation, or when the user asks what something will cost.`,
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"userId": userIDProperty,
					"taskType": map[string]interface{}{
						"type": "string",
						"enum": []string{
							string(routing.TaskCollectionSuggestions),
							string(routing.TaskNextGame),
							string(routing.TaskCoverImage),
						},
					},
				},
				"required": []string{"taskType"},
			},
		},
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": tools,
		},
	}
}
