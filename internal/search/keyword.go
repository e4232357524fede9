package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/khanglvm/game-curator/internal/library"
	"github.com/khanglvm/game-curator/internal/logging"
)

// removeBatchSize bounds how many documents RemoveUser fetches per pass.
const removeBatchSize = 1000

// KeywordIndex is an in-memory BM25 index of library text, partitioned by user.
type KeywordIndex struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
}

// NewKeywordIndex creates an in-memory bleve index.
func NewKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &KeywordIndex{bleveIndex: index}, nil
}

// buildIndexMapping maps library documents: text fields are analyzed and
// searchable, user and status are exact-match keywords.
func buildIndexMapping() mapping.IndexMapping {
	gameMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"name", "genres", "description", "series"} {
		gameMapping.AddFieldMappingsAt(field, bleve.NewTextFieldMapping())
	}

	for _, field := range []string{"user", "status"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		gameMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", gameMapping)
	return indexMapping
}

func docID(userID, gameID string) string {
	return userID + "/" + gameID
}

// IndexLibrary replaces the user's documents with entries.
func (k *KeywordIndex) IndexLibrary(userID string, entries []library.Entry) error {
	if err := k.RemoveUser(userID); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.bleveIndex.NewBatch()
	for _, e := range entries {
		doc := map[string]interface{}{
			"name":        e.Game.Name,
			"genres":      strings.Join(e.Game.Genres, " "),
			"description": e.Game.Description,
			"series":      e.Game.SeriesName,
			"user":        userID,
			"status":      string(e.Status),
		}
		id := docID(userID, e.Game.ID)
		if err := batch.Index(id, doc); err != nil {
			log := logging.Component("search")
			log.Warn().Err(err).Str("doc", id).Msg("Failed to index game")
		}
	}

	if err := k.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index library: %w", err)
	}
	return nil
}

// RemoveUser deletes every document belonging to userID.
func (k *KeywordIndex) RemoveUser(userID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for {
		req := bleve.NewSearchRequestOptions(userQuery(userID), removeBatchSize, 0, false)
		results, err := k.bleveIndex.Search(req)
		if err != nil {
			return fmt.Errorf("failed to find user docs: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}

		batch := k.bleveIndex.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := k.bleveIndex.Batch(batch); err != nil {
			return fmt.Errorf("failed to batch delete: %w", err)
		}
	}
}

// Search runs a BM25 match over the user's documents, optionally limited to
// statuses. Scores are scaled so the best hit is 1.
func (k *KeywordIndex) Search(userID, text string, limit int, statuses []library.Status) ([]Result, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultLimit
	}

	var textQuery query.Query = bleve.NewMatchAllQuery()
	if strings.TrimSpace(text) != "" {
		textQuery = bleve.NewMatchQuery(text)
	}
	conjuncts := []query.Query{textQuery, userQuery(userID)}

	if len(statuses) > 0 {
		disjuncts := make([]query.Query, 0, len(statuses))
		for _, st := range statuses {
			tq := bleve.NewTermQuery(string(st))
			tq.SetField("status")
			disjuncts = append(disjuncts, tq)
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(disjuncts...))
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(conjuncts...), limit, 0, false)
	req.Fields = []string{"name"}

	results, err := k.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	prefix := userID + "/"
	for _, hit := range results.Hits {
		name, _ := hit.Fields["name"].(string)
		out = append(out, Result{
			EntityID:   strings.TrimPrefix(hit.ID, prefix),
			Similarity: hit.Score,
			Label:      name,
		})
	}
	return scaleScores(out), nil
}

// Count returns the number of indexed documents.
func (k *KeywordIndex) Count() (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	n, err := k.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return n, nil
}

// Close closes the index and releases resources.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.bleveIndex != nil {
		return k.bleveIndex.Close()
	}
	return nil
}

func userQuery(userID string) query.Query {
	q := bleve.NewTermQuery(userID)
	q.SetField("user")
	return q
}

// scaleScores divides every score by the best one, mapping into (0, 1].
func scaleScores(results []Result) []Result {
	if len(results) == 0 {
		return results
	}
	maxScore := results[0].Similarity
	for _, r := range results {
		if r.Similarity > maxScore {
			maxScore = r.Similarity
		}
	}
	if maxScore <= 0 {
		for i := range results {
			results[i].Similarity = 1.0
		}
		return results
	}
	for i := range results {
		results[i].Similarity /= maxScore
	}
	return results
}
