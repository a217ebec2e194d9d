package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/healthrec/internal/db"
	"github.com/kailas-cloud/healthrec/internal/domain"
)

// Hash fields holding document payload in the index.
const (
	fieldContent  = "__content"
	fieldMetadata = "__metadata"
	fieldScore    = "__vector_score"
)

// store is the consumer interface for index queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo adapts the FT.SEARCH store to the vector index collaborator contract.
type Repo struct {
	store      store
	collection string
	keyPrefix  string
}

// New creates a vector index repository for one collection.
func New(s store, collection, keyPrefix string) *Repo {
	return &Repo{store: s, collection: collection, keyPrefix: keyPrefix}
}

// Query returns the nResults nearest documents to the embedding, as parallel
// arrays in nearest-first order. A reachable index with no hits yields an
// empty result, not an error.
func (r *Repo) Query(ctx context.Context, embedding []float32, nResults int) (domain.IndexResult, error) {
	q := &db.KNNQuery{
		IndexName:    fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection),
		Vector:       embedding,
		K:            nResults,
		ReturnFields: []string{fieldContent, fieldMetadata, fieldScore},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return domain.IndexResult{}, fmt.Errorf("search knn %s: %w: %w", r.collection, domain.ErrIndexUnavailable, err)
	}
	if sr == nil || sr.Total == 0 {
		return domain.IndexResult{}, nil
	}

	prefix := fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
	res := domain.IndexResult{
		IDs:       make([]string, 0, len(sr.Entries)),
		Documents: make([]string, 0, len(sr.Entries)),
		Metadatas: make([]map[string]any, 0, len(sr.Entries)),
		Distances: make([]float64, 0, len(sr.Entries)),
	}

	for _, entry := range sr.Entries {
		res.IDs = append(res.IDs, strings.TrimPrefix(entry.Key, prefix))
		res.Documents = append(res.Documents, entry.Fields[fieldContent])
		res.Metadatas = append(res.Metadatas, parseMetadata(entry.Fields[fieldMetadata]))
		res.Distances = append(res.Distances, entry.Score)
	}

	return res, nil
}

// parseMetadata decodes the JSON metadata field. Malformed metadata yields
// an empty map; the record itself is never dropped.
func parseMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}
