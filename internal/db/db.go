package db

import (
	"context"
	"time"
)

// Store is the contract for the vector index backend. The catalog is
// populated by external ingestion tooling; this process only reads.
type Store interface {
	Ping(ctx context.Context) error
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is the raw cosine distance reported by
// the index (lower = closer); converting to a similarity is the ranking
// engine's job.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
