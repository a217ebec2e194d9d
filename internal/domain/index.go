package domain

// IndexResult carries the parallel arrays returned by the vector index
// collaborator: all slices share length and order, nearest first.
// Distances are cosine distances (lower = more similar).
type IndexResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
	Distances []float64
}

// Empty reports whether the index returned no hits.
func (r *IndexResult) Empty() bool {
	return len(r.IDs) == 0
}
