package domain

// ServiceDocument is a single hit from the vector index.
//
// RelevancyScore is the cosine distance reported by the index: lower means
// the embeddings are closer, hence more relevant. Consumers that need a
// higher-is-better value convert via 1 - RelevancyScore; the ranking engine
// is the one place that does so.
type ServiceDocument struct {
	ID             string         `json:"id"`
	Document       string         `json:"document"`
	Metadata       map[string]any `json:"metadata"`
	RelevancyScore float64        `json:"relevancy_score"`

	// Distance in km from the user location, filled in by the ranking engine
	// when the query carries a location. Nil otherwise.
	Distance *float64 `json:"distance,omitempty"`
}
