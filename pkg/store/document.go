package store

// Document is a retrieval candidate flowing through search and
// reranking. It is ephemeral: created by retrieval, scored in place by
// the reranker, discarded once the search call returns.
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"` // vector similarity from the store
	Metadata map[string]interface{} `json:"metadata"`

	// RerankScore is assigned by the heuristic reranker. Nil until the
	// document has been judged.
	RerankScore *float64 `json:"rerank_score,omitempty"`
}
