package model

// PolicyChunk is one retrievable fragment of policy text, sourced from the
// external vector index and ranked by similarity score descending.
type PolicyChunk struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"` // includes the scope/source tag
	Score    float64        `json:"similarityScore"`
}
