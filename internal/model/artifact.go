package model

import "time"

// ArtifactKind classifies an uploaded blob for routing to an extractor.
type ArtifactKind string

const (
	ArtifactKindImage       ArtifactKind = "image"       // routed to the vision extractor
	ArtifactKindDocument    ArtifactKind = "document"    // routed to the document extractor
	ArtifactKindUnsupported ArtifactKind = "unsupported" // recorded, excluded from extraction
)

// Artifact is one stored blob belonging to a claim job. Immutable once listed.
type Artifact struct {
	Key          string       `json:"key"`           // full storage key (users/{userId}/{fileName})
	Name         string       `json:"name"`          // file name portion of the key
	Size         int64        `json:"size"`          // bytes
	LastModified time.Time    `json:"last_modified"` // storage mtime
	ContentType  string       `json:"content_type,omitempty"`
	Kind         ArtifactKind `json:"kind"`
}
