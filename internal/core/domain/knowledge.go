package domain

// Document is an ingested source document. Read-only to this engine.
type Document struct {
	ID    string            `json:"doc_id"`
	Title string            `json:"title"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Chunk is a bounded span of text belonging to a document, the finest
// retrieval granularity. Embedding is optional and may be nil until the
// embed worker has visited the chunk.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"doc_id"`
	PageFrom   int       `json:"page_from,omitempty"`
	PageTo     int       `json:"page_to,omitempty"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// GraphNode is an extracted topic/entity within a document.
type GraphNode struct {
	ID         string `json:"id"`
	DocumentID string `json:"doc_id"`
	NodeType   string `json:"ntype"`
	Label      string `json:"label"`
	Page       int    `json:"page,omitempty"`
}

// Edge connects two graph nodes within a document.
type Edge struct {
	ID         string `json:"id"`
	DocumentID string `json:"doc_id"`
	SourceID   string `json:"src"`
	TargetID   string `json:"dst"`
	EdgeType   string `json:"etype"`
}

// KnowledgeCard is a pre-extracted question/answer unit used as a coarse
// topic index (level 0 of a bundle).
type KnowledgeCard struct {
	ID        string `json:"id"`
	Question  string `json:"q"`
	AnswerRef string `json:"a_ref"`
}
