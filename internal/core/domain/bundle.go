package domain

// RetrievalLevel identifies one layer of the knowledge store.
type RetrievalLevel int

const (
	LevelSubjects RetrievalLevel = iota
	LevelDocuments
	LevelGraphNodes
	LevelEdges
	LevelChunks
)

func (l RetrievalLevel) String() string {
	switch l {
	case LevelSubjects:
		return "subjects"
	case LevelDocuments:
		return "documents"
	case LevelGraphNodes:
		return "graph_nodes"
	case LevelEdges:
		return "edges"
	case LevelChunks:
		return "chunks"
	default:
		return "unknown"
	}
}

// BundleLimits bounds how many candidates each bundle level keeps after
// scoring, plus the character budget applied to chunk text on output.
type BundleLimits struct {
	Subjects     int `json:"l0"`
	Documents    int `json:"l1"`
	GraphNodes   int `json:"l2"`
	Chunks       int `json:"l3"`
	ChunkTextMax int `json:"chunk_text_max"`
}

// BundleMeta records how a bundle was produced.
type BundleMeta struct {
	Limits          BundleLimits `json:"limits"`
	LexicalFallback bool         `json:"lexical_fallback"`
	Notes           []string     `json:"notes,omitempty"`
}

// Bundle is a layered retrieval result for one topic: ranked subjects,
// documents, graph nodes and chunks. Ephemeral and request-scoped; the
// four lists are always non-nil.
type Bundle struct {
	Topic      string          `json:"topic"`
	Subjects   []KnowledgeCard `json:"l0"`
	Documents  []Document      `json:"l1"`
	GraphNodes []GraphNode     `json:"l2"`
	Chunks     []Chunk         `json:"l3"`
	Meta       BundleMeta      `json:"meta"`
}

// RankedCandidate is a chunk annotated with a transient relevance score.
// It exists only within one reranking pass.
type RankedCandidate struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
