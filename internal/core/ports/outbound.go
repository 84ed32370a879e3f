package ports

import (
	"context"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

// LayeredStore reads bounded candidate sets from the knowledge store,
// one typed method per retrieval level.
type LayeredStore interface {
	FetchKnowledgeCards(ctx context.Context, limit int) ([]domain.KnowledgeCard, error)
	FetchDocuments(ctx context.Context, limit int) ([]domain.Document, error)
	FetchGraphNodes(ctx context.Context, limit int) ([]domain.GraphNode, error)
	FetchEdges(ctx context.Context, limit int) ([]domain.Edge, error)
	FetchChunks(ctx context.Context, limit int) ([]domain.Chunk, error)

	// SearchGraphNodes looks nodes up by label substring, used for hint
	// recommendations.
	SearchGraphNodes(ctx context.Context, label string, limit int) ([]domain.GraphNode, error)

	// FetchRecentDocuments orders by document id descending, a crude
	// recency proxy when no ingest timestamp exists.
	FetchRecentDocuments(ctx context.Context, limit int) ([]domain.Document, error)

	CountRecords(ctx context.Context, level domain.RetrievalLevel) (int, error)
}

// ChunkEmbeddingStore is the write-side contract used by the embed worker.
type ChunkEmbeddingStore interface {
	FetchChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error)
	SaveChunkEmbedding(ctx context.Context, chunkID string, vector []float32) error
}

// EmbeddingProvider turns texts into unit-length vectors. Implementations
// must be safe for concurrent use; initialization failures surface as
// errors on every call so callers can fall back to lexical scoring.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ConsistencyChecker flags likely contradictions among top candidates.
// The shipped implementation is a conservative stub; the contract shape
// is the extension point for a real NLI model.
type ConsistencyChecker interface {
	Check(candidates []domain.RankedCandidate) (score float64, contradictions []string)
}

// JobQueue publishes/consumes chunk re-embedding jobs.
type JobQueue interface {
	PublishReembed(ctx context.Context, jobID string) error
	SubscribeReembed(ctx context.Context, handler func(context.Context, string) error) error
}
