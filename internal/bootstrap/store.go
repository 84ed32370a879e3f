package bootstrap

import (
	"context"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
	neo4jgraph "github.com/cleanlight/instant-sme/internal/infrastructure/graph/neo4j"
	"github.com/cleanlight/instant-sme/internal/infrastructure/resilience"
)

// graphOverlayStore serves the graph level from Neo4j while every other
// level stays on Postgres.
type graphOverlayStore struct {
	ports.LayeredStore
	graph *neo4jgraph.GraphStore
}

func (s *graphOverlayStore) FetchGraphNodes(ctx context.Context, limit int) ([]domain.GraphNode, error) {
	return s.graph.FetchGraphNodes(ctx, limit)
}

func (s *graphOverlayStore) SearchGraphNodes(ctx context.Context, label string, limit int) ([]domain.GraphNode, error) {
	return s.graph.SearchGraphNodes(ctx, label, limit)
}

func (s *graphOverlayStore) FetchEdges(ctx context.Context, limit int) ([]domain.Edge, error) {
	return s.graph.FetchEdges(ctx, limit)
}

// resilientStore retries transient store failures and breaks the
// circuit per fetch operation.
type resilientStore struct {
	inner    ports.LayeredStore
	executor *resilience.Executor
}

func newResilientStore(inner ports.LayeredStore, executor *resilience.Executor) *resilientStore {
	return &resilientStore{inner: inner, executor: executor}
}

func (s *resilientStore) FetchKnowledgeCards(ctx context.Context, limit int) ([]domain.KnowledgeCard, error) {
	var out []domain.KnowledgeCard
	err := s.executor.Execute(ctx, "store.fetch_knowledge_cards", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchKnowledgeCards(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) FetchDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	var out []domain.Document
	err := s.executor.Execute(ctx, "store.fetch_documents", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchDocuments(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) FetchGraphNodes(ctx context.Context, limit int) ([]domain.GraphNode, error) {
	var out []domain.GraphNode
	err := s.executor.Execute(ctx, "store.fetch_graph_nodes", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchGraphNodes(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) FetchEdges(ctx context.Context, limit int) ([]domain.Edge, error) {
	var out []domain.Edge
	err := s.executor.Execute(ctx, "store.fetch_edges", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchEdges(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) FetchChunks(ctx context.Context, limit int) ([]domain.Chunk, error) {
	var out []domain.Chunk
	err := s.executor.Execute(ctx, "store.fetch_chunks", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchChunks(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) SearchGraphNodes(ctx context.Context, label string, limit int) ([]domain.GraphNode, error) {
	var out []domain.GraphNode
	err := s.executor.Execute(ctx, "store.search_graph_nodes", func(ctx context.Context) error {
		var err error
		out, err = s.inner.SearchGraphNodes(ctx, label, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) FetchRecentDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	var out []domain.Document
	err := s.executor.Execute(ctx, "store.fetch_recent_documents", func(ctx context.Context) error {
		var err error
		out, err = s.inner.FetchRecentDocuments(ctx, limit)
		return err
	}, resilience.TransientClassifier)
	return out, err
}

func (s *resilientStore) CountRecords(ctx context.Context, level domain.RetrievalLevel) (int, error) {
	var out int
	err := s.executor.Execute(ctx, "store.count_records", func(ctx context.Context) error {
		var err error
		out, err = s.inner.CountRecords(ctx, level)
		return err
	}, resilience.TransientClassifier)
	return out, err
}
