package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

// GraphStore serves the graph retrieval level from Neo4j when a graph
// database is deployed alongside Postgres. It covers only node and edge
// reads; the remaining levels stay on the relational store.
type GraphStore struct {
	driver neo4j.DriverWithContext
}

type Config struct {
	URI      string
	Username string
	Password string
}

func New(cfg Config) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &GraphStore{driver: driver}, nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *GraphStore) VerifyConnectivity(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *GraphStore) FetchGraphNodes(ctx context.Context, limit int) ([]domain.GraphNode, error) {
	return s.queryNodes(ctx, `
MATCH (n:Node)
RETURN n.node_id AS node_id, n.doc_id AS doc_id, n.node_type AS node_type, n.label AS label, n.page AS page
ORDER BY node_id
LIMIT $limit
`, map[string]any{"limit": limit})
}

func (s *GraphStore) SearchGraphNodes(ctx context.Context, label string, limit int) ([]domain.GraphNode, error) {
	return s.queryNodes(ctx, `
MATCH (n:Node)
WHERE toLower(n.label) CONTAINS toLower($label)
RETURN n.node_id AS node_id, n.doc_id AS doc_id, n.node_type AS node_type, n.label AS label, n.page AS page
ORDER BY node_id
LIMIT $limit
`, map[string]any{"label": label, "limit": limit})
}

func (s *GraphStore) queryNodes(ctx context.Context, cypher string, params map[string]any) ([]domain.GraphNode, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("query graph nodes: %w", err)
	}

	nodes := []domain.GraphNode{}
	for _, record := range result.Records {
		node := domain.GraphNode{
			ID:         stringValue(record, "node_id"),
			DocumentID: stringValue(record, "doc_id"),
			NodeType:   stringValue(record, "node_type"),
			Label:      stringValue(record, "label"),
			Page:       intValue(record, "page"),
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *GraphStore) FetchEdges(ctx context.Context, limit int) ([]domain.Edge, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, `
MATCH (a:Node)-[r:RELATES]->(b:Node)
RETURN r.edge_id AS edge_id, r.doc_id AS doc_id, a.node_id AS src, b.node_id AS dst, r.edge_type AS edge_type
ORDER BY edge_id
LIMIT $limit
`, map[string]any{"limit": limit}, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}

	edges := []domain.Edge{}
	for _, record := range result.Records {
		edges = append(edges, domain.Edge{
			ID:         stringValue(record, "edge_id"),
			DocumentID: stringValue(record, "doc_id"),
			SourceID:   stringValue(record, "src"),
			TargetID:   stringValue(record, "dst"),
			EdgeType:   stringValue(record, "edge_type"),
		})
	}
	return edges, nil
}

func stringValue(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	s, _ := value.(string)
	return s
}

func intValue(record *neo4j.Record, key string) int {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	n, _ := value.(int64)
	return int(n)
}
