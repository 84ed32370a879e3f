package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

// LayeredStore serves the four retrieval levels plus the edge table from
// Postgres. Meta and embedding columns are JSONB so ingest pipelines can
// evolve their payloads without migrations.
type LayeredStore struct {
	db *sql.DB
}

func NewLayeredStore(db *sql.DB) *LayeredStore {
	return &LayeredStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *LayeredStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS kcs (
	kc_id TEXT PRIMARY KEY,
	q TEXT NOT NULL,
	a_ref TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS docs (
	doc_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	meta JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS graph (
	node_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES docs(doc_id),
	node_type TEXT NOT NULL,
	label TEXT NOT NULL,
	page INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
	edge_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES docs(doc_id),
	src TEXT NOT NULL,
	dst TEXT NOT NULL,
	edge_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES docs(doc_id),
	page_from INTEGER NOT NULL DEFAULT 0,
	page_to INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL,
	embedding JSONB
);

CREATE INDEX IF NOT EXISTS idx_graph_label ON graph(label);
CREATE INDEX IF NOT EXISTS idx_graph_doc_id ON graph(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_unembedded ON chunks(chunk_id) WHERE embedding IS NULL;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *LayeredStore) FetchKnowledgeCards(ctx context.Context, limit int) ([]domain.KnowledgeCard, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT kc_id, q, a_ref
FROM kcs
ORDER BY kc_id
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query knowledge cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.KnowledgeCard{}
	for rows.Next() {
		var card domain.KnowledgeCard
		if err := rows.Scan(&card.ID, &card.Question, &card.AnswerRef); err != nil {
			return nil, fmt.Errorf("scan knowledge card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge cards: %w", err)
	}
	return cards, nil
}

func (s *LayeredStore) FetchDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
SELECT doc_id, title, meta
FROM docs
ORDER BY doc_id
LIMIT $1
`, limit)
}

func (s *LayeredStore) FetchRecentDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
SELECT doc_id, title, meta
FROM docs
ORDER BY doc_id DESC
LIMIT $1
`, limit)
}

func (s *LayeredStore) queryDocuments(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		var metaRaw []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &metaRaw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &doc.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal document meta: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *LayeredStore) FetchGraphNodes(ctx context.Context, limit int) ([]domain.GraphNode, error) {
	return s.queryGraphNodes(ctx, `
SELECT node_id, doc_id, node_type, label, page
FROM graph
ORDER BY node_id
LIMIT $1
`, limit)
}

func (s *LayeredStore) SearchGraphNodes(ctx context.Context, label string, limit int) ([]domain.GraphNode, error) {
	return s.queryGraphNodes(ctx, `
SELECT node_id, doc_id, node_type, label, page
FROM graph
WHERE label ILIKE '%' || $1 || '%'
ORDER BY node_id
LIMIT $2
`, label, limit)
}

func (s *LayeredStore) queryGraphNodes(ctx context.Context, query string, args ...any) ([]domain.GraphNode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query graph nodes: %w", err)
	}
	defer rows.Close()

	nodes := []domain.GraphNode{}
	for rows.Next() {
		var node domain.GraphNode
		if err := rows.Scan(&node.ID, &node.DocumentID, &node.NodeType, &node.Label, &node.Page); err != nil {
			return nil, fmt.Errorf("scan graph node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graph nodes: %w", err)
	}
	return nodes, nil
}

func (s *LayeredStore) FetchEdges(ctx context.Context, limit int) ([]domain.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT edge_id, doc_id, src, dst, edge_type
FROM edges
ORDER BY edge_id
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []domain.Edge{}
	for rows.Next() {
		var edge domain.Edge
		if err := rows.Scan(&edge.ID, &edge.DocumentID, &edge.SourceID, &edge.TargetID, &edge.EdgeType); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func (s *LayeredStore) FetchChunks(ctx context.Context, limit int) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
SELECT chunk_id, doc_id, page_from, page_to, text, embedding
FROM chunks
ORDER BY chunk_id
LIMIT $1
`, limit)
}

func (s *LayeredStore) FetchChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
SELECT chunk_id, doc_id, page_from, page_to, text, embedding
FROM chunks
WHERE embedding IS NULL
ORDER BY chunk_id
LIMIT $1
`, limit)
}

func (s *LayeredStore) queryChunks(ctx context.Context, query string, limit int) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingRaw []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.PageFrom, &chunk.PageTo, &chunk.Text, &embeddingRaw); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(embeddingRaw) > 0 {
			if err := json.Unmarshal(embeddingRaw, &chunk.Embedding); err != nil {
				return nil, fmt.Errorf("unmarshal chunk embedding: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

func (s *LayeredStore) SaveChunkEmbedding(ctx context.Context, chunkID string, vector []float32) error {
	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal chunk embedding: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
UPDATE chunks
SET embedding = $2
WHERE chunk_id = $1
`, chunkID, embeddingJSON)
	if err != nil {
		return fmt.Errorf("save chunk embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save chunk embedding: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("save chunk embedding: chunk not found: %s", chunkID)
	}
	return nil
}

func (s *LayeredStore) CountRecords(ctx context.Context, level domain.RetrievalLevel) (int, error) {
	table, ok := levelTables[level]
	if !ok {
		return 0, fmt.Errorf("count records: unknown level %d", level)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// levelTables is the fixed level-to-table map; levels never address
// arbitrary tables.
var levelTables = map[domain.RetrievalLevel]string{
	domain.LevelSubjects:   "kcs",
	domain.LevelDocuments:  "docs",
	domain.LevelGraphNodes: "graph",
	domain.LevelEdges:      "edges",
	domain.LevelChunks:     "chunks",
}
