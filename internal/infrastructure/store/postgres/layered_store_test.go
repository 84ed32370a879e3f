package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*LayeredStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &LayeredStore{db: db}, mock, func() { _ = db.Close() }
}

func TestFetchDocumentsUnmarshalsMeta(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"doc_id", "title", "meta"}).
		AddRow("D1", "Hat Construction", []byte(`{"author":"Reed"}`)).
		AddRow("D2", "Millinery Basics", []byte(`{}`))
	mock.ExpectQuery("SELECT doc_id, title, meta").
		WithArgs(8).
		WillReturnRows(rows)

	docs, err := store.FetchDocuments(context.Background(), 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Meta["author"] != "Reed" {
		t.Fatalf("meta not unmarshalled: %+v", docs[0].Meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFetchChunksScansNullEmbedding(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"chunk_id", "doc_id", "page_from", "page_to", "text", "embedding"}).
		AddRow("c1", "D1", 12, 12, "Stitch the brim.", nil).
		AddRow("c2", "D1", 13, 13, "Press the seam.", []byte(`[0.5,0.5]`))
	mock.ExpectQuery("SELECT chunk_id, doc_id, page_from, page_to, text, embedding").
		WithArgs(40).
		WillReturnRows(rows)

	chunks, err := store.FetchChunks(context.Background(), 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Embedding != nil {
		t.Fatalf("null embedding must stay nil, got %v", chunks[0].Embedding)
	}
	if len(chunks[1].Embedding) != 2 {
		t.Fatalf("stored embedding not decoded: %v", chunks[1].Embedding)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchGraphNodesPassesPattern(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"node_id", "doc_id", "node_type", "label", "page"}).
		AddRow("n1", "D1", "term", "felled seam", 12)
	mock.ExpectQuery("SELECT node_id, doc_id, node_type, label, page").
		WithArgs("seam", 50).
		WillReturnRows(rows)

	nodes, err := store.SearchGraphNodes(context.Background(), "seam", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Label != "felled seam" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChunkEmbeddingMissingChunk(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE chunks").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveChunkEmbedding(context.Background(), "missing", []float32{0.1})
	if err == nil {
		t.Fatalf("expected error for missing chunk")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountRecordsRejectsUnknownLevel(t *testing.T) {
	store, _, done := newStoreWithMock(t)
	defer done()

	if _, err := store.CountRecords(context.Background(), domain.RetrievalLevel(99)); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestCountRecordsPerLevelTable(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM chunks").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))

	count, err := store.CountRecords(context.Background(), domain.LevelChunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 40 {
		t.Fatalf("expected 40, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFetchEdgesPropagatesQueryError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT edge_id, doc_id, src, dst, edge_type").
		WithArgs(100).
		WillReturnError(errors.New("relation edges does not exist"))

	if _, err := store.FetchEdges(context.Background(), 100); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
