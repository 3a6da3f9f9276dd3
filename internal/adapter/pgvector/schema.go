// Package pgvector keeps the sink collections as Postgres tables, with
// embeddings stored in pgvector columns.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Nerdward/my-llm-twin/internal/vector"
)

const (
	pgDuplicateTable  = "42P07"
	pgDuplicateObject = "42710"
)

// Schema creates one table per collection.
type Schema struct {
	db *sql.DB
}

func NewSchema(db *sql.DB) *Schema {
	return &Schema{db: db}
}

func (s *Schema) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		return false, classify(err)
	}
	return exists, nil
}

// CreateCollection creates the table and, for vector collections, its index
// in one transaction.
func (s *Schema) CreateCollection(ctx context.Context, c vector.Collection) error {
	if c.Vectors {
		if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
			return classify(err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, CreateTableSQL(c)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && (pqErr.Code == pgDuplicateTable || pqErr.Code == pgDuplicateObject) {
			return fmt.Errorf("%w: %s", vector.ErrAlreadyExists, c.Name)
		}
		return classify(err)
	}

	if c.Vectors {
		if _, err := tx.ExecContext(ctx, CreateIndexSQL(c)); err != nil {
			return classify(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// Reconcile restores the cosine index of an existing vector table.
func (s *Schema) Reconcile(ctx context.Context, c vector.Collection) error {
	if !c.Vectors {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, CreateIndexSQL(c)); err != nil {
		return classify(err)
	}
	return nil
}

var _ vector.Reconciler = (*Schema)(nil)

// CreateTableSQL renders the DDL of a collection table.
func CreateTableSQL(c vector.Collection) string {
	table := pq.QuoteIdentifier(c.Name)
	if c.Vectors {
		return fmt.Sprintf(`CREATE TABLE %s (
	id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	embedding vector(%d) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table, c.Dimension)
	}
	return fmt.Sprintf(`CREATE TABLE %s (
	id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table)
}

// CreateIndexSQL renders the cosine HNSW index of a vector table.
func CreateIndexSQL(c vector.Collection) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
		pq.QuoteIdentifier(c.Name+"_embedding_idx"), pq.QuoteIdentifier(c.Name))
}
