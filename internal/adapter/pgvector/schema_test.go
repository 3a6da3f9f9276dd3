package pgvector

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/vector"
)

func TestSchema_EnsureCollections_CreatesSixThenNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	schema := NewSchema(db)
	collections := vector.Collections(4)

	for _, c := range collections {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1) IS NOT NULL")).
			WithArgs(c.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		if c.Vectors {
			mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "` + c.Name + `"`)).WillReturnResult(sqlmock.NewResult(0, 0))
		if c.Vectors {
			expectIndex(mock, c.Name).WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()
	}

	created, err := vector.EnsureCollections(context.Background(), schema, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, created)

	for _, c := range collections {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1) IS NOT NULL")).
			WithArgs(c.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		if c.Vectors {
			expectIndex(mock, c.Name).WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}

	created, err = vector.EnsureCollections(context.Background(), schema, 4)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_CreateCollection_DuplicateTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(&pq.Error{Code: "42P07", Message: "relation already exists"})
	mock.ExpectRollback()

	err = NewSchema(db).CreateCollection(context.Background(), vector.Collection{Name: "cleaned_posts"})
	assert.ErrorIs(t, err, vector.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectIndex(mock sqlmock.Sqlmock, name string) *sqlmock.ExpectedExec {
	return mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "` + name + `_embedding_idx"`))
}

func TestSchema_IndexFailureRollsBackTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := vector.Collection{Name: "vector_posts", Vectors: true, Dimension: 4}
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "vector_posts"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	expectIndex(mock, c.Name).WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err = NewSchema(db).CreateCollection(context.Background(), c)
	assert.ErrorIs(t, err, models.ErrWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_RerunRestoresMissingIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Every table exists, as after a bootstrap whose index step failed.
	for _, c := range vector.Collections(4) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1) IS NOT NULL")).
			WithArgs(c.Name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		if c.Vectors {
			expectIndex(mock, c.Name).WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}

	created, err := vector.EnsureCollections(context.Background(), NewSchema(db), 4)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_Reconcile_CleanedIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewSchema(db).Reconcile(context.Background(), vector.Collection{Name: "cleaned_posts"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableSQL(t *testing.T) {
	vec := CreateTableSQL(vector.Collection{Name: "vector_articles", Vectors: true, Dimension: 768})
	assert.Contains(t, vec, `CREATE TABLE "vector_articles"`)
	assert.Contains(t, vec, "embedding vector(768) NOT NULL")

	cleaned := CreateTableSQL(vector.Collection{Name: "cleaned_articles"})
	assert.NotContains(t, cleaned, "embedding")
	assert.Contains(t, cleaned, "payload JSONB NOT NULL")

	assert.Contains(t, CreateIndexSQL(vector.Collection{Name: "vector_articles"}), "USING hnsw (embedding vector_cosine_ops)")
}
