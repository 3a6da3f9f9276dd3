package pgvector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/Nerdward/my-llm-twin/internal/models"
)

// ErrNotFound is returned by GetPoint for an unknown id.
var ErrNotFound = errors.New("point not found")

type Point struct {
	ID      string
	Payload models.Payload
	Vector  []float32
}

// Store writes pipeline records with one INSERT ... ON CONFLICT per batch.
type Store struct {
	db        *sql.DB
	dimension int
	logger    *slog.Logger
}

func NewStore(db *sql.DB, dimension int) *Store {
	return &Store{
		db:        db,
		dimension: dimension,
		logger:    slog.Default().With("component", "pgvector-sink"),
	}
}

type row struct {
	id      string
	payload []byte
	vector  *pgv.Vector
}

func (s *Store) UpsertCleaned(ctx context.Context, records []models.CleanedRecord) error {
	if len(records) == 0 {
		return nil
	}
	category, err := batchCategory(records)
	if err != nil {
		return err
	}

	rows := make([]row, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r.Payload())
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
		}
		rows = append(rows, row{id: r.PointID(), payload: payload})
	}
	return s.write(ctx, category.CleanedCollection(), rows)
}

func (s *Store) UpsertEmbedded(ctx context.Context, records []models.EmbeddedChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	category, err := batchCategory(records)
	if err != nil {
		return err
	}

	collection := category.VectorCollection()
	rows := make([]row, 0, len(records))
	for _, r := range records {
		vec := r.Vector()
		if s.dimension > 0 && len(vec) != s.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, %s expects %d",
				models.ErrMalformedRecord, r.PointID(), len(vec), collection, s.dimension)
		}
		payload, err := json.Marshal(r.Payload())
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrMalformedRecord, err)
		}
		v := pgv.NewVector(vec)
		rows = append(rows, row{id: r.PointID(), payload: payload, vector: &v})
	}
	return s.write(ctx, collection, rows)
}

func (s *Store) write(ctx context.Context, collection string, rows []row) error {
	rows = dedupe(rows)
	query, args := upsertSQL(collection, rows)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		err = classify(err)
		s.logger.ErrorContext(ctx, "batch upsert failed", "collection", collection, "count", len(rows), "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "batch upserted", "collection", collection, "count", len(rows))
	return nil
}

// upsertSQL builds a single multi-row upsert. Rows either all carry a
// vector or none do.
func upsertSQL(collection string, rows []row) (string, []any) {
	withVector := len(rows) > 0 && rows[0].vector != nil

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pq.QuoteIdentifier(collection))
	if withVector {
		b.WriteString(" (id, payload, embedding) VALUES ")
	} else {
		b.WriteString(" (id, payload) VALUES ")
	}

	args := make([]any, 0, len(rows)*3)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		n := len(args)
		if withVector {
			fmt.Fprintf(&b, "($%d, $%d, $%d)", n+1, n+2, n+3)
			args = append(args, r.id, r.payload, *r.vector)
		} else {
			fmt.Fprintf(&b, "($%d, $%d)", n+1, n+2)
			args = append(args, r.id, r.payload)
		}
	}

	b.WriteString(" ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload")
	if withVector {
		b.WriteString(", embedding = EXCLUDED.embedding")
	}
	b.WriteString(", updated_at = NOW()")
	return b.String(), args
}

// dedupe keeps the last row per id; Postgres refuses to update a row twice
// in one statement.
func dedupe(rows []row) []row {
	last := make(map[string]int, len(rows))
	for i, r := range rows {
		last[r.id] = i
	}
	if len(last) == len(rows) {
		return rows
	}
	out := make([]row, 0, len(last))
	for i, r := range rows {
		if last[r.id] == i {
			out = append(out, r)
		}
	}
	return out
}

// GetPoint reads a point back by its pipeline id.
func (s *Store) GetPoint(ctx context.Context, collection, pointID string, withVector bool) (*Point, error) {
	table := pq.QuoteIdentifier(collection)
	var (
		payload []byte
		vec     pgv.Vector
		err     error
	)
	if withVector {
		err = s.db.QueryRowContext(ctx, "SELECT payload, embedding FROM "+table+" WHERE id = $1", pointID).Scan(&payload, &vec)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT payload FROM "+table+" WHERE id = $1", pointID).Scan(&payload)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, pointID)
	}
	if err != nil {
		return nil, classify(err)
	}

	p := &Point{ID: pointID}
	if err := json.Unmarshal(payload, &p.Payload); err != nil {
		return nil, fmt.Errorf("decode payload of %s/%s: %w", collection, pointID, err)
	}
	if withVector {
		p.Vector = vec.Slice()
	}
	return p, nil
}

// Count returns the number of rows stored in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(collection)).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func batchCategory[T models.Record](records []T) (models.Category, error) {
	first := records[0].Category()
	for _, r := range records[1:] {
		if r.Category() != first {
			return "", fmt.Errorf("%w: %s and %s", models.ErrMixedBatch, first, r.Category())
		}
	}
	return first, nil
}

// classify maps connection failures to ErrConnectivity and everything the
// server rejected to ErrWriteFailed.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return fmt.Errorf("%w: %v", models.ErrConnectivity, err)
		}
		return fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", models.ErrConnectivity, err)
	}
	return fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
}
