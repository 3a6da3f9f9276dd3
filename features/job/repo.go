package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Filter narrows List. Zero values match every job.
type Filter struct {
	EntryID string
	Limit   int
}

type Repository interface {
	Save(ctx context.Context, job *Job) error
	List(ctx context.Context, f Filter) ([]Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

const selectJobs = `SELECT id, entry_id, handler, payload, error, retries, created_at FROM failed_jobs`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, job *Job) error {
	query := `INSERT INTO failed_jobs (entry_id, handler, payload, error, retries) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, job.EntryID, job.Handler, []byte(job.Payload), job.Error, job.Retries).Scan(&job.ID, &job.CreatedAt)
}

// List returns the newest jobs first.
func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Job, error) {
	query, args := listQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func listQuery(f Filter) (string, []any) {
	query := selectJobs
	var args []any
	if f.EntryID != "" {
		args = append(args, f.EntryID)
		query += fmt.Sprintf(" WHERE entry_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, selectJobs+` WHERE id = $1`, id))
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM failed_jobs WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failed_jobs`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*Job, error) {
	j := &Job{}
	var payload []byte
	if err := s.Scan(&j.ID, &j.EntryID, &j.Handler, &payload, &j.Error, &j.Retries, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return j, nil
}
