package run

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository interface {
	Save(ctx context.Context, r *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Latest(ctx context.Context) (*Run, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, run *Run) error {
	query := `INSERT INTO ingest_runs (status, files_processed, chunks_written, errors, duration_ms) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	errs := run.Errors
	if errs == nil {
		errs = json.RawMessage("[]")
	}
	return r.db.QueryRowContext(ctx, query, run.Status, run.FilesProcessed, run.ChunksWritten, errs, run.DurationMs).
		Scan(&run.ID, &run.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, status, files_processed, chunks_written, errors, duration_ms, created_at FROM ingest_runs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var ru Run
		var errs []byte
		if err := rows.Scan(&ru.ID, &ru.Status, &ru.FilesProcessed, &ru.ChunksWritten, &errs, &ru.DurationMs, &ru.CreatedAt); err != nil {
			return nil, err
		}
		ru.Errors = json.RawMessage(errs)
		runs = append(runs, ru)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) Latest(ctx context.Context) (*Run, error) {
	ru := &Run{}
	var errs []byte
	query := `SELECT id, status, files_processed, chunks_written, errors, duration_ms, created_at FROM ingest_runs ORDER BY created_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&ru.ID, &ru.Status, &ru.FilesProcessed, &ru.ChunksWritten, &errs, &ru.DurationMs, &ru.CreatedAt)
	if err != nil {
		return nil, err
	}
	ru.Errors = json.RawMessage(errs)
	return ru, nil
}
