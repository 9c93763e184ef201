package document

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, d *Document) error {
	query := `INSERT INTO documents (name, content_hash, status) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, d.Name, d.ContentHash, d.Status).Scan(&d.ID)
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM documents WHERE content_hash = $1 AND deleted_at IS NULL)`
	err := r.db.QueryRowContext(ctx, query, hash).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	query := `SELECT id, name, content_hash, status, chunk_count FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.ContentHash, &d.Status, &d.ChunkCount)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, name, status, chunk_count, created_at FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.ChunkCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) UpdateIndexed(ctx context.Context, name string, chunkCount int) error {
	query := `UPDATE documents SET status = $1, chunk_count = $2, updated_at = NOW() WHERE name = $3 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, StatusIndexed, chunkCount, name)
	return err
}

func (r *PostgresRepo) MarkMissingExcept(ctx context.Context, names []string) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE NOT (name = ANY($2)) AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, StatusMissing, pq.Array(names))
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}
