package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend persists records to PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresBackend backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

const recordColumns = `id, subject_id, type, title, description, payload, content_hash, issued_by, created_at`

// Insert implements Backend.
func (b *PostgresBackend) Insert(ctx context.Context, rec *Record) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SubjectID, rec.Type, rec.Title, rec.Description,
		rec.Payload, rec.ContentHash, rec.IssuedBy, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	err := row.Scan(
		&rec.ID, &rec.SubjectID, &rec.Type, &rec.Title, &rec.Description,
		&rec.Payload, &rec.ContentHash, &rec.IssuedBy, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := b.pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = $1", id)
	return scanRecord(row)
}

// ListBySubject implements Backend.
func (b *PostgresBackend) ListBySubject(ctx context.Context, subjectID string) ([]*Record, error) {
	rows, err := b.pool.Query(ctx,
		"SELECT "+recordColumns+" FROM records WHERE subject_id = $1 ORDER BY created_at ASC", subjectID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(
			&rec.ID, &rec.SubjectID, &rec.Type, &rec.Title, &rec.Description,
			&rec.Payload, &rec.ContentHash, &rec.IssuedBy, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateMetadata implements Backend. Only title and description are
// touchable; the query never references payload or content_hash.
func (b *PostgresBackend) UpdateMetadata(ctx context.Context, id uuid.UUID, title, description *string) (*Record, error) {
	row := b.pool.QueryRow(ctx,
		`UPDATE records
		 SET title = COALESCE($2, title), description = COALESCE($3, description)
		 WHERE id = $1
		 RETURNING `+recordColumns,
		id, title, description,
	)
	return scanRecord(row)
}
