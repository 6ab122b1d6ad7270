package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent Append calls so block numbers stay consistent. The value is
// arbitrary but must be the same across all server instances.
const advisoryLockKey = int64(2_210_047_331)

// PostgresStore persists the ledger to PostgreSQL. Rows are insert-only;
// the table carries no UPDATE or DELETE path in this codebase.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a PostgresStore backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Append implements Store. It acquires a transaction-scoped advisory lock,
// reads the current block height, and inserts the new entry — all within a
// single transaction.
func (s *PostgresStore) Append(ctx context.Context, draft Draft) (*Entry, error) {
	if !draft.Action.Valid() {
		return nil, fmt.Errorf("invalid ledger action %q", draft.Action)
	}

	txID, err := newTransactionID()
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevBlock int64
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(block_number), $1) FROM ledger_entries", int64(blockNumberBase),
	).Scan(&prevBlock); err != nil {
		return nil, fmt.Errorf("read block height: %w", err)
	}

	ts := draft.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	entry := &Entry{
		TransactionID: txID,
		RecordID:      draft.RecordID,
		ContentHash:   draft.ContentHash,
		Action:        draft.Action,
		ActorAddress:  draft.ActorAddress,
		Timestamp:     ts,
		BlockNumber:   prevBlock + 1,
		AppendedAt:    time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (transaction_id, record_id, content_hash, action, actor_address, timestamp, block_number, appended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.TransactionID, entry.RecordID, entry.ContentHash, entry.Action,
		entry.ActorAddress, entry.Timestamp, entry.BlockNumber, entry.AppendedAt,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}

	s.logger.Debug("ledger entry appended",
		zap.String("transaction_id", entry.TransactionID),
		zap.String("record_id", entry.RecordID),
		zap.String("action", string(entry.Action)),
	)
	return entry, nil
}

const entryColumns = `transaction_id, record_id, content_hash, action, actor_address, timestamp, block_number, appended_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	entry := &Entry{}
	err := row.Scan(
		&entry.TransactionID, &entry.RecordID, &entry.ContentHash, &entry.Action,
		&entry.ActorAddress, &entry.Timestamp, &entry.BlockNumber, &entry.AppendedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return entry, nil
}

// FindByTransactionID implements Store.
func (s *PostgresStore) FindByTransactionID(ctx context.Context, txID string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE transaction_id = $1", txID)
	return scanEntry(row)
}

// FindByRecordID implements Store. Entries come back in append order.
func (s *PostgresStore) FindByRecordID(ctx context.Context, recordID string) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE record_id = $1 ORDER BY block_number ASC", recordID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.TransactionID, &entry.RecordID, &entry.ContentHash, &entry.Action,
			&entry.ActorAddress, &entry.Timestamp, &entry.BlockNumber, &entry.AppendedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindByContentHash implements Store.
func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE content_hash = $1 ORDER BY block_number ASC LIMIT 1", hash)
	return scanEntry(row)
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}
