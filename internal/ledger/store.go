package ledger

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups when no matching entry exists.
// "Not on the ledger" is an expected outcome, not a system fault; callers
// surface it as a negative verification result rather than an error page.
var ErrNotFound = errors.New("ledger entry not found")

// Store is the append-only transaction log. Both MemoryStore and
// PostgresStore implement this interface. There is deliberately no update
// or delete method: entries live for the lifetime of the store.
type Store interface {
	// Append assigns a transaction ID, block number, and append timestamp
	// to the draft, stores it at the end of the sequence, and returns the
	// stored entry.
	Append(ctx context.Context, draft Draft) (*Entry, error)

	// FindByTransactionID returns the entry with the given transaction ID,
	// or ErrNotFound.
	FindByTransactionID(ctx context.Context, txID string) (*Entry, error)

	// FindByRecordID returns all entries anchoring the given record, in
	// insertion order. A record re-issued or re-anchored over time has
	// multiple entries; the most recent one is last.
	FindByRecordID(ctx context.Context, recordID string) ([]*Entry, error)

	// FindByContentHash returns the first entry carrying the given content
	// hash, or ErrNotFound.
	FindByContentHash(ctx context.Context, hash string) (*Entry, error)

	// Len returns the total number of entries appended so far.
	Len(ctx context.Context) (int, error)
}
