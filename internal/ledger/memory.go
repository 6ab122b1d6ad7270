package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// blockNumberBase is the synthetic starting block height. The value is
// arbitrary; block numbers only need to look plausible and grow with each
// append.
const blockNumberBase = 4_500_000

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// the default backend for single-process deployments and for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []*Entry
	byTxID   map[string]*Entry
	byRecord map[string][]*Entry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byTxID:   make(map[string]*Entry),
		byRecord: make(map[string][]*Entry),
	}
}

// Append implements Store. Appends are serialised by the store mutex, so
// two concurrent appends for the same record both succeed and are visible
// to subsequent FindByRecordID calls in commit order.
func (s *MemoryStore) Append(_ context.Context, draft Draft) (*Entry, error) {
	if !draft.Action.Valid() {
		return nil, fmt.Errorf("invalid ledger action %q", draft.Action)
	}

	txID, err := newTransactionID()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

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
		BlockNumber:   blockNumberBase + int64(len(s.entries)) + 1,
		AppendedAt:    time.Now().UTC(),
	}

	s.entries = append(s.entries, entry)
	s.byTxID[entry.TransactionID] = entry
	s.byRecord[entry.RecordID] = append(s.byRecord[entry.RecordID], entry)
	return entry, nil
}

// FindByTransactionID implements Store.
func (s *MemoryStore) FindByTransactionID(_ context.Context, txID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byTxID[txID]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// FindByRecordID implements Store.
func (s *MemoryStore) FindByRecordID(_ context.Context, recordID string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byRecord[recordID]
	out := make([]*Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// FindByContentHash implements Store.
func (s *MemoryStore) FindByContentHash(_ context.Context, hash string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.ContentHash == hash {
			return entry, nil
		}
	}
	return nil, ErrNotFound
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
