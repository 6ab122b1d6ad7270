package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is an in-memory, thread-safe Backend implementation.
type MemoryBackend struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*Record
	bySubject map[string][]uuid.UUID
}

// NewMemory creates an empty MemoryBackend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		byID:      make(map[uuid.UUID]*Record),
		bySubject: make(map[string][]uuid.UUID),
	}
}

// Insert implements Backend.
func (b *MemoryBackend) Insert(_ context.Context, rec *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *rec
	b.byID[rec.ID] = &cp
	b.bySubject[rec.SubjectID] = append(b.bySubject[rec.SubjectID], rec.ID)
	return nil
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListBySubject implements Backend. Records come back in creation order.
func (b *MemoryBackend) ListBySubject(_ context.Context, subjectID string) ([]*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := b.bySubject[subjectID]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		cp := *b.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

// UpdateMetadata implements Backend.
func (b *MemoryBackend) UpdateMetadata(_ context.Context, id uuid.UUID, title, description *string) (*Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if title != nil {
		rec.Title = *title
	}
	if description != nil {
		rec.Description = *description
	}
	cp := *rec
	return &cp, nil
}

// Corrupt overwrites the stored content hash of a record without touching
// the ledger. Test hook for simulating storage tampering; never reachable
// from any API path.
func (b *MemoryBackend) Corrupt(id uuid.UUID, hash string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byID[id]
	if !ok {
		return false
	}
	rec.ContentHash = hash
	return true
}
