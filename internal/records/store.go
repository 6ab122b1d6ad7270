package records

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/google/uuid"
)

// Backend is the persistence interface behind Store. MemoryBackend and
// PostgresBackend implement it. Tests inject an isolated MemoryBackend per
// test; production may use the durable implementation without any change to
// the Store contract.
type Backend interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*Record, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, title, description *string) (*Record, error)
}

// Store owns Record instances. It computes content hashes on creation and
// guards the immutability of hash-bearing fields on update.
type Store struct {
	backend Backend
	hasher  *hashing.Hasher
}

// NewStore creates a Store over the given backend and hasher.
func NewStore(backend Backend, hasher *hashing.Hasher) *Store {
	return &Store{backend: backend, hasher: hasher}
}

// Create assigns an ID and creation timestamp, computes the content hash
// over the canonical form, and stores the record.
//
// CreatedAt is truncated to microsecond precision so that a round trip
// through a timestamptz column re-hashes to the identical digest.
func (s *Store) Create(ctx context.Context, draft Draft) (*Record, error) {
	if !draft.Type.Valid() {
		return nil, fmt.Errorf("invalid record type %q", draft.Type)
	}

	rec := &Record{
		ID:          uuid.New(),
		SubjectID:   draft.SubjectID,
		Type:        draft.Type,
		Title:       draft.Title,
		Description: draft.Description,
		Payload:     draft.Payload,
		IssuedBy:    draft.IssuedBy,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	hash, err := s.hasher.Hash(rec.HashInput())
	if err != nil {
		return nil, fmt.Errorf("hash record: %w", err)
	}
	rec.ContentHash = hash

	if err := s.backend.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.backend.Get(ctx, id)
}

// FindBySubject returns all records issued to the given subject entity, in
// creation order.
func (s *Store) FindBySubject(ctx context.Context, subjectID string) ([]*Record, error) {
	return s.backend.ListBySubject(ctx, subjectID)
}

// UpdateMetadata applies a restricted patch to an existing record. Any
// attempt to set payload, content hash, or type fails with ErrImmutableField
// before the backend is touched.
func (s *Store) UpdateMetadata(ctx context.Context, id uuid.UUID, patch MetadataPatch) (*Record, error) {
	if len(patch.Payload) > 0 || patch.ContentHash != "" || patch.Type != nil {
		return nil, ErrImmutableField
	}
	return s.backend.UpdateMetadata(ctx, id, patch.Title, patch.Description)
}

// Hasher exposes the configured hasher so the verification engine recomputes
// digests with the exact parameters records were created with.
func (s *Store) Hasher() *hashing.Hasher {
	return s.hasher
}
