package records

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service contains the issuance business logic: creating records and
// anchoring their content hashes on the ledger.
type Service struct {
	store    *Store
	ledger   ledger.Store // nil = records are issued unanchored
	logger   *zap.Logger
	onAnchor func() // optional metrics callback
}

// NewService creates a Service. ledgerStore may be nil to disable anchoring.
func NewService(store *Store, ledgerStore ledger.Store, logger *zap.Logger) *Service {
	return &Service{store: store, ledger: ledgerStore, logger: logger}
}

// SetAnchorCallback configures a callback invoked after every successful
// ledger append, used to bump the anchoring metrics counter.
func (s *Service) SetAnchorCallback(fn func()) {
	s.onAnchor = fn
}

// ActorAddress derives a stable opaque 0x-address for an issuer identity.
// It is presentation only; nothing is ever derived back from it.
func ActorAddress(issuer string) string {
	sum := sha256.Sum256([]byte(issuer))
	return "0x" + hex.EncodeToString(sum[:20])
}

// Issue creates a record from the draft and anchors its content hash on the
// ledger with a STORE_RECORD entry. The record is returned even when
// anchoring is disabled; the ledger entry is nil in that case.
func (s *Service) Issue(ctx context.Context, draft Draft) (*Record, *ledger.Entry, error) {
	rec, err := s.store.Create(ctx, draft)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.anchor(ctx, rec, ledger.ActionStoreRecord)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("record issued",
		zap.String("record_id", rec.ID.String()),
		zap.String("subject_id", rec.SubjectID),
		zap.String("type", string(rec.Type)),
		zap.String("content_hash", rec.ContentHash),
	)
	return rec, entry, nil
}

// Reissue creates a fresh record carrying a new payload for the same subject
// and anchors it. The previous record and its ledger entries are left
// untouched; re-issuance never mutates an existing hash.
func (s *Service) Reissue(ctx context.Context, id uuid.UUID, payload json.RawMessage, issuedBy string) (*Record, *ledger.Entry, error) {
	prev, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	draft := Draft{
		SubjectID:   prev.SubjectID,
		Type:        prev.Type,
		Title:       prev.Title,
		Description: prev.Description,
		Payload:     payload,
		IssuedBy:    issuedBy,
	}
	rec, entry, err := s.Issue(ctx, draft)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("record reissued",
		zap.String("previous_id", prev.ID.String()),
		zap.String("record_id", rec.ID.String()),
	)
	return rec, entry, nil
}

// Reanchor appends a STORE_HASH ledger entry for an existing record, e.g.
// for a record that was issued while anchoring was disabled.
func (s *Service) Reanchor(ctx context.Context, id uuid.UUID, actor string) (*ledger.Entry, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return nil, fmt.Errorf("anchoring disabled: no ledger configured")
	}
	return s.anchor(ctx, rec, ledger.ActionStoreHash)
}

func (s *Service) anchor(ctx context.Context, rec *Record, action ledger.Action) (*ledger.Entry, error) {
	if s.ledger == nil {
		return nil, nil
	}
	entry, err := s.ledger.Append(ctx, ledger.Draft{
		RecordID:     rec.ID.String(),
		ContentHash:  rec.ContentHash,
		Action:       action,
		ActorAddress: ActorAddress(rec.IssuedBy),
		Timestamp:    rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("anchor record %s: %w", rec.ID, err)
	}
	if s.onAnchor != nil {
		s.onAnchor()
	}
	return entry, nil
}

// Get returns the record with the given ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.store.Get(ctx, id)
}

// FindBySubject returns all records for a subject entity in creation order.
func (s *Service) FindBySubject(ctx context.Context, subjectID string) ([]*Record, error) {
	return s.store.FindBySubject(ctx, subjectID)
}

// UpdateMetadata applies a restricted metadata patch.
func (s *Service) UpdateMetadata(ctx context.Context, id uuid.UUID, patch MetadataPatch) (*Record, error) {
	return s.store.UpdateMetadata(ctx, id, patch)
}
