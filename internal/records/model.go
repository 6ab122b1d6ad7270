package records

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies an academic record.
type Type string

const (
	TypeTranscript  Type = "transcript"
	TypeCertificate Type = "certificate"
	TypeMarksheet   Type = "marksheet"
	TypeDegree      Type = "degree"
	TypeOther       Type = "other"
)

// Valid reports whether t is one of the defined record types.
func (t Type) Valid() bool {
	switch t {
	case TypeTranscript, TypeCertificate, TypeMarksheet, TypeDegree, TypeOther:
		return true
	}
	return false
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrImmutableField is returned when a metadata update attempts to touch a
// hash-bearing field (payload, content hash, or type). Changing the payload
// requires issuing a new record with a new hash; the old hash stays on the
// ledger as tamper evidence.
var ErrImmutableField = errors.New("immutable field violation: payload, content_hash, and type cannot be updated")

// Record is an issued academic record. The content hash covers the subject,
// type, title, payload, and creation timestamp; everything else is mutable
// metadata.
type Record struct {
	ID          uuid.UUID       `json:"id"           db:"id"`
	SubjectID   string          `json:"subject_id"   db:"subject_id"`
	Type        Type            `json:"type"         db:"type"`
	Title       string          `json:"title"        db:"title"`
	Description string          `json:"description"  db:"description"`
	Payload     json.RawMessage `json:"payload"      db:"payload"`
	ContentHash string          `json:"content_hash" db:"content_hash"`
	IssuedBy    string          `json:"issued_by"    db:"issued_by"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"`
}

// hashInput is the canonical projection of a record that the content hash
// covers. Title and description are editable display metadata and therefore
// excluded; the field set and JSON names here are part of the v1
// canonicalization contract and must never change.
type hashInput struct {
	SubjectID string          `json:"subject_entity_id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// HashInput returns the value whose canonical serialization the record's
// content hash is computed over. Verification recomputes the hash from this
// same projection.
func (r *Record) HashInput() any {
	return hashInput{
		SubjectID: r.SubjectID,
		Type:      r.Type,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Draft carries the caller-supplied fields for a new record.
type Draft struct {
	SubjectID   string          `json:"subject_id" binding:"required"`
	Type        Type            `json:"type"       binding:"required"`
	Title       string          `json:"title"      binding:"required"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"    binding:"required"`
	IssuedBy    string          `json:"issued_by"`
}

// MetadataPatch is the restricted update surface for an existing record.
// Payload, ContentHash, and Type are present only so that attempts to set
// them can be rejected explicitly instead of silently dropped.
type MetadataPatch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Payload     json.RawMessage `json:"payload"`
	ContentHash string          `json:"content_hash"`
	Type        *Type           `json:"type"`
}
