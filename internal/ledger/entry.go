package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Action describes why an entry was appended to the ledger.
type Action string

const (
	// ActionStoreRecord anchors a freshly issued academic record.
	ActionStoreRecord Action = "STORE_RECORD"
	// ActionStoreHash anchors a re-computed hash for an existing record,
	// e.g. after re-issuance.
	ActionStoreHash Action = "STORE_HASH"
	// ActionPaymentRecorded anchors a fee payment receipt.
	ActionPaymentRecorded Action = "PAYMENT_RECORDED"
)

// Valid reports whether a is one of the defined ledger actions.
func (a Action) Valid() bool {
	switch a {
	case ActionStoreRecord, ActionStoreHash, ActionPaymentRecorded:
		return true
	}
	return false
}

// Entry is a single immutable ledger transaction. Once appended, no field
// may change; the store interfaces expose append and read operations only.
type Entry struct {
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	RecordID      string    `json:"record_id"      db:"record_id"`
	ContentHash   string    `json:"content_hash"   db:"content_hash"`
	Action        Action    `json:"action"         db:"action"`
	ActorAddress  string    `json:"actor_address"  db:"actor_address"`
	Timestamp     time.Time `json:"timestamp"      db:"timestamp"`
	BlockNumber   int64     `json:"block_number"   db:"block_number"`
	AppendedAt    time.Time `json:"appended_at"    db:"appended_at"`
}

// Draft carries the caller-supplied fields of an entry to be appended.
// TransactionID, BlockNumber, and AppendedAt are assigned by the store.
type Draft struct {
	RecordID     string
	ContentHash  string
	Action       Action
	ActorAddress string
	Timestamp    time.Time
}

// newTransactionID returns a 0x-prefixed 64-character hex token from a
// cryptographically secure source. IDs are opaque identifiers, never derived
// from content, so concurrent appends cannot collide in practice.
func newTransactionID() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return "0x" + hex.EncodeToString(buf[:]), nil
}
