package fees

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Method is the payment channel used for a fee payment.
type Method string

const (
	MethodCard Method = "card"
	MethodBank Method = "bank_transfer"
	MethodUPI  Method = "upi"
	MethodCash Method = "cash"
)

// Payment is a recorded fee payment. Amounts are in minor currency units
// (paise/cents) to avoid float arithmetic on money.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	StudentID     string    `json:"student_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	Term          string    `json:"term"` // e.g. "2026-spring"
	Method        Method    `json:"method"`
	Reference     string    `json:"reference,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"` // ledger anchor
	PaidAt        time.Time `json:"paid_at"`
}

// Draft carries the caller-supplied fields for a new payment.
type Draft struct {
	StudentID   string `json:"student_id"   binding:"required"`
	AmountMinor int64  `json:"amount_minor" binding:"required,gt=0"`
	Currency    string `json:"currency"`
	Term        string `json:"term"         binding:"required"`
	Method      Method `json:"method"       binding:"required"`
	Reference   string `json:"reference"`
}

// Summary aggregates a student's payments per term.
type Summary struct {
	StudentID  string           `json:"student_id"`
	TotalMinor int64            `json:"total_minor"`
	Count      int              `json:"count"`
	ByTerm     map[string]int64 `json:"by_term"`
}

// paymentHashInput is the canonical projection of a payment anchored on the
// ledger. Field names are part of the anchoring contract.
type paymentHashInput struct {
	StudentID   string `json:"student_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Term        string `json:"term"`
	Method      Method `json:"method"`
	PaidAt      string `json:"paid_at"`
}

// Service records fee payments and anchors each one on the ledger with a
// PAYMENT_RECORDED entry, so a payment receipt can later be checked against
// the ledger the same way a record hash is.
type Service struct {
	mu        sync.RWMutex
	byStudent map[string][]*Payment

	ledger ledger.Store // nil = payments are recorded without anchoring
	hasher *hashing.Hasher
	logger *zap.Logger
}

// NewService creates a Service. ledgerStore may be nil to disable anchoring.
func NewService(ledgerStore ledger.Store, hasher *hashing.Hasher, logger *zap.Logger) *Service {
	return &Service{
		byStudent: make(map[string][]*Payment),
		ledger:    ledgerStore,
		hasher:    hasher,
		logger:    logger,
	}
}

// Record stores a payment and anchors its canonical hash on the ledger.
func (s *Service) Record(ctx context.Context, draft Draft) (*Payment, error) {
	currency := draft.Currency
	if currency == "" {
		currency = "INR"
	}

	p := &Payment{
		ID:          uuid.New(),
		StudentID:   draft.StudentID,
		AmountMinor: draft.AmountMinor,
		Currency:    currency,
		Term:        draft.Term,
		Method:      draft.Method,
		Reference:   draft.Reference,
		PaidAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	if s.ledger != nil {
		hash, err := s.hasher.Hash(paymentHashInput{
			StudentID:   p.StudentID,
			AmountMinor: p.AmountMinor,
			Currency:    p.Currency,
			Term:        p.Term,
			Method:      p.Method,
			PaidAt:      p.PaidAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, fmt.Errorf("hash payment: %w", err)
		}
		entry, err := s.ledger.Append(ctx, ledger.Draft{
			RecordID:     p.ID.String(),
			ContentHash:  hash,
			Action:       ledger.ActionPaymentRecorded,
			ActorAddress: records.ActorAddress(p.StudentID),
			Timestamp:    p.PaidAt,
		})
		if err != nil {
			return nil, fmt.Errorf("anchor payment: %w", err)
		}
		p.TransactionID = entry.TransactionID
	}

	s.mu.Lock()
	s.byStudent[p.StudentID] = append(s.byStudent[p.StudentID], p)
	s.mu.Unlock()

	s.logger.Info("fee payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("student_id", p.StudentID),
		zap.Int64("amount_minor", p.AmountMinor),
		zap.String("term", p.Term),
	)
	return p, nil
}

// ListByStudent returns a student's payments in recording order.
func (s *Service) ListByStudent(_ context.Context, studentID string) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payments := s.byStudent[studentID]
	out := make([]*Payment, len(payments))
	copy(out, payments)
	return out, nil
}

// Summarize aggregates a student's payments.
func (s *Service) Summarize(_ context.Context, studentID string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &Summary{StudentID: studentID, ByTerm: make(map[string]int64)}
	for _, p := range s.byStudent[studentID] {
		sum.TotalMinor += p.AmountMinor
		sum.Count++
		sum.ByTerm[p.Term] += p.AmountMinor
	}
	return sum, nil
}
