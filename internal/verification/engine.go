package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reason codes carried on negative verification results. They let the
// caller render three distinct messages: "never existed", "not yet
// anchored", and "tampered".
const (
	ReasonRecordNotFound    = "record_not_found"
	ReasonStorageCorruption = "storage_corruption"
	ReasonHashMismatch      = "hash_mismatch"
)

// Result is the outcome of verifying a single record.
type Result struct {
	RecordID string `json:"record_id"`
	Verified bool   `json:"verified"`
	Tampered bool   `json:"tampered"`
	// Unanchored flags a record that verified without a ledger entry
	// backing it. Absence from the ledger is deliberately not treated as
	// tampering; see the engine documentation.
	Unanchored    bool   `json:"unanchored,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`
	LedgerHash    string `json:"ledger_hash,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	BlockNumber   int64  `json:"block_number,omitempty"`
}

// SubjectReport aggregates verification over every record of one subject
// entity. Verified is the logical AND of the individual results.
type SubjectReport struct {
	SubjectID     string   `json:"subject_id"`
	Total         int      `json:"total"`
	TamperedCount int      `json:"tampered_count"`
	Verified      bool     `json:"verified"`
	Message       string   `json:"message"`
	Results       []Result `json:"results"`
}

// Engine cross-checks stored records against their ledger anchors. It owns
// no state of its own: verification is a pure read-only computation over the
// two stores, so repeated calls with no intervening writes return identical
// results.
//
// Policy: a record with no ledger entry at all verifies as true with
// Unanchored set. An issuer that never anchors a record therefore gets a
// clean result carrying an explicit caveat flag rather than a tamper alarm.
type Engine struct {
	records *records.Store
	ledger  ledger.Store
	logger  *zap.Logger
}

// NewEngine creates an Engine reading from the given stores.
func NewEngine(recordStore *records.Store, ledgerStore ledger.Store, logger *zap.Logger) *Engine {
	return &Engine{records: recordStore, ledger: ledgerStore, logger: logger}
}

// Verify checks a single record:
//
//  1. missing record        → verified=false, reason=record_not_found
//  2. stored hash does not  → verified=false, tampered=true,
//     match a recompute       reason=storage_corruption
//  3. no ledger entry       → verified=true, unanchored=true
//  4. ledger hash mismatch  → verified=false, tampered=true,
//     reason=hash_mismatch
//  5. otherwise             → verified=true
//
// All negative outcomes are results, never errors; an error return means a
// store read itself failed.
func (e *Engine) Verify(ctx context.Context, recordID uuid.UUID) (*Result, error) {
	res := &Result{RecordID: recordID.String()}

	rec, err := e.records.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			res.Reason = ReasonRecordNotFound
			return res, nil
		}
		return nil, fmt.Errorf("load record: %w", err)
	}
	res.ContentHash = rec.ContentHash

	// Self-consistency: the stored hash must match a recompute over the
	// record's current canonical form.
	recomputed, err := e.records.Hasher().Hash(rec.HashInput())
	if err != nil {
		return nil, fmt.Errorf("recompute hash: %w", err)
	}
	if recomputed != rec.ContentHash {
		res.Tampered = true
		res.Reason = ReasonStorageCorruption
		e.logger.Warn("record failed self-consistency check",
			zap.String("record_id", res.RecordID),
			zap.String("stored_hash", rec.ContentHash),
			zap.String("recomputed_hash", recomputed),
		)
		return res, nil
	}

	entries, err := e.ledger.FindByRecordID(ctx, recordID.String())
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		res.Verified = true
		res.Unanchored = true
		return res, nil
	}

	// Compare against the most recent anchoring event.
	latest := entries[len(entries)-1]
	res.LedgerHash = latest.ContentHash
	res.TransactionID = latest.TransactionID
	res.BlockNumber = latest.BlockNumber

	if latest.ContentHash != rec.ContentHash {
		res.Tampered = true
		res.Reason = ReasonHashMismatch
		e.logger.Warn("record hash does not match ledger anchor",
			zap.String("record_id", res.RecordID),
			zap.String("content_hash", rec.ContentHash),
			zap.String("ledger_hash", latest.ContentHash),
		)
		return res, nil
	}

	res.Verified = true
	return res, nil
}

// VerifySubject verifies every record belonging to one subject entity and
// aggregates the outcome. The message distinguishes "no records" from "all
// verified" from "some tampered".
func (e *Engine) VerifySubject(ctx context.Context, subjectID string) (*SubjectReport, error) {
	recs, err := e.records.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject records: %w", err)
	}

	report := &SubjectReport{
		SubjectID: subjectID,
		Total:     len(recs),
		Results:   make([]Result, 0, len(recs)),
	}

	if len(recs) == 0 {
		report.Verified = false
		report.Message = "no records found for subject"
		return report, nil
	}

	allVerified := true
	for _, rec := range recs {
		res, err := e.Verify(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if res.Tampered {
			report.TamperedCount++
		}
		if !res.Verified {
			allVerified = false
		}
		report.Results = append(report.Results, *res)
	}

	report.Verified = allVerified
	switch {
	case report.TamperedCount > 0:
		report.Message = fmt.Sprintf("%d of %d records failed verification", report.TamperedCount, report.Total)
	case allVerified:
		report.Message = "all records verified"
	default:
		report.Message = "some records could not be verified"
	}
	return report, nil
}
