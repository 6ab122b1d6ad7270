// Package client provides the BlockEdu Go SDK for issuing academic records,
// querying the transaction ledger, and verifying record integrity over the
// BlockEdu HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Record is an academic record as returned by the API.
type Record struct {
	ID          string          `json:"id"`
	SubjectID   string          `json:"subject_id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
	ContentHash string          `json:"content_hash"`
	IssuedBy    string          `json:"issued_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LedgerEntry is one append-only ledger transaction.
type LedgerEntry struct {
	TransactionID string    `json:"transaction_id"`
	RecordID      string    `json:"record_id"`
	ContentHash   string    `json:"content_hash"`
	Action        string    `json:"action"`
	ActorAddress  string    `json:"actor_address"`
	Timestamp     time.Time `json:"timestamp"`
	BlockNumber   int64     `json:"block_number"`
	AppendedAt    time.Time `json:"appended_at"`
}

// VerifyResult is the verdict for a single record.
type VerifyResult struct {
	RecordID      string `json:"record_id"`
	Verified      bool   `json:"verified"`
	Tampered      bool   `json:"tampered"`
	Unanchored    bool   `json:"unanchored,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`
	LedgerHash    string `json:"ledger_hash,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	BlockNumber   int64  `json:"block_number,omitempty"`
}

// SubjectReport aggregates verification verdicts for every record a subject
// entity holds.
type SubjectReport struct {
	SubjectID     string         `json:"subject_id"`
	Total         int            `json:"total"`
	TamperedCount int            `json:"tampered_count"`
	Verified      bool           `json:"verified"`
	Message       string         `json:"message"`
	Results       []VerifyResult `json:"results"`
}

// IssueRequest is the payload for IssueRecord.
type IssueRequest struct {
	SubjectID   string          `json:"subject_id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	IssuedBy    string          `json:"issued_by,omitempty"`
}

// IssueResult bundles the issued record with the ledger transaction that
// anchored it. Transaction is nil when the server runs without a ledger.
type IssueResult struct {
	Record      *Record      `json:"record"`
	Transaction *LedgerEntry `json:"transaction,omitempty"`
}

// MetadataPatch updates mutable record metadata. Only title and description
// are accepted; the server rejects anything touching payload or hash.
type MetadataPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client is the BlockEdu SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a pre-obtained session token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the BlockEdu API at baseURL.
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithBearerToken(token),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Login authenticates with email and password, stores the returned session
// token on the client, and returns it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.bearerToken = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

// IssueRecord issues a new academic record and anchors it to the ledger.
func (c *Client) IssueRecord(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	var out IssueResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/records", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecord fetches one record by ID.
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodGet, "/api/v1/records/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubjectRecords fetches every record issued to a subject entity.
func (c *Client) ListSubjectRecords(ctx context.Context, subjectID string) ([]Record, error) {
	var out struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subjects/"+subjectID+"/records", nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// UpdateMetadata patches a record's mutable metadata fields.
func (c *Client) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPatch, "/api/v1/records/"+id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReissueRecord issues a replacement record with a new payload. The original
// record and its ledger history are left untouched.
func (c *Client) ReissueRecord(ctx context.Context, id string, payload json.RawMessage) (*IssueResult, error) {
	var out IssueResult
	body := map[string]json.RawMessage{"payload": payload}
	if err := c.do(ctx, http.MethodPost, "/api/v1/records/"+id+"/reissue", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReanchorRecord appends a fresh STORE_HASH transaction for an existing record.
func (c *Client) ReanchorRecord(ctx context.Context, id string) (*LedgerEntry, error) {
	var out struct {
		Transaction *LedgerEntry `json:"transaction"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/records/"+id+"/reanchor", nil, &out); err != nil {
		return nil, err
	}
	return out.Transaction, nil
}

// VerifyRecord runs the integrity check for one record. Negative verdicts
// (not found, tampered) come back as a result, not an error.
func (c *Client) VerifyRecord(ctx context.Context, id string) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/verify/records/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySubject runs the batch integrity check over all of a subject's records.
func (c *Client) VerifySubject(ctx context.Context, subjectID string) (*SubjectReport, error) {
	var out SubjectReport
	if err := c.do(ctx, http.MethodGet, "/api/v1/verify/subjects/"+subjectID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction fetches one ledger entry by transaction ID.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*LedgerEntry, error) {
	var out LedgerEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/transactions/"+txID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LedgerHistory fetches every anchoring transaction for a record, oldest first.
func (c *Client) LedgerHistory(ctx context.Context, recordID string) ([]LedgerEntry, error) {
	var out struct {
		Entries []LedgerEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/records/"+recordID, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// LedgerLen returns the total number of ledger entries.
func (c *Client) LedgerLen(ctx context.Context) (int, error) {
	var out struct {
		Entries int `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger", nil, &out); err != nil {
		return 0, err
	}
	return out.Entries, nil
}

// do performs one JSON round trip against the API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
