package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockedu/blockedu/internal/assistant"
	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/blockedu/blockedu/internal/results"
	"github.com/blockedu/blockedu/internal/server"
	"github.com/blockedu/blockedu/internal/students"
	"github.com/blockedu/blockedu/internal/verification"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// env wires a full router over in-memory stores with auth disabled. The
// backend and ledger handles are exposed so tests can tamper and inspect.
type env struct {
	router  *gin.Engine
	backend *records.MemoryBackend
	ledger  *ledger.MemoryStore
	svc     *records.Service
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	backend := records.NewMemory()
	store := records.NewStore(backend, hashing.Default())
	ledgerStore := ledger.NewMemory()
	svc := records.NewService(store, ledgerStore, logger)
	verifier := verification.NewEngine(store, ledgerStore, logger)
	feeSvc := fees.NewService(ledgerStore, hashing.Default(), logger)
	attendanceStore := attendance.NewStore()
	resultStore := results.NewStore()

	router := server.NewRouter(server.Config{CORSOrigins: []string{"*"}}, server.Deps{
		Records:    svc,
		Ledger:     ledgerStore,
		Verifier:   verifier,
		Students:   students.NewStore(),
		Fees:       feeSvc,
		Attendance: attendanceStore,
		Results:    resultStore,
		Assistant:  assistant.New(feeSvc, attendanceStore, resultStore, verifier, logger),
		Logger:     logger,
	})
	return &env{router: router, backend: backend, ledger: ledgerStore, svc: svc}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func issueDraft(subjectID string) map[string]any {
	return map[string]any{
		"subject_id": subjectID,
		"type":       "transcript",
		"title":      "Semester 1 Transcript",
		"payload":    map[string]any{"gpa": 9.1, "semester": 1},
		"issued_by":  "registrar@blockedu.example",
	}
}

func TestIssueRecord_201_anchorsTransaction(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-001"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Record struct {
			ID          string `json:"id"`
			ContentHash string `json:"content_hash"`
		} `json:"record"`
		Transaction struct {
			TransactionID string `json:"transaction_id"`
			ContentHash   string `json:"content_hash"`
			Action        string `json:"action"`
			BlockNumber   int64  `json:"block_number"`
		} `json:"transaction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Record.ContentHash) != 64 {
		t.Errorf("content hash length = %d, want 64", len(resp.Record.ContentHash))
	}
	if resp.Transaction.Action != "STORE_RECORD" {
		t.Errorf("action = %q, want STORE_RECORD", resp.Transaction.Action)
	}
	if resp.Transaction.ContentHash != resp.Record.ContentHash {
		t.Errorf("ledger hash %q != record hash %q", resp.Transaction.ContentHash, resp.Record.ContentHash)
	}
	if resp.Transaction.BlockNumber == 0 {
		t.Error("expected a non-zero block number")
	}
}

func TestIssueRecord_400_missingFields(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", map[string]any{"subject_id": "STU-001"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetRecord_404(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodGet, "/api/v1/records/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetRecord_400_invalidID(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodGet, "/api/v1/records/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateMetadata_200_titleOnly(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-002"))
	var created struct {
		Record struct {
			ID          string `json:"id"`
			ContentHash string `json:"content_hash"`
		} `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, e.router, http.MethodPatch, "/api/v1/records/"+created.Record.ID,
		map[string]any{"title": "Corrected Title"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated struct {
		Title       string `json:"title"`
		ContentHash string `json:"content_hash"`
	}
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Title != "Corrected Title" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.ContentHash != created.Record.ContentHash {
		t.Errorf("content hash changed on a metadata update: %q -> %q", created.Record.ContentHash, updated.ContentHash)
	}
}

func TestUpdateMetadata_422_immutableFields(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-003"))
	var created struct {
		Record struct {
			ID string `json:"id"`
		} `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	for name, patch := range map[string]map[string]any{
		"payload":      {"payload": map[string]any{"gpa": 10.0}},
		"content_hash": {"content_hash": "deadbeef"},
		"type":         {"type": "degree"},
	} {
		w = doJSON(t, e.router, http.MethodPatch, "/api/v1/records/"+created.Record.ID, patch)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s patch: expected 422, got %d: %s", name, w.Code, w.Body.String())
		}
	}
}

func TestListSubjectRecords_creationOrder(t *testing.T) {
	e := setupEnv(t)

	doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-004"))
	second := issueDraft("STU-004")
	second["title"] = "Semester 2 Transcript"
	doJSON(t, e.router, http.MethodPost, "/api/v1/records", second)

	w := doJSON(t, e.router, http.MethodGet, "/api/v1/subjects/STU-004/records", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Count   int `json:"count"`
		Records []struct {
			Title string `json:"title"`
		} `json:"records"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Records[0].Title != "Semester 1 Transcript" || resp.Records[1].Title != "Semester 2 Transcript" {
		t.Errorf("records out of creation order: %+v", resp.Records)
	}
}

func TestReissue_201_originalUntouched(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-005"))
	var created struct {
		Record struct {
			ID          string `json:"id"`
			ContentHash string `json:"content_hash"`
		} `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, e.router, http.MethodPost, "/api/v1/records/"+created.Record.ID+"/reissue",
		map[string]any{"payload": map[string]any{"gpa": 9.3, "semester": 1}})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var reissued struct {
		Record struct {
			ID          string `json:"id"`
			ContentHash string `json:"content_hash"`
		} `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &reissued)
	if reissued.Record.ID == created.Record.ID {
		t.Error("reissue must mint a new record id")
	}
	if reissued.Record.ContentHash == created.Record.ContentHash {
		t.Error("reissue with a new payload must produce a new hash")
	}

	// The original is still retrievable with its original hash.
	w = doJSON(t, e.router, http.MethodGet, "/api/v1/records/"+created.Record.ID, nil)
	var original struct {
		ContentHash string `json:"content_hash"`
	}
	json.Unmarshal(w.Body.Bytes(), &original)
	if original.ContentHash != created.Record.ContentHash {
		t.Errorf("original hash changed after reissue")
	}
}

func TestLedgerRoutes(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodPost, "/api/v1/records", issueDraft("STU-006"))
	var created struct {
		Record struct {
			ID string `json:"id"`
		} `json:"record"`
		Transaction struct {
			TransactionID string `json:"transaction_id"`
		} `json:"transaction"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, e.router, http.MethodGet, "/api/v1/ledger", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var overview struct {
		Entries int `json:"entries"`
	}
	json.Unmarshal(w.Body.Bytes(), &overview)
	if overview.Entries != 1 {
		t.Errorf("entries = %d, want 1", overview.Entries)
	}

	w = doJSON(t, e.router, http.MethodGet, "/api/v1/ledger/transactions/"+created.Transaction.TransactionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, e.router, http.MethodGet, "/api/v1/ledger/transactions/0xdoesnotexist", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, e.router, http.MethodGet, "/api/v1/ledger/records/"+created.Record.ID, nil)
	var history struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &history)
	if history.Count != 1 {
		t.Errorf("history count = %d, want 1", history.Count)
	}
}

func TestHealthz(t *testing.T) {
	e := setupEnv(t)

	w := doJSON(t, e.router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
