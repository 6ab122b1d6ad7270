package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockedu/blockedu/pkg/client"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/records":
			gotAuth = r.Header.Get("Authorization")
			var req client.IssueRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"record": map[string]any{
					"id":           "0d5ad334-6c7e-4a43-a8d7-7e6f4028b2f1",
					"subject_id":   req.SubjectID,
					"type":         req.Type,
					"title":        req.Title,
					"content_hash": "abc123",
				},
				"transaction": map[string]any{
					"transaction_id": "0xdeadbeef",
					"record_id":      "0d5ad334-6c7e-4a43-a8d7-7e6f4028b2f1",
					"block_number":   4500001,
				},
			})
		case "GET /api/v1/verify/records/0d5ad334-6c7e-4a43-a8d7-7e6f4028b2f1":
			json.NewEncoder(w).Encode(map[string]any{
				"record_id": "0d5ad334-6c7e-4a43-a8d7-7e6f4028b2f1",
				"verified":  true,
				"tampered":  false,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithBearerToken("tok-1"))

	issued, err := c.IssueRecord(context.Background(), client.IssueRequest{
		SubjectID: "STU-001",
		Type:      "transcript",
		Title:     "Semester 1 Transcript",
		Payload:   json.RawMessage(`{"gpa":9.1}`),
	})
	if err != nil {
		t.Fatalf("IssueRecord: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization header = %q, want Bearer tok-1", gotAuth)
	}
	if issued.Record == nil || issued.Record.ContentHash != "abc123" {
		t.Fatalf("unexpected record: %+v", issued.Record)
	}
	if issued.Transaction == nil || issued.Transaction.TransactionID != "0xdeadbeef" {
		t.Fatalf("unexpected transaction: %+v", issued.Transaction)
	}

	res, err := c.VerifyRecord(context.Background(), issued.Record.ID)
	if err != nil {
		t.Fatalf("VerifyRecord: %v", err)
	}
	if !res.Verified || res.Tampered {
		t.Errorf("unexpected verdict: %+v", res)
	}
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "session-abc"})
		case "/api/v1/ledger":
			if r.Header.Get("Authorization") != "Bearer session-abc" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "missing token"})
				return
			}
			json.NewEncoder(w).Encode(map[string]int{"entries": 7})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL)
	token, err := c.Login(context.Background(), "registrar@blockedu.example", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "session-abc" {
		t.Errorf("token = %q", token)
	}

	n, err := c.LedgerLen(context.Background())
	if err != nil {
		t.Fatalf("LedgerLen: %v", err)
	}
	if n != 7 {
		t.Errorf("LedgerLen = %d, want 7", n)
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "payload is immutable"})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL)
	title := "new title"
	_, err := c.UpdateMetadata(context.Background(), "some-id", client.MetadataPatch{Title: &title})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Message != "payload is immutable" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestVerifySubjectReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/verify/subjects/STU-042" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"subject_id":     "STU-042",
			"total":          3,
			"tampered_count": 1,
			"verified":       false,
			"message":        "1 of 3 records failed verification",
			"results": []map[string]any{
				{"record_id": "a", "verified": true},
				{"record_id": "b", "verified": false, "tampered": true, "reason": "hash_mismatch"},
				{"record_id": "c", "verified": true},
			},
		})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL)
	report, err := c.VerifySubject(context.Background(), "STU-042")
	if err != nil {
		t.Fatalf("VerifySubject: %v", err)
	}
	if report.Verified || report.TamperedCount != 1 || len(report.Results) != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
}
