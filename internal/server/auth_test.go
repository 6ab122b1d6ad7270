package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/blockedu/blockedu/internal/server"
	"github.com/blockedu/blockedu/internal/verification"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupAuthEnv builds a router with auth enforcement enabled.
func setupAuthEnv(t *testing.T) (*gin.Engine, *auth.UserStore, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	backend := records.NewMemory()
	store := records.NewStore(backend, hashing.Default())
	ledgerStore := ledger.NewMemory()
	svc := records.NewService(store, ledgerStore, logger)
	verifier := verification.NewEngine(store, ledgerStore, logger)

	users := auth.NewUserStore()
	tokens := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "http://blockedu.test", time.Hour)

	router := server.NewRouter(server.Config{CORSOrigins: []string{"*"}}, server.Deps{
		Records:  svc,
		Ledger:   ledgerStore,
		Verifier: verifier,
		Users:    users,
		Tokens:   tokens,
		Logger:   logger,
	})
	return router, users, tokens
}

func doAuthJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	router, _, _ := setupAuthEnv(t)

	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":      "ravi@blockedu.example",
		"password":   "correct-horse",
		"name":       "Ravi Kumar",
		"student_id": "stu-042",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doAuthJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ravi@blockedu.example",
		"password": "correct-horse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &login)
	if login.Token == "" {
		t.Fatal("login returned no token")
	}

	w = doAuthJSON(t, router, http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me struct {
		Email     string `json:"email"`
		Role      string `json:"role"`
		StudentID string `json:"student_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &me)
	if me.Role != "student" {
		t.Errorf("self-registration must yield a student role, got %q", me.Role)
	}
	if me.StudentID != "STU-042" {
		t.Errorf("student id = %q, want STU-042 (normalized)", me.StudentID)
	}
}

func TestLogin_401_wrongPassword(t *testing.T) {
	router, users, _ := setupAuthEnv(t)
	users.Register(context.Background(), "a@blockedu.example", "right-password", "A", auth.RoleStudent, "")

	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "a@blockedu.example",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRegister_409_duplicateEmail(t *testing.T) {
	router, _, _ := setupAuthEnv(t)

	body := map[string]string{
		"email":    "dup@blockedu.example",
		"password": "some-password",
		"name":     "Dup",
	}
	doAuthJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", body)
	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIssueRecord_401_noToken(t *testing.T) {
	router, _, _ := setupAuthEnv(t)

	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/records", "", issueDraft("STU-001"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIssueRecord_403_studentRole(t *testing.T) {
	router, users, tokens := setupAuthEnv(t)
	u, _ := users.Register(context.Background(), "s@blockedu.example", "some-password", "S", auth.RoleStudent, "STU-001")
	token, _ := tokens.Issue(u)

	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/records", token, issueDraft("STU-001"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIssueRecord_201_facultyRole(t *testing.T) {
	router, users, tokens := setupAuthEnv(t)
	u, _ := users.Register(context.Background(), "f@blockedu.example", "some-password", "F", auth.RoleFaculty, "")
	token, _ := tokens.Issue(u)

	w := doAuthJSON(t, router, http.MethodPost, "/api/v1/records", token, issueDraft("STU-001"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVerify_publicWithoutToken(t *testing.T) {
	router, _, _ := setupAuthEnv(t)

	w := doAuthJSON(t, router, http.MethodGet, "/api/v1/verify/subjects/STU-001", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verification must stay public, got %d", w.Code)
	}
}
