package auth_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	auth "github.com/dblearn/quizdesk/internal/auth/middleware"
	"github.com/dblearn/quizdesk/internal/db"
	"github.com/dblearn/quizdesk/internal/rbac"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	dbh := openTestDB(t)
	svc := auth.NewAuthService("test-secret")

	rec := postJSON(t, auth.RegisterHandler(dbh), map[string]string{
		"username": "alice", "password": "pw1", "group": "G1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, auth.LoginHandler(svc, dbh), map[string]string{
		"username": "alice", "password": "pw1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Role != "student" {
		t.Fatalf("role defaults to student, got %q", resp.Role)
	}

	claims, err := svc.Parse(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Sub != "alice" || claims.Role != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	dbh := openTestDB(t)

	rec := postJSON(t, auth.RegisterHandler(dbh), map[string]string{"username": "bob", "password": "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: got %d", rec.Code)
	}
	rec = postJSON(t, auth.RegisterHandler(dbh), map[string]string{"username": "bob", "password": "other"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already exists") {
		t.Fatalf("expected already-exists message, got %q", rec.Body.String())
	}
}

// Both registrations can pass the existence check before either row
// lands; the loser's insert hits the primary key and must still come
// back as a conflict, not a server error.
func TestRegisterConcurrentDuplicate(t *testing.T) {
	dbh := openTestDB(t)
	h := auth.RegisterHandler(dbh)

	codes := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, _ := json.Marshal(map[string]string{"username": "race", "password": "pw"})
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
			rec := httptest.NewRecorder()
			h(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 || conflicts != 1 {
		t.Fatalf("expected one 201 and one 409, got created=%d conflicts=%d", created, conflicts)
	}

	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM users WHERE username='race'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}
}

func TestRegisterValidation(t *testing.T) {
	dbh := openTestDB(t)
	h := auth.RegisterHandler(dbh)

	if rec := postJSON(t, h, map[string]string{"username": "", "password": "pw"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank username: expected 400, got %d", rec.Code)
	}
	if rec := postJSON(t, h, map[string]string{"username": "x", "password": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank password: expected 400, got %d", rec.Code)
	}
	if rec := postJSON(t, h, map[string]string{"username": "x", "password": "pw", "role": "admin"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("admin self-registration: expected 400, got %d", rec.Code)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	dbh := openTestDB(t)
	svc := auth.NewAuthService("test-secret")

	if rec := postJSON(t, auth.RegisterHandler(dbh), map[string]string{"username": "carol", "password": "right"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d", rec.Code)
	}

	wrongPass := postJSON(t, auth.LoginHandler(svc, dbh), map[string]string{"username": "carol", "password": "wrong"})
	unknown := postJSON(t, auth.LoginHandler(svc, dbh), map[string]string{"username": "ghost", "password": "whatever"})

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both failures, got %d and %d", wrongPass.Code, unknown.Code)
	}
	// Both failures must be indistinguishable to the caller.
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("failure bodies differ: %q vs %q", wrongPass.Body.String(), unknown.Body.String())
	}
}

func TestChangePassword(t *testing.T) {
	dbh := openTestDB(t)
	svc := auth.NewAuthService("test-secret")

	if rec := postJSON(t, auth.RegisterHandler(dbh), map[string]string{"username": "dave", "password": "old"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d", rec.Code)
	}

	asUser := func(body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
		req = req.WithContext(rbac.WithSubject(req.Context(), "dave"))
		rec := httptest.NewRecorder()
		auth.ChangePasswordHandler(dbh)(rec, req)
		return rec
	}

	if rec := asUser(map[string]string{"old_password": "nope", "new_password": "new"}); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong old password: expected 403, got %d", rec.Code)
	}
	if rec := asUser(map[string]string{"old_password": "old", "new_password": "new"}); rec.Code != http.StatusNoContent {
		t.Fatalf("change password: expected 204, got %d", rec.Code)
	}

	if rec := postJSON(t, auth.LoginHandler(svc, dbh), map[string]string{"username": "dave", "password": "old"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", rec.Code)
	}
	if rec := postJSON(t, auth.LoginHandler(svc, dbh), map[string]string{"username": "dave", "password": "new"}); rec.Code != http.StatusOK {
		t.Fatalf("new password rejected: %d", rec.Code)
	}
}

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewAuthService("test-secret")
	tok, err := svc.IssueJWT("erin", "teacher")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotSub, gotRole string
	h := auth.JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = rbac.SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: got %d", rec.Code)
	}
	if gotSub != "erin" || gotRole != "teacher" {
		t.Fatalf("context not populated: sub=%q role=%q", gotSub, gotRole)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}

	otherTok, err := auth.NewAuthService("other-secret").IssueJWT("mallory", "admin")
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+otherTok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("token signed with wrong key accepted: %d", rec.Code)
	}
}
