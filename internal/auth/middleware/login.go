package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// POST /auth/login  { "username": "...", "password": "..." }
// Unknown user and wrong password get the same answer so the response
// never reveals which field was wrong.
func LoginHandler(a *AuthService, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		var hash, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT password_hash, role FROM users WHERE username=$1`, req.Username).Scan(&hash, &role)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// POST /auth/register  { "username", "password", "role", "full_name", "group", "email" }
func RegisterHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
			FullName string `json:"full_name"`
			Group    string `json:"group"`
			Email    string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}
		if req.Role == "" {
			req.Role = "student"
		}
		if req.Role != "student" && req.Role != "teacher" {
			http.Error(w, "invalid role: "+req.Role, http.StatusBadRequest)
			return
		}

		var one int
		err := db.QueryRowContext(r.Context(),
			`SELECT 1 FROM users WHERE username=$1`, req.Username).Scan(&one)
		if err == nil {
			http.Error(w, "user already exists", http.StatusConflict)
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO users (username, password_hash, role, full_name, group_name, email, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			req.Username, string(hash), req.Role,
			nullable(req.FullName), nullable(req.Group), nullable(req.Email), nowUnix())
		if err != nil {
			// Two concurrent registrations can both pass the existence
			// check; the primary key decides the loser.
			if isUniqueViolation(err) {
				http.Error(w, "user already exists", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"username": req.Username, "role": req.Role})
	}
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value violates unique constraint") || // postgres
		strings.Contains(msg, "sqlstate 23505")
}
