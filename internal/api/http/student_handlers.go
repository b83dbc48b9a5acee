package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dblearn/quizdesk/internal/quiz"
	"github.com/dblearn/quizdesk/internal/rbac"
)

// GET /tests/available
func AvailableTestsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := store.AvailableTests(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, tests)
	}
}

// POST /tests/{testID}/submit
// The UI timer calls this with whatever answers were collected when time
// expires; the semantics are the same as a manual submit.
func SubmitTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		var req struct {
			Answers   map[string]any `json:"answers"`
			TimeSpent int            `json:"time_spent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.TimeSpent < 0 {
			req.TimeSpent = 0
		}

		res, err := store.Submit(r.Context(), testID, rbac.SubjectFromContext(r.Context()), req.Answers, req.TimeSpent)
		if err != nil {
			switch {
			case errors.Is(err, quiz.ErrTestNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, quiz.ErrAttemptsSpent):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, res)
	}
}

// GET /results?test_id=...&student=...
// Students only ever see their own results; teachers may pass student=.
func ListResultsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		student := rbac.SubjectFromContext(r.Context())
		if role == "teacher" || role == "admin" {
			if s := strings.TrimSpace(r.URL.Query().Get("student")); s != "" {
				student = s
			}
		}
		testID, _ := strconv.ParseInt(r.URL.Query().Get("test_id"), 10, 64)

		results, err := store.ListResults(r.Context(), student, testID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	}
}
