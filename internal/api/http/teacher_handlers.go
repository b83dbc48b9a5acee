package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dblearn/quizdesk/internal/quiz"
	"github.com/dblearn/quizdesk/internal/rbac"
)

// POST /tests
func CreateTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title            string `json:"title"`
			Description      string `json:"description"`
			TimeLimitMin     int    `json:"time_limit"`
			MaxAttempts      int    `json:"max_attempts"`
			ShuffleQuestions bool   `json:"shuffle_questions"`
			ShowResults      bool   `json:"show_results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if req.TimeLimitMin <= 0 {
			req.TimeLimitMin = 60
		}
		if req.MaxAttempts < 0 {
			http.Error(w, "max_attempts must be >= 0", http.StatusBadRequest)
			return
		}

		id, err := store.CreateTest(r.Context(), quiz.Test{
			Title:            strings.TrimSpace(req.Title),
			Description:      req.Description,
			TimeLimitMin:     req.TimeLimitMin,
			MaxAttempts:      req.MaxAttempts,
			ShuffleQuestions: req.ShuffleQuestions,
			ShowResults:      req.ShowResults,
			CreatedBy:        rbac.SubjectFromContext(r.Context()),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]int64{"id": id})
	}
}

// POST /tests/{testID}/questions
func AddQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		var in quiz.QuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if msg := validateQuestion(&in); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		id, err := store.CreateQuestion(r.Context(), testID, in)
		if err != nil {
			if errors.Is(err, quiz.ErrTestNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]int64{"id": id})
	}
}

// validateQuestion rejects a definition before anything is persisted.
// Returns a user-facing message, or "" when the input is acceptable.
func validateQuestion(in *quiz.QuestionInput) string {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return "question text required"
	}
	if in.Type == "" {
		in.Type = quiz.TypeSingleChoice
	}
	switch in.Type {
	case quiz.TypeSingleChoice, quiz.TypeMultipleChoice:
		if len(in.Options) < 2 {
			return "at least two options required"
		}
	case quiz.TypeText:
		in.Options = nil
	default:
		return "unknown question type: " + in.Type
	}
	if len(in.CorrectAnswers) == 0 {
		return "at least one correct answer required"
	}
	if in.Points <= 0 {
		in.Points = 1
	}
	return ""
}

// GET /tests (teacher's own)
func ListMyTestsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tests, err := store.ListTeacherTests(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, tests)
	}
}

// POST /tests/{testID}/deactivate
func DeactivateTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		err := store.DeactivateTest(r.Context(), testID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			if errors.Is(err, quiz.ErrTestNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
