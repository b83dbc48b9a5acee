package http

import (
	"errors"
	"net/http"

	"github.com/dblearn/quizdesk/internal/quiz"
)

// GET /tests/{testID}
func GetTestHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		t, err := store.GetTest(r.Context(), testID)
		if err != nil {
			if errors.Is(err, quiz.ErrTestNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, t)
	}
}

// GET /tests/{testID}/questions
// Questions carry no answer keys; keys live in their own table and are
// only read during scoring.
func ListQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		qs, err := store.ListQuestions(r.Context(), testID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, qs)
	}
}
