package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/dblearn/quizdesk/internal/analytics"
	"github.com/dblearn/quizdesk/internal/rbac"
	"github.com/go-chi/chi/v5"
)

// GET /analytics/groups/{group}
func GroupStatsHandler(agg *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := chi.URLParam(r, "group")
		gs, err := agg.GroupStatistics(r.Context(), group)
		if err != nil {
			if errors.Is(err, analytics.ErrNoStudents) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, gs)
	}
}

// GET /analytics/tests/{testID}
func TestAnalyticsHandler(agg *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, ok := testIDParam(r)
		if !ok {
			http.Error(w, "bad test id", http.StatusBadRequest)
			return
		}
		ts, err := agg.TestAnalytics(r.Context(), testID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "test not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, ts)
	}
}

// GET /progress?student=...
func ProgressHandler(agg *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		student := rbac.SubjectFromContext(r.Context())
		if role == "teacher" || role == "admin" {
			if s := strings.TrimSpace(r.URL.Query().Get("student")); s != "" {
				student = s
			}
		}
		points, err := agg.StudentProgress(r.Context(), student)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, points)
	}
}

// GET /analytics/ranking
func RankingHandler(agg *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranking, err := agg.StudentRanking(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, ranking)
	}
}

// GET /analytics/dashboard
func DashboardHandler(agg *analytics.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := agg.TeacherDashboard(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, ds)
	}
}
