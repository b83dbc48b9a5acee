package main

import (
	"context"
	"net/http"
	"time"

	"github.com/dblearn/quizdesk/internal/analytics"
	api "github.com/dblearn/quizdesk/internal/api/http"
	auth "github.com/dblearn/quizdesk/internal/auth/middleware"
	"github.com/dblearn/quizdesk/internal/config"
	"github.com/dblearn/quizdesk/internal/db"
	"github.com/dblearn/quizdesk/internal/quiz"
	"github.com/dblearn/quizdesk/internal/rbac"
	"github.com/dblearn/quizdesk/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)
	defer func() { _ = log.Sync() }()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	if err := db.Bootstrap(ctx, dbh, cfg.TeacherUser, cfg.TeacherPassHash); err != nil {
		log.Fatal("bootstrap teacher account", zap.Error(err))
	}

	hasher := quiz.NewHasher(cfg.AnswerSalt)
	store := quiz.NewSQLStore(dbh, hasher)
	agg := analytics.NewAggregator(dbh, cfg.DBDriver)
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(api.RequestLogger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", auth.RegisterHandler(dbh))
	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", auth.ChangePasswordHandler(dbh))

		// Teacher flow
		pr.With(rbac.Require("test:create")).
			Post("/tests", api.CreateTestHandler(store))
		pr.With(rbac.Require("test:create")).
			Get("/tests", api.ListMyTestsHandler(store))
		pr.With(rbac.Require("question:create")).
			Post("/tests/{testID}/questions", api.AddQuestionHandler(store))
		pr.With(rbac.Require("test:deactivate")).
			Post("/tests/{testID}/deactivate", api.DeactivateTestHandler(store))

		// Shared
		pr.With(rbac.Require("test:view")).
			Get("/tests/available", api.AvailableTestsHandler(store))
		pr.With(rbac.Require("test:view")).
			Get("/tests/{testID}", api.GetTestHandler(store))
		pr.With(rbac.Require("question:view")).
			Get("/tests/{testID}/questions", api.ListQuestionsHandler(store))

		// Student flow
		pr.With(rbac.Require("test:take")).
			Post("/tests/{testID}/submit", api.SubmitTestHandler(store))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results", api.ListResultsHandler(store))
		pr.With(rbac.RequireAny("progress:view-own", "result:view-all")).
			Get("/progress", api.ProgressHandler(agg))

		// Analytics (teacher/admin)
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/groups/{group}", api.GroupStatsHandler(agg))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/tests/{testID}", api.TestAnalyticsHandler(agg))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/ranking", api.RankingHandler(agg))
		pr.With(rbac.Require("analytics:view")).
			Get("/analytics/dashboard", api.DashboardHandler(agg))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.DBDriver))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
