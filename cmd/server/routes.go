package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"langlearn-server/internal/attempt"
	"langlearn-server/internal/auth"
	"langlearn-server/internal/logger"
	"langlearn-server/internal/quiz"
	"langlearn-server/pkg/httpx"
)

type routerDeps struct {
	log      *logger.Logger
	ping     func(ctx context.Context) error
	sessions *auth.SessionManager
	cookies  auth.CookieConfig
	admin    *auth.AdminAuth
	auth     *auth.Handler
	quiz     *quiz.Handler
	attempt  *attempt.Handler
	hub      interface {
		HandleWebSocket(w http.ResponseWriter, r *http.Request)
	}
}

func newRouter(d routerDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(httpx.RequestID, httpx.RequestLogger(d.log), httpx.SecureHeaders)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.ping != nil {
			if err := d.ping(r.Context()); err != nil {
				d.log.Error("health check failed", "error", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	requireUser := auth.RequireUser(d.sessions, d.cookies, d.log)

	// Auth routes, no session required
	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", d.auth.Register).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", d.auth.Login).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/verify", d.auth.Verify).Methods("GET")
	authRouter.HandleFunc("/refresh", d.auth.Refresh).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/qr-login", d.auth.QRLogin).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/logout", d.auth.Logout).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/request-reset", d.auth.RequestReset).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/reset", d.auth.Reset).Methods("POST", "OPTIONS")
	authRouter.Handle("/me", requireUser(http.HandlerFunc(d.auth.Me))).Methods("GET")

	// Student routes, session required
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(requireUser)
	apiRouter.HandleFunc("/quizzes", d.quiz.ListQuizzes).Methods("GET")
	apiRouter.HandleFunc("/quizzes/{id}", d.quiz.GetQuiz).Methods("GET")
	apiRouter.HandleFunc("/quiz-attempts/start", d.attempt.Start).Methods("POST")
	apiRouter.HandleFunc("/quiz-attempts/{id}/answer", d.attempt.Answer).Methods("POST")
	apiRouter.HandleFunc("/quiz-attempts/{id}/finish", d.attempt.Finish).Methods("POST")
	apiRouter.HandleFunc("/quiz-attempts/{id}/results", d.attempt.Results).Methods("GET")

	// Admin routes, admin token required
	router.HandleFunc("/api/admin/login", d.auth.AdminLogin).Methods("POST", "OPTIONS")
	adminRouter := router.PathPrefix("/api/admin").Subrouter()
	adminRouter.Use(d.admin.RequireAdmin)
	adminRouter.HandleFunc("/courses", d.quiz.AdminListCourses).Methods("GET")
	adminRouter.HandleFunc("/courses", d.quiz.AdminCreateCourse).Methods("POST")
	adminRouter.HandleFunc("/courses/{id}/lessons", d.quiz.AdminCreateLesson).Methods("POST")
	adminRouter.HandleFunc("/courses/{id}/students", d.quiz.AdminCourseStudents).Methods("GET")
	adminRouter.HandleFunc("/enrollments", d.quiz.AdminEnroll).Methods("POST")
	adminRouter.HandleFunc("/quizzes", d.quiz.AdminListQuizzes).Methods("GET")
	adminRouter.HandleFunc("/quizzes", d.quiz.AdminCreateQuiz).Methods("POST")
	adminRouter.HandleFunc("/quizzes/{id}", d.quiz.AdminGetQuiz).Methods("GET")
	adminRouter.HandleFunc("/quizzes/{id}", d.quiz.AdminUpdateQuiz).Methods("PUT")
	adminRouter.HandleFunc("/quizzes/{id}", d.quiz.AdminDeleteQuiz).Methods("DELETE")
	adminRouter.HandleFunc("/quizzes/{id}/questions", d.quiz.AdminAddQuestion).Methods("POST")
	adminRouter.HandleFunc("/questions/{id}", d.quiz.AdminDeleteQuestion).Methods("DELETE")

	// WebSocket endpoint
	router.Handle("/ws/attempts", requireUser(http.HandlerFunc(d.hub.HandleWebSocket)))

	return router
}
