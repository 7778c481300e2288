package handlers

import (
	"net/http"

	"github.com/andrewpaige1/quizwhiz-api/middleware"
)

// Routes registers every endpoint. The bearer token itself is validated by
// middleware.EnsureValidToken in front of the mux.
func (db *DBHandler) Routes() *http.ServeMux {
	users := &middleware.Users{DB: db.DB}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", db.Health)

	// Users
	mux.HandleFunc("GET /users/{$}", users.Require(db.GetCurrentUser))
	mux.HandleFunc("GET /users/list", users.Require(db.ListUsers))
	mux.HandleFunc("POST /users/login", db.Login)
	mux.HandleFunc("POST /users/logout", users.Require(db.Logout))
	mux.HandleFunc("POST /users/refresh", db.RefreshToken)
	mux.HandleFunc("POST /users/signup", db.Signup)
	mux.HandleFunc("GET /users/user/{id}", users.Require(db.GetUserByID))
	mux.HandleFunc("PATCH /users/update", users.Require(db.UpdateUser))
	mux.HandleFunc("DELETE /users/delete", users.Require(db.DeleteUser))

	// Lessons
	mux.HandleFunc("GET /lessons/{$}", users.Require(db.ListLessons))
	mux.HandleFunc("GET /lessons/public", db.ListPublicLessons)
	mux.HandleFunc("GET /lessons/id/{id}", users.Optional(db.GetLessonByID))
	mux.HandleFunc("GET /lessons/user/{user_id}", users.Optional(db.ListLessonsByUser))
	mux.HandleFunc("GET /lessons/category/{category}", users.Optional(db.ListLessonsByCategory))
	mux.HandleFunc("GET /lessons/keywords/{keywords}", users.Optional(db.ListLessonsByKeywords))
	mux.HandleFunc("POST /lessons/new", users.Require(db.CreateLesson))
	mux.HandleFunc("PATCH /lessons/update", users.Require(db.UpdateLesson))
	mux.HandleFunc("DELETE /lessons/delete", users.Require(db.DeleteLesson))
	mux.HandleFunc("GET /lessons/top-categories", users.Optional(db.GetTopCategories))

	// Flashcards
	mux.HandleFunc("POST /flashcards/{$}", users.Require(db.CreateFlashcard))
	mux.HandleFunc("GET /flashcards/public/{$}", db.ListPublicFlashcards)
	mux.HandleFunc("GET /flashcards/by-lesson/{id}/{$}", users.Optional(db.ListFlashcardsByLesson))
	mux.HandleFunc("GET /flashcards/{id}/{$}", users.Optional(db.GetFlashcardByID))
	mux.HandleFunc("PUT /flashcards/{id}/{$}", users.Require(db.UpdateFlashcardByID))
	mux.HandleFunc("DELETE /flashcards/{id}/{$}", users.Require(db.DeleteFlashcardByID))

	return mux
}
