package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/config"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/middleware"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/goccy/go-json"
	"github.com/op/go-logging"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

func TestMain(m *testing.M) {
	auth.PasswordCost = bcrypt.MinCost
	logger.InitLogger(logging.ERROR)
	os.Exit(m.Run())
}

type testServer struct {
	h       *DBHandler
	handler http.Handler
}

func newTestServer(t *testing.T, policy Policy) *testServer {
	t.Helper()
	db, err := config.Connect(&config.Config{DBDriver: "sqlite", DBURL: "file::memory:", LogLevel: logging.ERROR})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := auth.NewManager(auth.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "quizwhiz-test",
		Audience:   "quizwhiz-test-api",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tokenMW, err := middleware.EnsureValidToken(tokens)
	if err != nil {
		t.Fatalf("EnsureValidToken failed: %v", err)
	}

	h := &DBHandler{
		DB:        db,
		Tokens:    tokens,
		Blacklist: auth.NewGormBlacklist(db),
		Policy:    policy,
	}
	return &testServer{h: h, handler: tokenMW(h.Routes())}
}

func (s *testServer) createUser(t *testing.T, username string, staff bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{Username: username, Password: hash, Email: username + "@example.com", IsStaff: staff}
	if err := s.h.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (s *testServer) createLesson(t *testing.T, owner *models.User, title, category string, public bool) *models.Lesson {
	t.Helper()
	lesson := &models.Lesson{Title: title, Category: category, CreatedByID: owner.ID, IsPublic: public}
	if err := s.h.Omit("CreatedBy").Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return lesson
}

func (s *testServer) createFlashcard(t *testing.T, owner *models.User, lesson *models.Lesson, front string) *models.Flashcard {
	t.Helper()
	card := &models.Flashcard{FrontText: front, BackText: "back of " + front, LessonID: lesson.ID, CreatedByID: owner.ID}
	if err := s.h.Omit("Lesson", "CreatedBy").Create(card).Error; err != nil {
		t.Fatalf("create flashcard: %v", err)
	}
	return card
}

func (s *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	access, err := s.h.Tokens.IssueAccess(user.ID, user.TokenVersion)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	return access
}

// do sends a request through the full middleware chain. An empty token makes
// an anonymous request.
func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, w, status)
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %q", message, body["error"])
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Policy{})
	w := s.do(t, http.MethodGet, "/healthz", "", "")
	expectStatus(t, w, http.StatusOK)

	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}
