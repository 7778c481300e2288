package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/andrewpaige1/quizwhiz-api/models"
)

func lessonIDs(lessons []models.Lesson) map[uint]bool {
	ids := make(map[uint]bool, len(lessons))
	for _, l := range lessons {
		ids[l.ID] = true
	}
	return ids
}

func TestCreateLesson(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	token := s.token(t, alice)

	expectStatus(t, s.do(t, http.MethodPost, "/lessons/new", `{"title":"Go"}`, ""), http.StatusUnauthorized)
	expectError(t, s.do(t, http.MethodPost, "/lessons/new", `{"title":"Go"}`, token),
		http.StatusUnauthorized, "Please provide title, description and category")

	expectStatus(t, s.do(t, http.MethodPost, "/lessons/new",
		`{"title":"Go","description":"basics","category":"Programming"} trailing-garbage`, token), http.StatusBadRequest)

	var count int64
	s.h.Model(&models.Lesson{}).Count(&count)
	if count != 0 {
		t.Fatalf("incomplete lesson was stored: %d rows", count)
	}

	w := s.do(t, http.MethodPost, "/lessons/new", `{"title":"Go","description":"basics","category":"Programming"}`, token)
	expectStatus(t, w, http.StatusOK)
	var lesson models.Lesson
	decode(t, w, &lesson)
	if lesson.ID == 0 || lesson.CreatedByID != alice.ID || lesson.IsPublic {
		t.Fatalf("unexpected lesson %+v", lesson)
	}
	if lesson.Description == nil || *lesson.Description != "basics" {
		t.Fatalf("unexpected description %v", lesson.Description)
	}
}

func TestUpdateLessonResetsIsPublic(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	lesson := s.createLesson(t, alice, "Go", "Programming", true)

	w := s.do(t, http.MethodPatch, "/lessons/update", fmt.Sprintf(`{"lesson_id":%d,"title":"Go 2"}`, lesson.ID), s.token(t, alice))
	expectStatus(t, w, http.StatusOK)

	var stored models.Lesson
	s.h.First(&stored, lesson.ID)
	if stored.IsPublic {
		t.Fatal("is_public should reset to false when omitted")
	}
	if stored.Title != "Go 2" || stored.Category != "Programming" {
		t.Fatalf("unexpected merge result %+v", stored)
	}

	w = s.do(t, http.MethodPatch, "/lessons/update", fmt.Sprintf(`{"lesson_id":%d,"is_public":true}`, lesson.ID), s.token(t, alice))
	expectStatus(t, w, http.StatusOK)
	s.h.First(&stored, lesson.ID)
	if !stored.IsPublic || stored.Title != "Go 2" {
		t.Fatalf("unexpected merge result %+v", stored)
	}
}

func TestUpdateLessonRules(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	bob := s.createUser(t, "bob", false)
	admin := s.createUser(t, "admin", true)
	lesson := s.createLesson(t, alice, "Go", "Programming", false)

	expectError(t, s.do(t, http.MethodPatch, "/lessons/update", `{"title":"x"}`, s.token(t, alice)),
		http.StatusUnauthorized, "Please provide lesson_id")
	expectStatus(t, s.do(t, http.MethodPatch, "/lessons/update", `{"lesson_id":9999}`, s.token(t, alice)), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPatch, "/lessons/update", fmt.Sprintf(`{"lesson_id":%d,"created_by":%d}`, lesson.ID, bob.ID), s.token(t, alice)),
		http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPatch, "/lessons/update", fmt.Sprintf(`{"lesson_id":%d,"title":"mine now"}`, lesson.ID), s.token(t, bob)),
		http.StatusForbidden)

	w := s.do(t, http.MethodPatch, "/lessons/update", fmt.Sprintf(`{"lesson_id":%d,"title":"reviewed"}`, lesson.ID), s.token(t, admin))
	expectStatus(t, w, http.StatusOK)
	var stored models.Lesson
	s.h.First(&stored, lesson.ID)
	if stored.Title != "reviewed" || stored.CreatedByID != alice.ID {
		t.Fatalf("unexpected lesson after staff update %+v", stored)
	}
}

func TestDeleteLesson(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	bob := s.createUser(t, "bob", false)
	lesson := s.createLesson(t, alice, "Go", "Programming", false)
	s.createFlashcard(t, alice, lesson, "goroutine")
	body := fmt.Sprintf(`{"lesson_id":%d}`, lesson.ID)

	expectStatus(t, s.do(t, http.MethodDelete, "/lessons/delete", body, s.token(t, bob)), http.StatusForbidden)
	if err := s.h.First(&models.Lesson{}, lesson.ID).Error; err != nil {
		t.Fatalf("lesson removed by non-owner: %v", err)
	}

	expectError(t, s.do(t, http.MethodDelete, "/lessons/delete", `{}`, s.token(t, alice)),
		http.StatusUnauthorized, "Please provide lesson_id")

	w := s.do(t, http.MethodDelete, "/lessons/delete", body, s.token(t, alice))
	expectStatus(t, w, http.StatusOK)
	var msg map[string]string
	decode(t, w, &msg)
	if msg["message"] != "Lesson deleted successfully" {
		t.Fatalf("unexpected body %v", msg)
	}

	var count int64
	s.h.Model(&models.Flashcard{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	if count != 0 {
		t.Fatalf("flashcards not cascaded: %d left", count)
	}
	expectStatus(t, s.do(t, http.MethodDelete, "/lessons/delete", body, s.token(t, alice)), http.StatusNotFound)
}

func TestListLessonsStaffOnly(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	admin := s.createUser(t, "admin", true)
	s.createLesson(t, alice, "Private", "Math", false)
	s.createLesson(t, alice, "Public", "Math", true)

	expectError(t, s.do(t, http.MethodGet, "/lessons/", "", s.token(t, alice)), http.StatusUnauthorized, "Unauthorized")

	w := s.do(t, http.MethodGet, "/lessons/", "", s.token(t, admin))
	expectStatus(t, w, http.StatusOK)
	var lessons []models.Lesson
	decode(t, w, &lessons)
	if len(lessons) != 2 {
		t.Fatalf("expected all lessons for staff, got %d", len(lessons))
	}
}

func TestListPublicLessonsNeverIncludesPrivate(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	for i := 0; i < 6; i++ {
		s.createLesson(t, alice, fmt.Sprintf("Lesson %d", i), "Math", i%2 == 0)
	}

	w := s.do(t, http.MethodGet, "/lessons/public", "", "")
	expectStatus(t, w, http.StatusOK)
	var lessons []models.Lesson
	decode(t, w, &lessons)
	if len(lessons) != 3 {
		t.Fatalf("expected 3 public lessons, got %d", len(lessons))
	}
	for _, l := range lessons {
		if !l.IsPublic {
			t.Fatalf("private lesson %d listed as public", l.ID)
		}
	}
}

func TestListLessonsByUser(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	staff := s.createUser(t, "staff", true)
	carol := s.createUser(t, "carol", false)
	private := s.createLesson(t, alice, "Private notes", "Math", false)
	public := s.createLesson(t, alice, "Shared notes", "Math", true)
	path := fmt.Sprintf("/lessons/user/%d", alice.ID)

	cases := []struct {
		name  string
		token string
		want  map[uint]bool
	}{
		{"staff", s.token(t, staff), map[uint]bool{private.ID: true, public.ID: true}},
		{"owner", s.token(t, alice), map[uint]bool{private.ID: true, public.ID: true}},
		{"other user", s.token(t, carol), map[uint]bool{public.ID: true}},
		{"anonymous", "", map[uint]bool{public.ID: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, path, "", tc.token)
			expectStatus(t, w, http.StatusOK)
			var lessons []models.Lesson
			decode(t, w, &lessons)
			got := lessonIDs(lessons)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for id := range tc.want {
				if !got[id] {
					t.Fatalf("expected lesson %d in %v", id, got)
				}
			}
		})
	}

	expectError(t, s.do(t, http.MethodGet, "/lessons/user/9999", "", ""), http.StatusUnauthorized, "User not found")
}

func TestGetLessonByID(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	lesson := s.createLesson(t, alice, "Private notes", "Math", false)
	path := fmt.Sprintf("/lessons/id/%d", lesson.ID)

	first := s.do(t, http.MethodGet, path, "", "")
	expectStatus(t, first, http.StatusOK)
	second := s.do(t, http.MethodGet, path, "", "")
	expectStatus(t, second, http.StatusOK)
	if first.Body.String() != second.Body.String() {
		t.Fatalf("repeated reads differ:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	expectStatus(t, s.do(t, http.MethodGet, "/lessons/id/9999", "", ""), http.StatusNotFound)

	strict := newTestServer(t, Policy{EnforceLessonVisibility: true})
	owner := strict.createUser(t, "alice", false)
	hidden := strict.createLesson(t, owner, "Private notes", "Math", false)
	path = fmt.Sprintf("/lessons/id/%d", hidden.ID)
	expectStatus(t, strict.do(t, http.MethodGet, path, "", ""), http.StatusForbidden)
	expectStatus(t, strict.do(t, http.MethodGet, path, "", strict.token(t, owner)), http.StatusOK)
}

func TestListLessonsByCategory(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	staff := s.createUser(t, "staff", true)
	public := s.createLesson(t, alice, "Algebra", "Math", true)
	s.createLesson(t, alice, "Calculus", "Math", false)
	s.createLesson(t, alice, "Verbs", "Languages", true)

	for _, category := range []string{"math", "MATH", "Math"} {
		w := s.do(t, http.MethodGet, "/lessons/category/"+category, "", "")
		expectStatus(t, w, http.StatusOK)
		var lessons []models.Lesson
		decode(t, w, &lessons)
		if len(lessons) != 1 || lessons[0].ID != public.ID {
			t.Fatalf("category %q: expected only the public math lesson, got %+v", category, lessons)
		}
	}

	w := s.do(t, http.MethodGet, "/lessons/category/math", "", s.token(t, staff))
	expectStatus(t, w, http.StatusOK)
	var lessons []models.Lesson
	decode(t, w, &lessons)
	if len(lessons) != 2 {
		t.Fatalf("staff should see both math lessons, got %d", len(lessons))
	}

	economics := s.createLesson(t, alice, "Markets", "Économie", true)
	w = s.do(t, http.MethodGet, "/lessons/category/%C3%A9conomie", "", "")
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &lessons)
	if len(lessons) != 1 || lessons[0].ID != economics.ID {
		t.Fatalf("non-ASCII category should match case-insensitively, got %+v", lessons)
	}
}

func TestListLessonsByKeywords(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	goLesson := s.createLesson(t, alice, "Intro to Go", "Programming", true)
	pyLesson := s.createLesson(t, alice, "Advanced PYTHON", "Programming", false)
	s.createLesson(t, alice, "Cooking", "Life", true)
	percent := s.createLesson(t, alice, "Giving 100% effort", "Life", true)
	s.createLesson(t, alice, "1000 ways", "Life", true)

	w := s.do(t, http.MethodGet, "/lessons/keywords/go%20python", "", "")
	expectStatus(t, w, http.StatusOK)
	var lessons []models.Lesson
	decode(t, w, &lessons)
	got := lessonIDs(lessons)
	if len(got) != 2 || !got[goLesson.ID] || !got[pyLesson.ID] {
		t.Fatalf("expected go and python lessons, got %v", got)
	}

	w = s.do(t, http.MethodGet, "/lessons/keywords/100%25", "", "")
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &lessons)
	if len(lessons) != 1 || lessons[0].ID != percent.ID {
		t.Fatalf("expected literal %% match only, got %+v", lessons)
	}

	expectStatus(t, s.do(t, http.MethodGet, "/lessons/keywords/%20", "", ""), http.StatusBadRequest)

	strict := newTestServer(t, Policy{EnforceLessonVisibility: true})
	owner := strict.createUser(t, "alice", false)
	strict.createLesson(t, owner, "Advanced PYTHON", "Programming", false)
	w = strict.do(t, http.MethodGet, "/lessons/keywords/python", "", "")
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &lessons)
	if len(lessons) != 0 {
		t.Fatalf("private lesson leaked through keyword search: %+v", lessons)
	}
	w = strict.do(t, http.MethodGet, "/lessons/keywords/python", "", strict.token(t, owner))
	decode(t, w, &lessons)
	if len(lessons) != 1 {
		t.Fatalf("owner should find their private lesson, got %d", len(lessons))
	}
}

func TestGetTopCategories(t *testing.T) {
	s := newTestServer(t, Policy{})
	alice := s.createUser(t, "alice", false)
	counts := map[string]int{"Math": 3, "Art": 2, "Biology": 2, "Chemistry": 1, "Drama": 1}
	for category, n := range counts {
		for i := 0; i < n; i++ {
			s.createLesson(t, alice, fmt.Sprintf("%s %d", category, i), category, i == 0)
		}
	}

	w := s.do(t, http.MethodGet, "/lessons/top-categories", "", "")
	expectStatus(t, w, http.StatusOK)
	var top []models.CategoryCount
	decode(t, w, &top)
	want := []models.CategoryCount{
		{Category: "Math", Count: 3},
		{Category: "Art", Count: 2},
		{Category: "Biology", Count: 2},
		{Category: "Chemistry", Count: 1},
	}
	if len(top) != len(want) {
		t.Fatalf("expected %d categories, got %+v", len(want), top)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("position %d: expected %+v, got %+v", i, want[i], top[i])
		}
	}

	strict := newTestServer(t, Policy{EnforceLessonVisibility: true})
	owner := strict.createUser(t, "alice", false)
	strict.createLesson(t, owner, "Hidden", "Secret", false)
	strict.createLesson(t, owner, "Shown", "Open", true)
	w = strict.do(t, http.MethodGet, "/lessons/top-categories", "", "")
	decode(t, w, &top)
	if len(top) != 1 || top[0].Category != "Open" {
		t.Fatalf("expected only public categories, got %+v", top)
	}
}
