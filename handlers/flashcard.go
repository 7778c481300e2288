package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/andrewpaige1/quizwhiz-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (db *DBHandler) GetFlashcardByID(w http.ResponseWriter, r *http.Request) {
	flashcard, err := db.findFlashcard(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if !flashcard.VisibleTo(utils.CurrentUser(r)) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcard)
}

type flashcardRequest struct {
	FrontText *string `json:"front_text" validate:"required"`
	BackText  *string `json:"back_text" validate:"required"`
	LessonID  *uint   `json:"lesson" validate:"required"`
	// Optional; defaults to the caller. Only staff may name another user.
	CreatedByID *uint `json:"created_by"`
}

// CreateFlashcard adds a card to a lesson owned by the caller. Staff may add
// cards to any lesson.
func (db *DBHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)

	var req flashcardRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	front, back, err := cardText(req.FrontText, req.BackText)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	lesson, err := db.targetLesson(r, *req.LessonID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	authorID, err := db.cardAuthor(r, caller, req.CreatedByID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	flashcard := models.Flashcard{
		FrontText:   *front,
		BackText:    *back,
		LessonID:    lesson.ID,
		CreatedByID: authorID,
	}
	if err := db.WithContext(r.Context()).Omit(clause.Associations).Create(&flashcard).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("CreateFlashcard: user %d added flashcard %d to lesson %d as user %d", caller.ID, flashcard.ID, lesson.ID, authorID)
	utils.WriteJSON(w, http.StatusCreated, flashcard)
}

type flashcardPatch struct {
	FrontText *string `json:"front_text"`
	BackText  *string `json:"back_text"`
	LessonID  *uint   `json:"lesson"`
}

// UpdateFlashcardByID applies the provided fields. Moving a card requires the
// caller to manage the destination lesson too.
func (db *DBHandler) UpdateFlashcardByID(w http.ResponseWriter, r *http.Request) {
	flashcard, err := db.findFlashcard(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if !flashcard.ManageableBy(utils.CurrentUser(r)) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}

	var patch flashcardPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	front, back, err := cardText(patch.FrontText, patch.BackText)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if front != nil {
		flashcard.FrontText = *front
	}
	if back != nil {
		flashcard.BackText = *back
	}
	if patch.LessonID != nil && *patch.LessonID != flashcard.LessonID {
		lesson, err := db.targetLesson(r, *patch.LessonID)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}
		flashcard.LessonID = lesson.ID
		flashcard.Lesson = *lesson
	}

	if err := db.WithContext(r.Context()).Omit(clause.Associations).Save(flashcard).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcard)
}

func (db *DBHandler) DeleteFlashcardByID(w http.ResponseWriter, r *http.Request) {
	flashcard, err := db.findFlashcard(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if !flashcard.ManageableBy(utils.CurrentUser(r)) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}

	if err := db.WithContext(r.Context()).Delete(&models.Flashcard{}, flashcard.ID).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPublicFlashcards returns the cards of every public lesson.
func (db *DBHandler) ListPublicFlashcards(w http.ResponseWriter, r *http.Request) {
	publicLessons := db.WithContext(r.Context()).Model(&models.Lesson{}).Select("id").Scopes(models.PublicLessons)

	flashcards := []models.Flashcard{}
	err := db.WithContext(r.Context()).
		Where("lesson_id IN (?)", publicLessons).
		Order("id").
		Find(&flashcards).Error
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcards)
}

// ListFlashcardsByLesson returns the cards of one lesson, subject to the
// lesson's visibility.
func (db *DBHandler) ListFlashcardsByLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := utils.PathID(r, "id")
	if !ok {
		utils.RespondWithError(w, utils.ErrNotFound)
		return
	}

	var lesson models.Lesson
	if err := db.WithContext(r.Context()).First(&lesson, lessonID).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if !lesson.VisibleTo(utils.CurrentUser(r)) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}

	flashcards := []models.Flashcard{}
	if err := db.WithContext(r.Context()).Where("lesson_id = ?", lesson.ID).Order("id").Find(&flashcards).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, flashcards)
}

// findFlashcard loads the card named in the path along with its lesson.
func (db *DBHandler) findFlashcard(r *http.Request) (*models.Flashcard, error) {
	flashcardID, ok := utils.PathID(r, "id")
	if !ok {
		return nil, utils.ErrNotFound
	}
	var flashcard models.Flashcard
	if err := db.WithContext(r.Context()).Preload("Lesson").First(&flashcard, flashcardID).Error; err != nil {
		return nil, err
	}
	return &flashcard, nil
}

// targetLesson loads the lesson a card is being attached to. A missing lesson
// is a validation error, not a 404.
func (db *DBHandler) targetLesson(r *http.Request, lessonID uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := db.WithContext(r.Context()).First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(http.StatusBadRequest,
				fmt.Sprintf("lesson: Invalid pk \"%d\" - object does not exist.", lessonID))
		}
		return nil, err
	}
	if !utils.CurrentUser(r).CanManage(lesson.CreatedByID) {
		return nil, utils.ErrForbidden
	}
	return &lesson, nil
}

// cardText trims the provided sides and rejects blank ones. Nil stays nil.
func cardText(front, back *string) (*string, *string, error) {
	trim := func(field string, s *string) (*string, error) {
		if s == nil {
			return nil, nil
		}
		trimmed := strings.TrimSpace(*s)
		if trimmed == "" {
			return nil, utils.NewError(http.StatusBadRequest, field+": This field may not be blank.")
		}
		return &trimmed, nil
	}
	f, err := trim("front_text", front)
	if err != nil {
		return nil, nil, err
	}
	b, err := trim("back_text", back)
	if err != nil {
		return nil, nil, err
	}
	return f, b, nil
}

// cardAuthor resolves the created_by field of a new card. It must be the
// caller unless the caller is staff, in which case it must name a real user.
func (db *DBHandler) cardAuthor(r *http.Request, caller *models.User, requested *uint) (uint, error) {
	if requested == nil || *requested == caller.ID {
		return caller.ID, nil
	}
	if !caller.IsStaff {
		return 0, utils.ErrForbidden
	}
	var author models.User
	if err := db.WithContext(r.Context()).Select("id").First(&author, *requested).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.NewError(http.StatusBadRequest,
				fmt.Sprintf("created_by: Invalid pk \"%d\" - object does not exist.", *requested))
		}
		return 0, err
	}
	return author.ID, nil
}
