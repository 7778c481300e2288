package handlers

import (
	"net/http"
	"strings"

	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/andrewpaige1/quizwhiz-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const topCategoriesLimit = 4

var (
	errLessonIDMissing   = utils.NewError(http.StatusUnauthorized, "Please provide lesson_id")
	errLessonFields      = utils.NewError(http.StatusUnauthorized, "Please provide title, description and category")
	errLessonUnavailable = utils.NewError(http.StatusUnauthorized, "Unauthorized")
	errUserNotFound      = utils.NewError(http.StatusUnauthorized, "User not found")
)

// ListLessons returns every lesson. Staff only.
func (db *DBHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	if !utils.CurrentUser(r).IsStaff {
		utils.RespondWithError(w, errLessonUnavailable)
		return
	}
	db.writeLessons(w, r, db.WithContext(r.Context()))
}

func (db *DBHandler) ListPublicLessons(w http.ResponseWriter, r *http.Request) {
	db.writeLessons(w, r, db.WithContext(r.Context()).Scopes(models.PublicLessons))
}

// ListLessonsByUser returns the lessons of one user: all of them for staff
// and the user themselves, public ones for everybody else.
func (db *DBHandler) ListLessonsByUser(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)
	userID, ok := utils.PathID(r, "user_id")
	if !ok {
		utils.RespondWithError(w, errUserNotFound)
		return
	}

	var count int64
	if err := db.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if count == 0 {
		utils.RespondWithError(w, errUserNotFound)
		return
	}

	query := db.WithContext(r.Context()).Where("created_by_id = ?", userID)
	if !caller.CanManage(userID) {
		query = query.Scopes(models.PublicLessons)
	}
	db.writeLessons(w, r, query)
}

// ListLessonsByCategory matches the category case-insensitively. Only staff
// see private lessons here.
func (db *DBHandler) ListLessonsByCategory(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)
	category := utils.TitleCase(strings.TrimSpace(r.PathValue("category")))

	// SQLite's LOWER folds ASCII only, so also match the title-cased form.
	query := db.WithContext(r.Context()).Where("(category = ? OR LOWER(category) = LOWER(?))", category, category)
	if caller == nil || !caller.IsStaff {
		query = query.Scopes(models.PublicLessons)
	}
	db.writeLessons(w, r, query)
}

// ListLessonsByKeywords returns lessons whose title contains any of the
// whitespace separated keywords.
func (db *DBHandler) ListLessonsByKeywords(w http.ResponseWriter, r *http.Request) {
	keywords := strings.Fields(r.PathValue("keywords"))
	if len(keywords) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Please provide keywords")
		return
	}

	conditions := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords))
	for _, keyword := range keywords {
		conditions = append(conditions, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(keyword))+"%")
	}

	query := db.WithContext(r.Context()).Where("("+strings.Join(conditions, " OR ")+")", args...)
	if db.Policy.EnforceLessonVisibility {
		query = query.Scopes(models.LessonsVisibleTo(utils.CurrentUser(r)))
	}
	db.writeLessons(w, r, query)
}

func (db *DBHandler) GetLessonByID(w http.ResponseWriter, r *http.Request) {
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
	if db.Policy.EnforceLessonVisibility && !lesson.VisibleTo(utils.CurrentUser(r)) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lesson)
}

type createLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	IsPublic    *bool   `json:"is_public"`
}

func (db *DBHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)

	var req createLessonRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.Title == nil || req.Description == nil || req.Category == nil {
		utils.RespondWithError(w, errLessonFields)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	lesson := models.Lesson{
		Title:       *req.Title,
		Description: req.Description,
		Category:    *req.Category,
		CreatedByID: caller.ID,
		IsPublic:    req.IsPublic != nil && *req.IsPublic,
	}
	if err := db.WithContext(r.Context()).Omit(clause.Associations).Create(&lesson).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("CreateLesson: user %d created lesson %d", caller.ID, lesson.ID)
	utils.WriteJSON(w, http.StatusOK, lesson)
}

type lessonPatch struct {
	LessonID    *uint   `json:"lesson_id"`
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	IsPublic    *bool   `json:"is_public"`
}

// UpdateLesson merges the provided fields into the lesson. is_public is always
// written and falls back to false when omitted.
func (db *DBHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	var patch lessonPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if patch.LessonID == nil {
		utils.RespondWithError(w, errLessonIDMissing)
		return
	}
	if err := utils.ValidateStruct(patch); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	lesson, err := db.manageableLesson(r, *patch.LessonID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	if patch.Title != nil {
		lesson.Title = *patch.Title
	}
	if patch.Description != nil {
		lesson.Description = patch.Description
	}
	if patch.Category != nil {
		lesson.Category = *patch.Category
	}
	lesson.IsPublic = patch.IsPublic != nil && *patch.IsPublic

	if err := db.WithContext(r.Context()).Omit(clause.Associations).Save(lesson).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lesson)
}

type deleteLessonRequest struct {
	LessonID *uint `json:"lesson_id"`
}

// DeleteLesson removes the lesson and its flashcards.
func (db *DBHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	var req deleteLessonRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.LessonID == nil {
		utils.RespondWithError(w, errLessonIDMissing)
		return
	}

	lesson, err := db.manageableLesson(r, *req.LessonID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		return tx.Delete(lesson).Error
	})
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("DeleteLesson: lesson %d deleted", lesson.ID)
	utils.WriteMessage(w, http.StatusOK, "Lesson deleted successfully")
}

// GetTopCategories returns the most used categories with their lesson counts.
func (db *DBHandler) GetTopCategories(w http.ResponseWriter, r *http.Request) {
	query := db.WithContext(r.Context()).Model(&models.Lesson{})
	if db.Policy.EnforceLessonVisibility {
		query = query.Scopes(models.LessonsVisibleTo(utils.CurrentUser(r)))
	}

	categories := []models.CategoryCount{}
	err := query.
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC, category ASC").
		Limit(topCategoriesLimit).
		Scan(&categories).Error
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, categories)
}

// manageableLesson loads a lesson the caller may modify.
func (db *DBHandler) manageableLesson(r *http.Request, lessonID uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := db.WithContext(r.Context()).First(&lesson, lessonID).Error; err != nil {
		return nil, err
	}
	if !utils.CurrentUser(r).CanManage(lesson.CreatedByID) {
		return nil, utils.ErrForbidden
	}
	return &lesson, nil
}

func (db *DBHandler) writeLessons(w http.ResponseWriter, r *http.Request, query *gorm.DB) {
	lessons := []models.Lesson{}
	if err := query.Order("id").Find(&lessons).Error; err != nil {
		logger.Warningf("writeLessons: %s: %v", r.URL.Path, err)
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, lessons)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
