package models

import (
	"time"

	"gorm.io/gorm"
)

// Lesson groups flashcards under a title and category
type Lesson struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"not null;size:255" json:"title"`
	Description *string `gorm:"type:text" json:"description"`
	Category    string  `gorm:"not null;size:64;index" json:"category"`

	CreatedByID uint `gorm:"not null;index" json:"created_by"`
	CreatedBy   User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	IsPublic  bool      `gorm:"not null;default:false" json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryCount is one row of the top categories aggregate
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// PublicLessons restricts a lesson query to public lessons.
func PublicLessons(db *gorm.DB) *gorm.DB {
	return db.Where("is_public = ?", true)
}

// LessonsVisibleTo restricts a lesson query to what user may read: staff see
// everything, owners see their own lessons, everyone else sees public ones.
// A nil user is anonymous.
func LessonsVisibleTo(user *User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case user == nil:
			return PublicLessons(db)
		case user.IsStaff:
			return db
		default:
			return db.Where("(is_public = ? OR created_by_id = ?)", true, user.ID)
		}
	}
}

// VisibleTo reports whether user may read the lesson.
func (l *Lesson) VisibleTo(user *User) bool {
	return l.IsPublic || user.CanManage(l.CreatedByID)
}
