package models

import (
	"time"
)

// Flashcard represents an individual flashcard
type Flashcard struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FrontText string `gorm:"type:text;not null" json:"front_text"`
	BackText  string `gorm:"type:text;not null" json:"back_text"`

	LessonID uint   `gorm:"not null;index" json:"lesson"`
	Lesson   Lesson `gorm:"foreignKey:LessonID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	CreatedByID uint `gorm:"not null;index" json:"created_by"`
	CreatedBy   User `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VisibleTo reports whether user may read the card. The Lesson association
// must be loaded.
func (f *Flashcard) VisibleTo(user *User) bool {
	return f.Lesson.IsPublic || f.ManageableBy(user)
}

// ManageableBy reports whether user may edit or delete the card: staff, the
// card's author, or the owner of its lesson. The Lesson association must be
// loaded.
func (f *Flashcard) ManageableBy(user *User) bool {
	return user.CanManage(f.CreatedByID) || user.CanManage(f.Lesson.CreatedByID)
}
