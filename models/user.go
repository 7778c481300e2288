package models

import "time"

// User represents an account in the system
type User struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Username       string  `gorm:"uniqueIndex;not null;size:150" json:"username"`
	Password       string  `gorm:"not null;size:128" json:"-"`
	Email          string  `gorm:"size:254" json:"email"`
	Bio            *string `gorm:"size:500" json:"bio"`
	GoogleID       *string `gorm:"size:255" json:"google_id"`
	IsStaff        bool    `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser    bool    `gorm:"not null;default:false" json:"is_superuser"`
	ProfilePicture *string `gorm:"size:500" json:"profile_picture"`

	// Bumped whenever the password changes; tokens carrying an older
	// version are rejected.
	TokenVersion uint `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"date_joined"`
	UpdatedAt time.Time `json:"-"`
}

// CanManage reports whether u may modify a resource owned by ownerID.
func (u *User) CanManage(ownerID uint) bool {
	return u != nil && (u.IsStaff || u.ID == ownerID)
}
