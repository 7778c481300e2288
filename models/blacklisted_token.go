package models

import "time"

// BlacklistedToken records a revoked refresh token until it would have
// expired anyway.
type BlacklistedToken struct {
	ID            uint      `gorm:"primaryKey"`
	JTI           string    `gorm:"uniqueIndex;not null;size:64"`
	UserID        uint      `gorm:"index"`
	ExpiresAt     time.Time `gorm:"not null;index"`
	BlacklistedAt time.Time `gorm:"autoCreateTime"`
}

// All returns every model that must be migrated, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Lesson{},
		&Flashcard{},
		&BlacklistedToken{},
	}
}
