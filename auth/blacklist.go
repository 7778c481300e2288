package auth

import (
	"context"
	"time"

	"github.com/andrewpaige1/quizwhiz-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blacklist stores revoked refresh token IDs.
type Blacklist interface {
	// Add revokes jti until expiresAt. Adding an already revoked ID is not an error.
	Add(ctx context.Context, jti string, userID uint, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
	// Flush drops entries that expired before now and returns how many were removed.
	Flush(ctx context.Context, now time.Time) (int64, error)
}

// GormBlacklist keeps revoked tokens in the blacklisted_tokens table.
type GormBlacklist struct {
	db *gorm.DB
}

func NewGormBlacklist(db *gorm.DB) *GormBlacklist {
	return &GormBlacklist{db: db}
}

func (b *GormBlacklist) Add(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	entry := models.BlacklistedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&entry).Error
}

func (b *GormBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).
		Model(&models.BlacklistedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	return count > 0, err
}

func (b *GormBlacklist) Flush(ctx context.Context, now time.Time) (int64, error) {
	result := b.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.BlacklistedToken{})
	return result.RowsAffected, result.Error
}
