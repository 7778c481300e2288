package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/andrewpaige1/quizwhiz-api/utils"
	"github.com/op/go-logging"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormLogLevel logs every statement at DEBUG, slow queries and errors in
// development, and nothing in production.
func gormLogLevel(cfg *Config) gormlogger.LogLevel {
	switch {
	case cfg.LogLevel == logging.DEBUG:
		return gormlogger.Info
	case cfg.IsDevelopment:
		return gormlogger.Warn
	default:
		return gormlogger.Silent
	}
}

// Connect opens the database named by cfg and migrates the schema.
func Connect(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DBURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBURL)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// Every connection to :memory: is a separate database.
		if strings.Contains(cfg.DBURL, ":memory:") {
			sqlDB.SetMaxOpenConns(1)
		}
		if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return nil, err
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to auto migrate database: %w", err)
	}
	return db, nil
}

// ConnectRedis returns a client for cfg.RedisAddr after checking it answers.
func ConnectRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// EnsureAdmin creates the configured superuser if it does not exist yet.
// Nothing happens when ADMIN_USERNAME or ADMIN_PASSWORD is unset.
func EnsureAdmin(db *gorm.DB, cfg *Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	var existing models.User
	err := db.Where("username = ?", cfg.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	email := utils.NormalizeEmail(cfg.AdminEmail)
	if email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return fmt.Errorf("ADMIN_EMAIL: %w", err)
		}
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:    cfg.AdminUsername,
		Password:    hash,
		Email:       email,
		IsStaff:     true,
		IsSuperuser: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infof("Created superuser %s", admin.Username)
	return nil
}
