package handlers

import (
	"github.com/andrewpaige1/quizwhiz-api/auth"
	"gorm.io/gorm"
)

// Policy holds the switches that tighten access rules beyond the defaults.
type Policy struct {
	// Restricts GET /users/list to staff.
	StaffOnlyUserList bool
	// Applies the staff/owner/public rule to lesson lookup by id, keyword
	// search and the top categories aggregate.
	EnforceLessonVisibility bool
}

type DBHandler struct {
	*gorm.DB
	Tokens    *auth.Manager
	Blacklist auth.Blacklist
	Policy    Policy
}
