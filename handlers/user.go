package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/andrewpaige1/quizwhiz-api/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errTokenNotValid    = utils.NewError(http.StatusUnauthorized, "Token is invalid or expired")
	errTokenBlacklisted = utils.NewError(http.StatusUnauthorized, "Token is blacklisted")
)

func (db *DBHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.CurrentUser(r))
}

func (db *DBHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if db.Policy.StaffOnlyUserList && !utils.CurrentUser(r).IsStaff {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}

	var users []models.User
	if err := db.WithContext(r.Context()).Order("id").Find(&users).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

func (db *DBHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)
	userID, ok := utils.PathID(r, "id")
	if !ok {
		utils.RespondWithError(w, utils.ErrNotFound)
		return
	}
	if !caller.CanManage(userID) {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to view this user")
		return
	}

	var user models.User
	if err := db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type loginResponse struct {
	Refresh string       `json:"refresh"`
	Access  string       `json:"access"`
	User    *models.User `json:"user"`
}

func (db *DBHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.Username == nil || req.Password == nil {
		utils.WriteError(w, http.StatusUnauthorized, utils.ErrMissingFields.Message)
		return
	}

	var user models.User
	err := db.WithContext(r.Context()).Where("username = ?", *req.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(w, err)
		return
	}
	if err != nil || !auth.CheckPassword(user.Password, *req.Password) {
		logger.Debugf("Login: failed attempt for %q", *req.Username)
		utils.RespondWithError(w, utils.ErrInvalidCredentials)
		return
	}

	pair, err := db.Tokens.IssuePair(user.ID, user.TokenVersion)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, loginResponse{
		Refresh: pair.Refresh,
		Access:  pair.Access,
		User:    &user,
	})
}

type refreshRequest struct {
	Refresh *string `json:"refresh"`
}

// Logout blacklists the refresh token so it can no longer mint access tokens.
func (db *DBHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)

	var req refreshRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.Refresh == nil || *req.Refresh == "" {
		utils.WriteError(w, http.StatusBadRequest, "refresh: This field is required.")
		return
	}

	claims, err := db.Tokens.ParseRefresh(*req.Refresh)
	if err != nil {
		logger.Debugf("Logout: %v", err)
		utils.RespondWithError(w, utils.ErrMalformedToken)
		return
	}
	ownerID, err := claims.UserID()
	if err != nil {
		utils.RespondWithError(w, utils.ErrMalformedToken)
		return
	}
	if !caller.CanManage(ownerID) {
		utils.RespondWithError(w, utils.ErrForbidden)
		return
	}

	blacklisted, err := db.Blacklist.Contains(r.Context(), claims.ID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if blacklisted {
		utils.WriteError(w, http.StatusBadRequest, errTokenBlacklisted.Message)
		return
	}
	if err := db.Blacklist.Add(r.Context(), claims.ID, ownerID, claims.ExpiresAt.Time); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("Logout: user %d revoked a refresh token", ownerID)
	utils.WriteJSON(w, http.StatusOK, map[string]string{"detail": "Logout successful"})
}

// RefreshToken exchanges a refresh token for a new access token.
func (db *DBHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.Refresh == nil || *req.Refresh == "" {
		utils.WriteError(w, http.StatusBadRequest, "refresh: This field is required.")
		return
	}

	claims, err := db.Tokens.ParseRefresh(*req.Refresh)
	if err != nil {
		utils.RespondWithError(w, errTokenNotValid)
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		utils.RespondWithError(w, errTokenNotValid)
		return
	}

	blacklisted, err := db.Blacklist.Contains(r.Context(), claims.ID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if blacklisted {
		utils.RespondWithError(w, errTokenBlacklisted)
		return
	}

	var user models.User
	if err := db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(w, errTokenNotValid)
			return
		}
		utils.RespondWithError(w, err)
		return
	}
	if user.TokenVersion != claims.Version {
		utils.RespondWithError(w, errTokenNotValid)
		return
	}

	access, err := db.Tokens.IssueAccess(user.ID, user.TokenVersion)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}

type signupRequest struct {
	Username *string `json:"username" validate:"omitempty,max=150"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	GoogleID *string `json:"google_id" validate:"omitempty,max=255"`
}

func (db *DBHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if req.Username == nil || req.Password == nil || *req.Username == "" || *req.Password == "" {
		utils.RespondWithError(w, utils.ErrMissingFields)
		return
	}

	var taken int64
	if err := db.WithContext(r.Context()).Model(&models.User{}).Where("username = ?", *req.Username).Count(&taken).Error; err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if taken > 0 {
		utils.RespondWithError(w, utils.ErrDuplicateUsername)
		return
	}

	if req.Email == nil {
		utils.RespondWithError(w, utils.ErrInvalidEmail)
		return
	}
	email := utils.NormalizeEmail(*req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	hash, err := hashPassword(*req.Password)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	user := models.User{
		Username: *req.Username,
		Password: hash,
		Email:    email,
		Bio:      req.Bio,
		GoogleID: req.GoogleID,
	}
	if err := db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondWithError(w, utils.ErrDuplicateUsername)
			return
		}
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("Signup: created user %s", user.Username)
	utils.WriteMessage(w, http.StatusCreated, "User created successfully")
}

type userPatch struct {
	UserID         *uint   `json:"user_id"`
	Username       *string `json:"username" validate:"omitempty,max=150"`
	Password       *string `json:"password"`
	Email          *string `json:"email"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	GoogleID       *string `json:"google_id" validate:"omitempty,max=255"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,max=500"`
}

func (p *userPatch) empty() bool {
	return p.UserID == nil && p.Username == nil && p.Password == nil && p.Email == nil &&
		p.Bio == nil && p.GoogleID == nil && p.ProfilePicture == nil
}

// UpdateUser patches the caller, or the user named by user_id when the caller
// is staff. Changing the password revokes every token issued to that user.
func (db *DBHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)

	var patch userPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	if patch.empty() {
		utils.WriteError(w, http.StatusBadRequest, "Please provide details to update")
		return
	}

	targetID := caller.ID
	if patch.UserID != nil {
		targetID = *patch.UserID
	}
	if !caller.CanManage(targetID) {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to update this user")
		return
	}

	if err := utils.ValidateStruct(patch); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	updates := map[string]interface{}{}
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			utils.WriteError(w, http.StatusBadRequest, "username: This field may not be blank.")
			return
		}
		updates["username"] = username
	}
	if patch.Email != nil {
		email := utils.NormalizeEmail(*patch.Email)
		if err := utils.ValidateEmail(email); err != nil {
			utils.RespondWithError(w, err)
			return
		}
		updates["email"] = email
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if patch.GoogleID != nil {
		updates["google_id"] = *patch.GoogleID
	}
	if patch.ProfilePicture != nil {
		updates["profile_picture"] = *patch.ProfilePicture
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			utils.WriteError(w, http.StatusBadRequest, "password: This field may not be blank.")
			return
		}
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}
		updates["password"] = hash
		updates["token_version"] = gorm.Expr("token_version + 1")
	}

	var user models.User
	err := db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, targetID).Error; err != nil {
			return err
		}
		if username, ok := updates["username"]; ok && username != user.Username {
			var taken int64
			if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", username, user.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return utils.ErrDuplicateUsername
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = utils.ErrDuplicateUsername
		}
		utils.RespondWithError(w, err)
		return
	}

	if patch.Password != nil {
		logger.Infof("UpdateUser: password changed for user %d, outstanding tokens revoked", user.ID)
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

type deleteUserRequest struct {
	UserID *uint `json:"user_id"`
}

// DeleteUser removes the caller, or the user named by user_id when the caller
// is staff, together with their lessons and flashcards.
func (db *DBHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := utils.CurrentUser(r)

	var req deleteUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	targetID := caller.ID
	if req.UserID != nil {
		targetID = *req.UserID
	}
	if !caller.CanManage(targetID) {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to delete this user")
		return
	}

	err := db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			return err
		}
		ownedLessons := tx.Model(&models.Lesson{}).Select("id").Where("created_by_id = ?", user.ID)
		if err := tx.Where("created_by_id = ? OR lesson_id IN (?)", user.ID, ownedLessons).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		if err := tx.Where("created_by_id = ?", user.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.Infof("DeleteUser: user %d deleted by %d", targetID, caller.ID)
	utils.WriteMessage(w, http.StatusOK, "User deleted successfully")
}

// hashPassword reports bcrypt's input limit as a validation error.
func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", utils.NewError(http.StatusBadRequest, "password: Ensure this field has no more than 72 bytes.")
	}
	return hash, err
}
