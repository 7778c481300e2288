package middleware

import (
	"errors"
	"net/http"

	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/models"
	"github.com/andrewpaige1/quizwhiz-api/utils"
	"gorm.io/gorm"
)

// Users loads the account behind a validated access token into the request
// context.
type Users struct {
	DB *gorm.DB
}

// Require rejects the request with 401 unless it carries a valid access token
// for an existing user whose token version still matches.
func (u *Users) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := u.load(r)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}
		if user == nil {
			utils.RespondWithError(w, utils.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(utils.WithUser(r.Context(), user)))
	}
}

// Optional lets anonymous requests through with no user in the context. A
// token that names a missing user or a stale version is still rejected.
func (u *Users) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := u.load(r)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}
		if user != nil {
			r = r.WithContext(utils.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	}
}

var errStaleToken = utils.NewError(http.StatusUnauthorized, "Given token not valid for any token type")

// load returns nil, nil when the request has no token.
func (u *Users) load(r *http.Request) (*models.User, error) {
	userID, ok := utils.GetUserID(r)
	if !ok {
		return nil, nil
	}
	claims, ok := utils.GetAccessClaims(r)
	if !ok {
		return nil, errStaleToken
	}

	var user models.User
	if err := u.DB.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debugf("Users: token subject %d no longer exists", userID)
			return nil, utils.NewError(http.StatusUnauthorized, "User not found")
		}
		return nil, err
	}
	if claims.Version != user.TokenVersion {
		logger.Debugf("Users: stale token version for user %d", userID)
		return nil, errStaleToken
	}
	return &user, nil
}
