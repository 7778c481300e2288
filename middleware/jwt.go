package middleware

import (
	"errors"
	"net/http"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/utils"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
)

// EnsureValidToken validates the bearer access token when one is sent and
// stores its claims in the request context. Requests without a token pass
// through; handlers that need a caller wrap themselves in Users.Require.
func EnsureValidToken(tokens *auth.Manager) (func(next http.Handler) http.Handler, error) {
	jwtValidator, err := tokens.NewValidator()
	if err != nil {
		return nil, err
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Debugf("EnsureValidToken: rejected token: %v", err)
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			utils.RespondWithError(w, utils.ErrUnauthenticated)
			return
		}
		utils.WriteError(w, http.StatusUnauthorized, "Given token not valid for any token type")
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(next http.Handler) http.Handler {
		return middleware.CheckJWT(next)
	}, nil
}
