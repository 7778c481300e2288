package utils

import (
	"errors"
	"io"
	"net/http"

	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Error is a client-facing failure with the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error with a custom message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

var (
	ErrMissingFields      = NewError(http.StatusBadRequest, "Please provide both username and password")
	ErrInvalidEmail       = NewError(http.StatusBadRequest, "Invalid email")
	ErrDuplicateUsername  = NewError(http.StatusBadRequest, "Username already exists")
	ErrInvalidCredentials = NewError(http.StatusUnauthorized, "Invalid credentials")
	ErrUnauthenticated    = NewError(http.StatusUnauthorized, "Authentication credentials were not provided.")
	ErrForbidden          = NewError(http.StatusForbidden, "You do not have permission to perform this action.")
	ErrNotFound           = NewError(http.StatusNotFound, "Not found.")
	ErrMalformedToken     = NewError(http.StatusBadRequest, "Token is invalid or expired")
)

// StatusFor maps err to an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError writes err as {"error": message}. Internal errors are
// logged and replaced by a generic message.
func RespondWithError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		WriteError(w, status, apiErr.Message)
	case status == http.StatusNotFound:
		WriteError(w, status, ErrNotFound.Message)
	default:
		logger.Errorf("unhandled error: %v", err)
		WriteError(w, status, "Internal server error")
	}
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteMessage writes {"message": message}.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("failed to encode response: %v", err)
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields. An
// empty body decodes as an empty object.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return NewError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if decoder.More() {
		return NewError(http.StatusBadRequest, "Invalid request body: unexpected data after JSON object")
	}
	return nil
}
