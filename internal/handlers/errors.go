package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fittrack/internal/service"
)

// respondWithJSON writes a JSON response with the given status code
func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondWithError writes a JSON error response. logMsg and err are logged
// server-side; the client only sees userMsg.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, map[string]string{
		"status": "error",
		"error":  userMsg,
	})
}

// statusFromError maps service errors onto HTTP status codes. Unrecognized
// errors are treated as internal failures.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrNotFriends):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, service.ErrSelfRequest),
		errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenUsed),
		errors.Is(err, service.ErrTokenExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError renders a service error with its mapped status.
// Internal failures get a generic message; everything else surfaces the
// sentinel's text.
func respondWithServiceError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, "Internal server error", "", err)
		return
	}
	respondWithError(w, status, err.Error(), "", nil)
}

// decodeJSON decodes a request body into dst, rejecting unknown fields so
// misspelled keys fail instead of silently defaulting
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
