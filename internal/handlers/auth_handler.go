package handlers

import (
	"log"
	"net/http"

	"fittrack/internal/security"
	"fittrack/internal/service"
)

// AuthHandler handles authentication and password reset HTTP requests
type AuthHandler struct {
	authService  *service.AuthService
	emailService *service.EmailService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register handles new account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "username, email, and password are required", "", nil)
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	// Best-effort; a mail failure must not fail the registration
	if err := h.emailService.SendWelcomeEmail(r.Context(), user.Email, user.FirstName); err != nil {
		log.Printf("Failed to send welcome email to %s: %v", user.Email, err)
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"user_id": user.ID,
	})
}

// Login authenticates a user, sets the session cookie, and returns an API
// token for non-browser clients
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", err)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		respondWithError(w, http.StatusBadRequest, "username and password are required", "", nil)
		return
	}

	session, apiToken, user, err := h.authService.Login(username, password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))

	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"user_id": user.ID,
		"token":   apiToken,
	})
}

// Logout invalidates the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = h.authService.Logout(cookie.Value)
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the password reset flow. The response is identical
// whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required", "", nil)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, req.Email); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to process request", "Password reset failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ValidateResetToken checks a reset token before the client shows the
// new-password form, reporting why a token is unusable
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required", "", nil)
		return
	}

	if err := h.authService.ValidatePasswordResetToken(token); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword redeems a reset token and sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		respondWithError(w, http.StatusBadRequest, "token and new_password are required", "", nil)
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
