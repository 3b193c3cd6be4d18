package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/internal/models"
	"fittrack/internal/repository"
	"fittrack/internal/security"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenUsed          = errors.New("token already used")
	ErrTokenExpired       = errors.New("token expired")
)

// resetTokenBytes gives 256 bits of entropy per reset token
const resetTokenBytes = 32

// AuthService handles registration, login, sessions, and the password
// reset flow
type AuthService struct {
	userRepo        *repository.UserRepository
	resetRepo       *repository.ResetTokenRepository
	sessionDuration time.Duration
	resetTokenTTL   time.Duration
	apiTokenTTL     time.Duration
	jwtSecret       []byte
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, resetRepo *repository.ResetTokenRepository,
	sessionDuration, resetTokenTTL, apiTokenTTL time.Duration, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		resetRepo:       resetRepo,
		sessionDuration: sessionDuration,
		resetTokenTTL:   resetTokenTTL,
		apiTokenTTL:     apiTokenTTL,
		jwtSecret:       []byte(jwtSecret),
	}
}

// Register creates a new user account
func (s *AuthService) Register(username, email, password, firstName, lastName string) (*models.User, error) {
	existing, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	existing, err = s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(username, email, passwordHash, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user, creates a session, and mints an API token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(username, password string) (*models.Session, string, *models.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, "", nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, "", nil, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	apiToken, err := security.SignAPIToken(s.jwtSecret, user.ID, s.apiTokenTTL)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to sign api token: %w", err)
	}

	return session, apiToken, user, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		// Clean up the expired session on the way out
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// ValidateAPIToken checks a signed bearer token and returns the associated user
func (s *AuthService) ValidateAPIToken(token string) (*models.User, error) {
	claims, err := security.ParseAPIToken(s.jwtSecret, token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	user, err := s.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.userRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

// RequestPasswordReset creates a password reset token and sends the reset
// email. An unknown email returns nil so the HTTP boundary reports success
// either way and registered addresses cannot be enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, email string) error {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}

	token, err := security.GenerateResetToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	// Invalidate any earlier tokens so only the latest one is redeemable
	_ = s.resetRepo.DeleteUserTokens(user.ID)

	expiresAt := time.Now().Add(s.resetTokenTTL)
	if _, err := s.resetRepo.CreateToken(user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if emailService != nil && emailService.IsEnabled() {
		if err := emailService.SendPasswordResetEmail(ctx, user.Email, user.FirstName, token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}

	return nil
}

// ValidatePasswordResetToken checks a reset token without mutating it,
// distinguishing missing, used, and expired tokens for diagnostics
func (s *AuthService) ValidatePasswordResetToken(token string) error {
	resetToken, err := s.resetRepo.GetToken(token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}

	if resetToken == nil {
		return ErrTokenInvalid
	}
	if resetToken.Used {
		return ErrTokenUsed
	}
	if resetToken.IsExpired() {
		return ErrTokenExpired
	}

	return nil
}

// ResetPassword redeems a reset token and replaces the user's password.
// The used/expired checks are re-applied inside the redemption transaction,
// so a validate call cannot be replayed and each token redeems at most once.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	// Look up first so callers get a precise reason; redemption re-checks
	if err := s.ValidatePasswordResetToken(token); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	redeemed, err := s.resetRepo.Redeem(token, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}
	if !redeemed {
		return ErrTokenUsed
	}

	return nil
}

// PurgeResetTokens removes used or expired reset tokens
func (s *AuthService) PurgeResetTokens() error {
	if err := s.resetRepo.PurgeExpiredOrUsed(); err != nil {
		return fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return nil
}
