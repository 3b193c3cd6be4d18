package repository

import (
	"database/sql"
	"fmt"
	"time"

	"fittrack/internal/database"
	"fittrack/internal/models"
)

// ResetTokenRepository handles database operations for password reset tokens
type ResetTokenRepository struct {
	db *database.DB
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// CreateToken persists a new unused reset token for a user
func (r *ResetTokenRepository) CreateToken(userID int64, token string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, userID, token, expiresAt, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}

	return &models.PasswordResetToken{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		Used:      false,
		CreatedAt: time.Now(),
	}, nil
}

// GetToken retrieves a reset token by its value
func (r *ResetTokenRepository) GetToken(token string) (*models.PasswordResetToken, error) {
	return getToken(r.db, token)
}

// getToken looks up a reset token against the pool or a transaction
func getToken(q database.DBTX, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token = ?
	`
	prt := &models.PasswordResetToken{}
	err := q.QueryRow(query, token).Scan(
		&prt.ID,
		&prt.UserID,
		&prt.Token,
		&prt.ExpiresAt,
		&prt.Used,
		&prt.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return prt, nil
}

// DeleteUserTokens removes all reset tokens belonging to a user.
// Called when a new token is issued so only the latest one is redeemable.
func (r *ResetTokenRepository) DeleteUserTokens(userID int64) error {
	if _, err := r.db.Exec("DELETE FROM password_reset_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete user reset tokens: %w", err)
	}
	return nil
}

// Redeem marks the token used and updates the owning user's password hash
// in a single transaction. The unused/unexpired checks run inside the
// transaction, so a token can be redeemed at most once even under
// concurrent redemption attempts. Returns false when the token is missing,
// already used, or expired at redemption time.
func (r *ResetTokenRepository) Redeem(token, newPasswordHash string) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prt, err := getToken(tx, token)
	if err != nil {
		return false, err
	}
	if prt == nil {
		return false, nil
	}

	result, err := tx.Exec(`
		UPDATE password_reset_tokens
		SET used = ?
		WHERE token = ? AND used = ? AND expires_at > ?
	`, true, token, false, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark reset token used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read redemption result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		UPDATE users
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, newPasswordHash, prt.UserID); err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return true, nil
}

// PurgeExpiredOrUsed deletes tokens that are used or past their expiry.
// Safe to run at any time; it only touches terminal-state rows.
func (r *ResetTokenRepository) PurgeExpiredOrUsed() error {
	if _, err := r.db.Exec(`
		DELETE FROM password_reset_tokens
		WHERE used = ? OR expires_at <= ?
	`, true, time.Now()); err != nil {
		return fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return nil
}
