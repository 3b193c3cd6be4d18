package service

import (
	"path/filepath"
	"testing"
	"time"

	"fittrack/internal/database"
	"fittrack/internal/models"
	"fittrack/internal/repository"
)

// testEnv wires the services against a throwaway SQLite database
type testEnv struct {
	db         *database.DB
	userRepo   *repository.UserRepository
	resetRepo  *repository.ResetTokenRepository
	friendRepo *repository.FriendRepository
	auth       *AuthService
	friends    *FriendService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database-backed test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	resetRepo := repository.NewResetTokenRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	return &testEnv{
		db:         db,
		userRepo:   userRepo,
		resetRepo:  resetRepo,
		friendRepo: friendRepo,
		auth:       NewAuthService(userRepo, resetRepo, time.Hour, time.Hour, time.Hour, "test-secret"),
		friends:    NewFriendService(friendRepo, userRepo),
	}
}

func (e *testEnv) mustRegister(t *testing.T, username, email string) *models.User {
	t.Helper()
	user, err := e.auth.Register(username, email, "correct horse battery", "Test", "User")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return user
}
