package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fittrack/internal/config"
	"fittrack/internal/database"
	"fittrack/internal/handlers"
	"fittrack/internal/repository"
	"fittrack/internal/security"
	"fittrack/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Create tables if they don't exist yet
	if err := db.EnsureSchema(); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	log.Println("Schema ready")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	resetRepo := repository.NewResetTokenRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, resetRepo,
		cfg.SessionDuration, cfg.ResetTokenTTL, cfg.APITokenTTL, cfg.JWTSecret)
	friendService := service.NewFriendService(friendRepo, userRepo)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail,
		cfg.SESFromName, cfg.AppBaseURL, cfg.MailSendTimeout, cfg.ResetTokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, emailService)
	friendHandler := handlers.NewFriendHandler(friendService)

	// Credential endpoints get a per-IP rate limit
	loginLimiter := security.NewRateLimiter(10, time.Minute)
	resetLimiter := security.NewRateLimiter(5, time.Minute)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("POST /login", handlers.RateLimit(loginLimiter, authHandler.Login))
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("POST /auth/api/forgot-password", handlers.RateLimit(resetLimiter, authHandler.ForgotPassword))
	mux.HandleFunc("GET /auth/api/reset-password/validate", authHandler.ValidateResetToken)
	mux.HandleFunc("POST /auth/api/reset-password", authHandler.ResetPassword)

	// Protected friend routes
	mux.HandleFunc("POST /api/friend-requests", middleware.RequireAuth(friendHandler.SendRequest))
	mux.HandleFunc("GET /api/friend-requests/incoming", middleware.RequireAuth(friendHandler.IncomingRequests))
	mux.HandleFunc("GET /api/friend-requests/outgoing", middleware.RequireAuth(friendHandler.OutgoingRequests))
	mux.HandleFunc("POST /api/friend-requests/{id}", middleware.RequireAuth(friendHandler.Respond))
	mux.HandleFunc("POST /api/invites/cancel/{id}", middleware.RequireAuth(friendHandler.Cancel))
	mux.HandleFunc("GET /api/friends", middleware.RequireAuth(friendHandler.Friends))
	mux.HandleFunc("GET /api/friends/search", middleware.RequireAuth(friendHandler.Search))
	mux.HandleFunc("POST /api/friends/remove/{id}", middleware.RequireAuth(friendHandler.Remove))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background cleanup of expired sessions and stale reset tokens
	go cleanupLoop(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// cleanupLoop periodically removes expired sessions and used or expired
// reset tokens
func cleanupLoop(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}

		if err := authService.PurgeResetTokens(); err != nil {
			log.Printf("Error purging reset tokens: %v", err)
		} else {
			log.Println("Stale reset tokens purged")
		}
	}
}
