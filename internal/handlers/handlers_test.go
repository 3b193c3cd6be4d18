package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fittrack/internal/database"
	"fittrack/internal/repository"
	"fittrack/internal/service"
)

// newTestServer builds the full HTTP stack over a throwaway SQLite database,
// with the route table the server binary uses
func newTestServer(t *testing.T) *httptest.Server {
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

	authService := service.NewAuthService(userRepo, resetRepo, time.Hour, time.Hour, time.Hour, "test-secret")
	friendService := service.NewFriendService(friendRepo, userRepo)
	emailService, err := service.NewEmailService("", "", "", "", 0, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}

	middleware := NewMiddleware(authService)
	authHandler := NewAuthHandler(authService, emailService)
	friendHandler := NewFriendHandler(friendService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", authHandler.Register)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("POST /auth/api/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("GET /auth/api/reset-password/validate", authHandler.ValidateResetToken)
	mux.HandleFunc("POST /auth/api/reset-password", authHandler.ResetPassword)
	mux.HandleFunc("POST /api/friend-requests", middleware.RequireAuth(friendHandler.SendRequest))
	mux.HandleFunc("GET /api/friend-requests/incoming", middleware.RequireAuth(friendHandler.IncomingRequests))
	mux.HandleFunc("GET /api/friend-requests/outgoing", middleware.RequireAuth(friendHandler.OutgoingRequests))
	mux.HandleFunc("POST /api/friend-requests/{id}", middleware.RequireAuth(friendHandler.Respond))
	mux.HandleFunc("POST /api/invites/cancel/{id}", middleware.RequireAuth(friendHandler.Cancel))
	mux.HandleFunc("GET /api/friends", middleware.RequireAuth(friendHandler.Friends))
	mux.HandleFunc("GET /api/friends/search", middleware.RequireAuth(friendHandler.Search))
	mux.HandleFunc("POST /api/friends/remove/{id}", middleware.RequireAuth(friendHandler.Remove))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// register creates an account over HTTP and returns the new user id
func register(t *testing.T, server *httptest.Server, username, email string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":"correct horse battery","firstName":"Test","lastName":"User"}`, username, email)
	resp, err := http.Post(server.URL+"/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("register status = %d, body %s", resp.StatusCode, raw)
	}

	var payload struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return payload.UserID
}

// login authenticates over HTTP and returns the bearer token
func login(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"correct horse battery"}}
	resp, err := http.PostForm(server.URL+"/login", form)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("login status = %d, body %s", resp.StatusCode, raw)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("login returned an empty token")
	}
	return payload.Token
}

// doJSON sends an authenticated JSON request and decodes the response body
func doJSON(t *testing.T, method, targetURL, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, targetURL, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, targetURL, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && err != io.EOF {
		t.Fatalf("decode response from %s %s: %v", method, targetURL, err)
	}
	return resp.StatusCode, payload
}

func TestRegisterEndpoint(t *testing.T) {
	server := newTestServer(t)

	if id := register(t, server, "alice", "alice@example.com"); id == 0 {
		t.Fatal("expected non-zero user id")
	}

	// Duplicate username
	body := `{"username":"alice","email":"other@example.com","password":"pw12345678","firstName":"A","lastName":"B"}`
	resp, err := http.Post(server.URL+"/register", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// Missing fields fail closed
	resp, err = http.Post(server.URL+"/register", "application/json", strings.NewReader(`{"username":"bob"}`))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("partial register status = %d, want 400", resp.StatusCode)
	}

	// Unknown fields fail closed
	resp, err = http.Post(server.URL+"/register", "application/json",
		strings.NewReader(`{"username":"bob","email":"bob@example.com","password":"pw12345678","nickname":"bobby"}`))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown-field register status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t)
	register(t, server, "alice", "alice@example.com")

	form := url.Values{"username": {"alice"}, "password": {"correct horse battery"}}
	resp, err := http.PostForm(server.URL+"/login", form)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("login did not set a session cookie")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	// Wrong password
	form = url.Values{"username": {"alice"}, "password": {"wrong"}}
	resp2, err := http.PostForm(server.URL+"/login", form)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp2.StatusCode)
	}
}

func TestFriendRoutesRequireAuth(t *testing.T) {
	server := newTestServer(t)

	status, _ := doJSON(t, "GET", server.URL+"/api/friends", "", "")
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", status)
	}

	status, _ = doJSON(t, "GET", server.URL+"/api/friends", "not-a-real-token", "")
	if status != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", status)
	}
}

func TestFriendRequestFlow(t *testing.T) {
	server := newTestServer(t)
	register(t, server, "alice", "alice@example.com")
	bobID := register(t, server, "bob", "bob@example.com")
	aliceToken := login(t, server, "alice")
	bobToken := login(t, server, "bob")

	// Alice sends a request to Bob
	status, payload := doJSON(t, "POST", server.URL+"/api/friend-requests", aliceToken,
		fmt.Sprintf(`{"receiver_id":%d}`, bobID))
	if status != http.StatusCreated {
		t.Fatalf("send request status = %d, body %v", status, payload)
	}
	requestID := int64(payload["request_id"].(float64))

	// Bob sees it incoming
	status, payload = doJSON(t, "GET", server.URL+"/api/friend-requests/incoming", bobToken, "")
	if status != http.StatusOK {
		t.Fatalf("incoming status = %d", status)
	}
	requests := payload["requests"].([]any)
	if len(requests) != 1 {
		t.Fatalf("incoming count = %d, want 1", len(requests))
	}
	first := requests[0].(map[string]any)
	if first["sender_username"] != "alice" || first["status"] != "pending" {
		t.Errorf("incoming request = %v, want pending with sender_username alice", first)
	}

	// Alice sees it outgoing, named for the receiver
	status, payload = doJSON(t, "GET", server.URL+"/api/friend-requests/outgoing", aliceToken, "")
	if status != http.StatusOK {
		t.Fatalf("outgoing status = %d", status)
	}
	outgoing := payload["requests"].([]any)
	if len(outgoing) != 1 {
		t.Fatalf("outgoing count = %d, want 1", len(outgoing))
	}
	if entry := outgoing[0].(map[string]any); entry["receiver_username"] != "bob" {
		t.Errorf("outgoing request = %v, want receiver_username bob", entry)
	}

	// Alice may not accept her own request
	status, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/friend-requests/%d", server.URL, requestID),
		aliceToken, `{"action":"accept"}`)
	if status != http.StatusForbidden {
		t.Errorf("sender accepting status = %d, want 403", status)
	}

	// Bob accepts
	status, payload = doJSON(t, "POST", fmt.Sprintf("%s/api/friend-requests/%d", server.URL, requestID),
		bobToken, `{"action":"accept"}`)
	if status != http.StatusOK {
		t.Fatalf("accept status = %d, body %v", status, payload)
	}
	if payload["new_status"] != "accepted" {
		t.Errorf("new_status = %v, want accepted", payload["new_status"])
	}

	// Second accept observes the resolved state
	status, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/friend-requests/%d", server.URL, requestID),
		bobToken, `{"action":"accept"}`)
	if status != http.StatusConflict {
		t.Errorf("second accept status = %d, want 409", status)
	}

	// Both friend lists contain the counterpart
	status, payload = doJSON(t, "GET", server.URL+"/api/friends", aliceToken, "")
	if status != http.StatusOK {
		t.Fatalf("friends status = %d", status)
	}
	friendships := payload["friendships"].([]any)
	if len(friendships) != 1 {
		t.Fatalf("friendship count = %d, want 1", len(friendships))
	}
	if friendships[0].(map[string]any)["username"] != "bob" {
		t.Errorf("friendship = %v, want bob", friendships[0])
	}

	// A new request to an existing friend conflicts
	status, _ = doJSON(t, "POST", server.URL+"/api/friend-requests", aliceToken,
		fmt.Sprintf(`{"receiver_id":%d}`, bobID))
	if status != http.StatusConflict {
		t.Errorf("request to friend status = %d, want 409", status)
	}

	// Unfriend, then removing again 404s
	status, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/friends/remove/%d", server.URL, bobID), aliceToken, "")
	if status != http.StatusOK {
		t.Errorf("remove status = %d, want 200", status)
	}
	status, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/friends/remove/%d", server.URL, bobID), aliceToken, "")
	if status != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", status)
	}
}

func TestCancelInviteEndpoint(t *testing.T) {
	server := newTestServer(t)
	register(t, server, "alice", "alice@example.com")
	bobID := register(t, server, "bob", "bob@example.com")
	aliceToken := login(t, server, "alice")
	bobToken := login(t, server, "bob")

	status, payload := doJSON(t, "POST", server.URL+"/api/friend-requests", aliceToken,
		fmt.Sprintf(`{"receiver_id":%d}`, bobID))
	if status != http.StatusCreated {
		t.Fatalf("send request status = %d", status)
	}
	requestID := int64(payload["request_id"].(float64))

	// Only the sender may cancel
	status, _ = doJSON(t, "POST", fmt.Sprintf("%s/api/invites/cancel/%d", server.URL, requestID), bobToken, "")
	if status != http.StatusForbidden {
		t.Errorf("receiver cancel status = %d, want 403", status)
	}

	status, payload = doJSON(t, "POST", fmt.Sprintf("%s/api/invites/cancel/%d", server.URL, requestID), aliceToken, "")
	if status != http.StatusOK {
		t.Fatalf("cancel status = %d", status)
	}
	if payload["status"] != "cancelled" {
		t.Errorf("cancel response = %v, want status cancelled", payload)
	}
}

func TestSearchEndpoint(t *testing.T) {
	server := newTestServer(t)
	register(t, server, "runner_alice", "alice@example.com")
	register(t, server, "runner_bob", "bob@example.com")
	token := login(t, server, "runner_alice")

	status, payload := doJSON(t, "GET", server.URL+"/api/friends/search?username=runner", token, "")
	if status != http.StatusOK {
		t.Fatalf("search status = %d", status)
	}
	results := payload["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1 (caller excluded)", len(results))
	}
	entry := results[0].(map[string]any)
	if entry["username"] != "runner_bob" || entry["friend_status"] != "none" {
		t.Errorf("search result = %v, want runner_bob with friend_status none", entry)
	}

	status, _ = doJSON(t, "GET", server.URL+"/api/friends/search", token, "")
	if status != http.StatusBadRequest {
		t.Errorf("missing query status = %d, want 400", status)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	server := newTestServer(t)
	register(t, server, "alice", "alice@example.com")

	// Identical success for known and unknown emails
	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		status, payload := doJSON(t, "POST", server.URL+"/auth/api/forgot-password", "",
			fmt.Sprintf(`{"email":%q}`, email))
		if status != http.StatusOK || payload["status"] != "success" {
			t.Errorf("forgot-password(%s) = %d %v, want 200 success", email, status, payload)
		}
	}

	// Unknown token is rejected with a reason
	status, _ := doJSON(t, "GET", server.URL+"/auth/api/reset-password/validate?token=bogus", "", "")
	if status != http.StatusBadRequest {
		t.Errorf("validate bogus token status = %d, want 400", status)
	}

	status, _ = doJSON(t, "POST", server.URL+"/auth/api/reset-password", "",
		`{"token":"bogus","new_password":"replacement pw"}`)
	if status != http.StatusBadRequest {
		t.Errorf("reset with bogus token status = %d, want 400", status)
	}
}
