package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fittrack/internal/models"
	"fittrack/internal/service"
)

// FriendHandler handles friend request and friendship HTTP requests
type FriendHandler struct {
	friendService *service.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type sendRequestBody struct {
	ReceiverID int64 `json:"receiver_id"`
}

// SendRequest creates a pending friend request from the caller to receiver_id
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var body sendRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if body.ReceiverID == 0 {
		respondWithError(w, http.StatusBadRequest, "receiver_id is required", "", nil)
		return
	}

	id, err := h.friendService.SendRequest(user.ID, body.ReceiverID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"status":     "success",
		"request_id": id,
	})
}

type friendRequestView struct {
	ID               int64  `json:"id"`
	SenderID         int64  `json:"sender_id"`
	ReceiverID       int64  `json:"receiver_id"`
	SenderUsername   string `json:"sender_username,omitempty"`
	ReceiverUsername string `json:"receiver_username,omitempty"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

// requestViews shapes requests for listing. The counterpart's username is
// the sender's on incoming requests and the receiver's on outgoing ones.
func requestViews(requests []models.FriendRequest, incoming bool) []friendRequestView {
	views := make([]friendRequestView, 0, len(requests))
	for _, req := range requests {
		view := friendRequestView{
			ID:         req.ID,
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			Status:     req.Status,
			CreatedAt:  req.CreatedAt.Format(time.RFC3339),
		}
		if incoming {
			view.SenderUsername = req.CounterpartUsername
		} else {
			view.ReceiverUsername = req.CounterpartUsername
		}
		views = append(views, view)
	}
	return views
}

// IncomingRequests lists pending requests addressed to the caller
func (h *FriendHandler) IncomingRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	requests, err := h.friendService.IncomingRequests(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list friend requests", "", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"requests": requestViews(requests, true)})
}

// OutgoingRequests lists pending requests the caller has sent
func (h *FriendHandler) OutgoingRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	requests, err := h.friendService.OutgoingRequests(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list friend requests", "", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"requests": requestViews(requests, false)})
}

type respondRequestBody struct {
	Action string `json:"action"`
}

// Respond accepts or rejects a pending request addressed to the caller
func (h *FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	requestID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request id", "", err)
		return
	}

	var body respondRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	newStatus, err := h.friendService.Respond(requestID, user.ID, body.Action)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"new_status": newStatus,
	})
}

// Cancel withdraws a pending request the caller sent
func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	requestID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invite id", "", err)
		return
	}

	if err := h.friendService.Cancel(requestID, user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"invite_id": requestID,
		"status":    "cancelled",
	})
}

type friendshipView struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// Friends lists the caller's friendships
func (h *FriendHandler) Friends(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	friendships, err := h.friendService.Friends(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list friends", "", err)
		return
	}

	views := make([]friendshipView, 0, len(friendships))
	for _, f := range friendships {
		views = append(views, friendshipView{
			UserID:    f.FriendID,
			Username:  f.FriendUsername,
			CreatedAt: f.CreatedAt.Format(time.RFC3339),
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"friendships": views})
}

type searchResultView struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	FriendStatus string `json:"friend_status"`
}

// Search finds users by username, annotated with the relationship to the caller
func (h *FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	query := r.URL.Query().Get("username")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "username query parameter is required", "", nil)
		return
	}

	results, err := h.friendService.SearchUsers(user.ID, query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to search users", "", err)
		return
	}

	views := make([]searchResultView, 0, len(results))
	for _, res := range results {
		views = append(views, searchResultView{
			UserID:       res.UserID,
			Username:     res.Username,
			FriendStatus: res.Status,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"results": views})
}

// Remove deletes the friendship between the caller and the user in the path
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	friendID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id", "", err)
		return
	}

	if err := h.friendService.Unfriend(user.ID, friendID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// pathID parses a numeric path segment registered with the given name
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
