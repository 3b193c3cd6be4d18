package service

import (
	"errors"
	"fmt"

	"fittrack/internal/models"
	"fittrack/internal/repository"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrDuplicateRequest = errors.New("a pending friend request already exists between these users")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotAuthorized    = errors.New("not authorized to act on this friend request")
	ErrAlreadyResolved  = errors.New("this friend request has already been responded to")
	ErrInvalidAction    = errors.New("invalid action, must be accept or reject")
	ErrNotFriends       = errors.New("users are not friends")
)

// FriendService manages the friend request lifecycle and the derived
// friendship relation
type FriendService struct {
	friendRepo *repository.FriendRepository
	userRepo   *repository.UserRepository
}

// NewFriendService creates a new friend service
func NewFriendService(friendRepo *repository.FriendRepository, userRepo *repository.UserRepository) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendRequest creates a pending friend request from sender to receiver and
// returns its id
func (s *FriendService) SendRequest(senderID, receiverID int64) (int64, error) {
	if senderID == receiverID {
		return 0, ErrSelfRequest
	}

	for _, id := range []int64{senderID, receiverID} {
		exists, err := s.userRepo.UserExists(id)
		if err != nil {
			return 0, fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return 0, ErrUserNotFound
		}
	}

	friends, err := s.friendRepo.FriendshipExists(senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return 0, ErrAlreadyFriends
	}

	// A pending request in either direction blocks a new one
	pending, err := s.friendRepo.FindPendingBetween(senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending != nil {
		return 0, ErrDuplicateRequest
	}

	id, err := s.friendRepo.CreateRequest(senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("failed to create friend request: %w", err)
	}

	return id, nil
}

// Respond accepts or rejects a pending request. Only the receiver may
// respond. Accepting creates the friendship and transitions the status in
// one transaction.
func (s *FriendService) Respond(requestID, actingUserID int64, action string) (string, error) {
	req, err := s.friendRepo.GetRequest(requestID)
	if err != nil {
		return "", fmt.Errorf("failed to load friend request: %w", err)
	}
	if req == nil {
		return "", ErrRequestNotFound
	}
	if req.ReceiverID != actingUserID {
		return "", ErrNotAuthorized
	}
	if !req.IsPending() {
		return "", ErrAlreadyResolved
	}

	switch action {
	case "accept":
		applied, err := s.friendRepo.AcceptRequest(req.ID, req.SenderID, req.ReceiverID)
		if err != nil {
			return "", fmt.Errorf("failed to accept friend request: %w", err)
		}
		if !applied {
			return "", ErrAlreadyResolved
		}
		return models.RequestAccepted, nil
	case "reject":
		applied, err := s.friendRepo.ResolveRequest(req.ID, models.RequestRejected)
		if err != nil {
			return "", fmt.Errorf("failed to reject friend request: %w", err)
		}
		if !applied {
			return "", ErrAlreadyResolved
		}
		return models.RequestRejected, nil
	default:
		return "", ErrInvalidAction
	}
}

// Cancel withdraws a pending request. Only the original sender may cancel.
func (s *FriendService) Cancel(requestID, actingUserID int64) error {
	req, err := s.friendRepo.GetRequest(requestID)
	if err != nil {
		return fmt.Errorf("failed to load friend request: %w", err)
	}
	if req == nil {
		return ErrRequestNotFound
	}
	if req.SenderID != actingUserID {
		return ErrNotAuthorized
	}
	if !req.IsPending() {
		return ErrAlreadyResolved
	}

	applied, err := s.friendRepo.ResolveRequest(req.ID, models.RequestCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel friend request: %w", err)
	}
	if !applied {
		return ErrAlreadyResolved
	}

	return nil
}

// IncomingRequests lists pending requests addressed to the user
func (s *FriendService) IncomingRequests(userID int64) ([]models.FriendRequest, error) {
	return s.friendRepo.IncomingRequests(userID)
}

// OutgoingRequests lists pending requests the user has sent
func (s *FriendService) OutgoingRequests(userID int64) ([]models.FriendRequest, error) {
	return s.friendRepo.OutgoingRequests(userID)
}

// Friends lists the user's friendships
func (s *FriendService) Friends(userID int64) ([]models.Friendship, error) {
	return s.friendRepo.Friendships(userID)
}

// Unfriend removes an existing friendship. This is a hard delete.
func (s *FriendService) Unfriend(userID, friendID int64) error {
	deleted, err := s.friendRepo.DeleteFriendship(userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if !deleted {
		return ErrNotFriends
	}
	return nil
}

// RelationshipStatus computes the relationship between two users as seen
// from userA: friends, request_sent, request_received, or none
func (s *FriendService) RelationshipStatus(userA, userB int64) (string, error) {
	friends, err := s.friendRepo.FriendshipExists(userA, userB)
	if err != nil {
		return "", fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return models.FriendStatusFriends, nil
	}

	pending, err := s.friendRepo.FindPendingBetween(userA, userB)
	if err != nil {
		return "", fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending != nil {
		if pending.SenderID == userA {
			return models.FriendStatusRequestSent, nil
		}
		return models.FriendStatusRequestReceived, nil
	}

	return models.FriendStatusNone, nil
}

// UserSearchResult is a user matched by search, annotated with the
// relationship status relative to the searching user
type UserSearchResult struct {
	UserID   int64
	Username string
	Status   string
}

// SearchUsers finds users by username substring, excluding the searcher,
// each annotated with the relationship status so a client can render the
// right call-to-action
func (s *FriendService) SearchUsers(userID int64, query string) ([]UserSearchResult, error) {
	users, err := s.userRepo.SearchByUsername(query, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	var results []UserSearchResult
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		status, err := s.RelationshipStatus(userID, u.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, UserSearchResult{
			UserID:   u.ID,
			Username: u.Username,
			Status:   status,
		})
	}

	return results, nil
}
