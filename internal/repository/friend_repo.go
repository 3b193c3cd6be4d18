package repository

import (
	"database/sql"
	"fmt"

	"fittrack/internal/database"
	"fittrack/internal/models"
)

// FriendRepository handles database operations for friend requests and friendships
type FriendRepository struct {
	db *database.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *database.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest records a new pending friend request and returns its id.
// A request row never leaves a terminal state: when the same direction
// re-sends after a reject or cancel, the terminal row is deleted and a
// fresh pending row inserted, keeping (sender_id, receiver_id) unique.
func (r *FriendRepository) CreateRequest(senderID, receiverID int64) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM friend_requests
		WHERE sender_id = ? AND receiver_id = ? AND status <> ?
	`, senderID, receiverID, models.RequestPending); err != nil {
		return 0, fmt.Errorf("failed to clear resolved friend request: %w", err)
	}

	id, err := tx.ExecReturningID(`
		INSERT INTO friend_requests (sender_id, receiver_id, status)
		VALUES (?, ?, ?)
	`, senderID, receiverID, models.RequestPending)
	if err != nil {
		return 0, fmt.Errorf("failed to create friend request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit friend request: %w", err)
	}
	return id, nil
}

// GetRequest retrieves a friend request by id
func (r *FriendRepository) GetRequest(id int64) (*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE id = ?
	`
	req := &models.FriendRequest{}
	err := r.db.QueryRow(query, id).Scan(
		&req.ID,
		&req.SenderID,
		&req.ReceiverID,
		&req.Status,
		&req.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}

	return req, nil
}

// FindPendingBetween finds a pending request between two users in either direction
func (r *FriendRepository) FindPendingBetween(userA, userB int64) (*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND status = ?
	`
	req := &models.FriendRequest{}
	err := r.db.QueryRow(query, userA, userB, userB, userA, models.RequestPending).Scan(
		&req.ID,
		&req.SenderID,
		&req.ReceiverID,
		&req.Status,
		&req.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending request: %w", err)
	}

	return req, nil
}

// IncomingRequests returns pending requests addressed to the user, with the
// sender's username
func (r *FriendRepository) IncomingRequests(userID int64) ([]models.FriendRequest, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, u.username
		FROM friend_requests fr
		JOIN users u ON u.id = fr.sender_id
		WHERE fr.receiver_id = ? AND fr.status = ?
		ORDER BY fr.created_at DESC
	`
	return r.listRequests(query, userID)
}

// OutgoingRequests returns pending requests the user has sent, with the
// receiver's username
func (r *FriendRepository) OutgoingRequests(userID int64) ([]models.FriendRequest, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, u.username
		FROM friend_requests fr
		JOIN users u ON u.id = fr.receiver_id
		WHERE fr.sender_id = ? AND fr.status = ?
		ORDER BY fr.created_at DESC
	`
	return r.listRequests(query, userID)
}

func (r *FriendRepository) listRequests(query string, userID int64) ([]models.FriendRequest, error) {
	rows, err := r.db.Query(query, userID, models.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(
			&req.ID,
			&req.SenderID,
			&req.ReceiverID,
			&req.Status,
			&req.CreatedAt,
			&req.CounterpartUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friend requests: %w", err)
	}

	return requests, nil
}

// AcceptRequest transitions a pending request to accepted and creates the
// canonical friendship row, atomically. Returns false without applying
// anything when the request is no longer pending, so of two concurrent
// accepts exactly one wins.
func (r *FriendRepository) AcceptRequest(requestID, senderID, receiverID int64) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	applied, err := resolvePending(tx, requestID, models.RequestAccepted)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	id1, id2 := models.CanonicalPair(senderID, receiverID)
	if _, err := tx.Exec(`
		INSERT INTO friendships (user_id1, user_id2)
		VALUES (?, ?)
	`, id1, id2); err != nil {
		// Friendship insert failed (e.g. duplicate row from a race); the
		// status transition rolls back with it.
		return false, fmt.Errorf("failed to create friendship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit accept: %w", err)
	}

	return true, nil
}

// ResolveRequest transitions a pending request to the given terminal status
// (rejected or cancelled). Returns false when the request was not pending.
func (r *FriendRepository) ResolveRequest(requestID int64, status string) (bool, error) {
	return resolvePending(r.db, requestID, status)
}

// resolvePending applies the pending → status transition, guarded so only a
// request still in pending moves. Runs against the pool or a transaction.
func resolvePending(q database.DBTX, requestID int64, status string) (bool, error) {
	result, err := q.Exec(`
		UPDATE friend_requests
		SET status = ?
		WHERE id = ? AND status = ?
	`, status, requestID, models.RequestPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve friend request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read resolve result: %w", err)
	}
	return rows > 0, nil
}

// CreateFriendship inserts the canonical friendship row for a pair
func (r *FriendRepository) CreateFriendship(userA, userB int64) error {
	id1, id2 := models.CanonicalPair(userA, userB)
	if _, err := r.db.Exec(`
		INSERT INTO friendships (user_id1, user_id2)
		VALUES (?, ?)
	`, id1, id2); err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// FriendshipExists reports whether the two users are friends, in either order
func (r *FriendRepository) FriendshipExists(userA, userB int64) (bool, error) {
	id1, id2 := models.CanonicalPair(userA, userB)
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM friendships WHERE user_id1 = ? AND user_id2 = ?
	`, id1, id2).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return true, nil
}

// Friendships returns all friendships touching the user, each annotated
// with the other user's id and username
func (r *FriendRepository) Friendships(userID int64) ([]models.Friendship, error) {
	query := `
		SELECT f.user_id1, f.user_id2, f.created_at, u.username
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_id1 = ? THEN f.user_id2 ELSE f.user_id1 END
		WHERE f.user_id1 = ? OR f.user_id2 = ?
		ORDER BY f.created_at DESC
	`
	rows, err := r.db.Query(query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	var friendships []models.Friendship
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.UserID1, &f.UserID2, &f.CreatedAt, &f.FriendUsername); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		if f.UserID1 == userID {
			f.FriendID = f.UserID2
		} else {
			f.FriendID = f.UserID1
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friendships: %w", err)
	}

	return friendships, nil
}

// DeleteFriendship removes the canonical friendship row for a pair.
// Returns false when no such friendship existed.
func (r *FriendRepository) DeleteFriendship(userA, userB int64) (bool, error) {
	id1, id2 := models.CanonicalPair(userA, userB)
	result, err := r.db.Exec(`
		DELETE FROM friendships WHERE user_id1 = ? AND user_id2 = ?
	`, id1, id2)
	if err != nil {
		return false, fmt.Errorf("failed to delete friendship: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows > 0, nil
}
