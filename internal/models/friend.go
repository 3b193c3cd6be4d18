package models

import "time"

// Friend request lifecycle states. A request leaves pending exactly once,
// into one of the terminal states.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestRejected  = "rejected"
	RequestCancelled = "cancelled"
)

// Relationship status between two users, as seen from the first user
const (
	FriendStatusFriends         = "friends"
	FriendStatusRequestSent     = "request_sent"
	FriendStatusRequestReceived = "request_received"
	FriendStatusNone            = "none"
)

// FriendRequest is a directed invite from sender to receiver
type FriendRequest struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Status     string
	CreatedAt  time.Time

	// CounterpartUsername is populated via JOIN for listings: the sender's
	// username on incoming requests, the receiver's on outgoing ones
	CounterpartUsername string
}

// IsPending reports whether the request can still be responded to or cancelled
func (r *FriendRequest) IsPending() bool {
	return r.Status == RequestPending
}

// Friendship is the symmetric relation derived from an accepted request.
// It is stored once per pair, with UserID1 < UserID2.
type Friendship struct {
	UserID1   int64
	UserID2   int64
	CreatedAt time.Time

	// FriendID and FriendUsername describe the counterpart of the user the
	// friendship was listed for
	FriendID       int64
	FriendUsername string
}

// CanonicalPair orders two user ids as (min, max) so a pair is stored and
// queried identically regardless of input order
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
