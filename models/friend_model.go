package models

import "time"

// Friendship is one direction of an accepted friendship. The graph layer
// always writes the pair (userId->friendId and friendId->userId) together.
type Friendship struct {
	UserID    string    `json:"user_id" bson:"userId"`
	FriendID  string    `json:"friend_id" bson:"friendId"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}

// FriendRequestStatus is the lifecycle state of a friend request. Accepted
// and rejected requests are deleted, so only pending is ever stored.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is stored under the recipient. At most one pending request
// per (from, to) pair is allowed, enforced by a pre-check on send.
type FriendRequest struct {
	ID         string              `json:"id" bson:"_id"`
	FromUserID string              `json:"from_user_id" bson:"fromUserId"`
	ToUserID   string              `json:"to_user_id" bson:"toUserId"`
	Status     FriendRequestStatus `json:"status" bson:"status"`
	CreatedAt  time.Time           `json:"created_at" bson:"createdAt"`
}
