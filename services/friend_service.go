package services

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// userGetter is the slice of UserService the friend and feed layers need.
type userGetter interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByHandle(ctx context.Context, handle string) (models.User, error)
}

// socialGraph abstracts friendship and request persistence. The mongo
// implementation keeps the bidirectional pair atomic; fakes stand in for it
// in tests.
type socialGraph interface {
	CreateFriendship(ctx context.Context, userID, friendID, requestID string) error
	RemoveFriendship(ctx context.Context, userID, friendID string) error
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	HasFriend(ctx context.Context, userID, otherID string) (bool, error)
	CreateRequest(ctx context.Context, req models.FriendRequest) error
	GetRequest(ctx context.Context, toUserID, requestID string) (models.FriendRequest, error)
	DeleteRequest(ctx context.Context, toUserID, requestID string) error
	HasPendingRequest(ctx context.Context, fromID, toID string) (bool, error)
	ListPendingRequests(ctx context.Context, toUserID string) ([]models.FriendRequest, error)
}

// FriendService implements the friendship operations: send/accept/reject
// requests, remove friends, and membership queries.
type FriendService struct {
	graph socialGraph
	users userGetter
}

func NewFriendService(graph socialGraph, users userGetter) *FriendService {
	return &FriendService{graph: graph, users: users}
}

// SendRequest resolves toHandle and creates one pending request under the
// recipient. Self-requests, existing friendships and duplicate pending
// requests are rejected up front.
func (s *FriendService) SendRequest(ctx context.Context, fromID, toHandle string) (models.FriendRequest, error) {
	toUser, err := s.users.GetByHandle(ctx, toHandle)
	if err != nil {
		return models.FriendRequest{}, err
	}

	if toUser.ID == fromID {
		return models.FriendRequest{}, errors.NewAPIError("SELF_REQUEST", "Cannot send a friend request to yourself", http.StatusBadRequest)
	}

	alreadyFriends, err := s.graph.HasFriend(ctx, fromID, toUser.ID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if alreadyFriends {
		return models.FriendRequest{}, errors.NewAPIError("ALREADY_FRIENDS", "Already friends with this user", http.StatusConflict)
	}

	pending, err := s.graph.HasPendingRequest(ctx, fromID, toUser.ID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if pending {
		return models.FriendRequest{}, errors.NewAPIError("REQUEST_PENDING", "Friend request already sent", http.StatusConflict)
	}

	req := models.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromID,
		ToUserID:   toUser.ID,
		Status:     models.RequestPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.graph.CreateRequest(ctx, req); err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// AcceptRequest turns a pending request into a friendship: both membership
// records are written and the request removed in one storage batch.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID string) error {
	req, err := s.graph.GetRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return errors.NewAPIError("REQUEST_NOT_PENDING", "Friend request is no longer pending", http.StatusConflict)
	}
	return s.graph.CreateFriendship(ctx, userID, req.FromUserID, requestID)
}

// RejectRequest deletes the request document only.
func (s *FriendService) RejectRequest(ctx context.Context, userID, requestID string) error {
	return s.graph.DeleteRequest(ctx, userID, requestID)
}

// RemoveFriend deletes both directional membership records.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	isFriend, err := s.graph.HasFriend(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !isFriend {
		return errors.ErrNotFound
	}
	return s.graph.RemoveFriendship(ctx, userID, friendID)
}

// GetFriends reads the friend-id set then fetches each profile. A friend id
// whose profile is missing is silently filtered out.
func (s *FriendService) GetFriends(ctx context.Context, userID string) ([]models.User, error) {
	ids, err := s.graph.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends := make([]models.User, 0, len(ids))
	for _, id := range ids {
		friend, err := s.users.GetByID(ctx, id)
		if err != nil {
			log.Printf("Skipping friend %s of %s: %v", id, userID, err)
			continue
		}
		friends = append(friends, friend)
	}
	return friends, nil
}

// ListPendingRequests returns requests waiting on the recipient.
func (s *FriendService) ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return s.graph.ListPendingRequests(ctx, userID)
}

// AreFriends checks b's membership within a's friend records only; the
// bidirectional-write invariant makes one direction sufficient.
func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return s.graph.HasFriend(ctx, a, b)
}

// FriendIDs exposes the raw friend-id set for the feed fan-out.
func (s *FriendService) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	return s.graph.FriendIDs(ctx, userID)
}
