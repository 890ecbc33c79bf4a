package services

import (
	"context"
	"testing"
	"time"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// fakeGraph is an in-memory socialGraph that mimics the bidirectional write
// behavior of the mongo implementation.
type fakeGraph struct {
	friends  map[string]map[string]bool
	requests map[string]models.FriendRequest
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		friends:  make(map[string]map[string]bool),
		requests: make(map[string]models.FriendRequest),
	}
}

func (g *fakeGraph) addFriend(userID, friendID string) {
	if g.friends[userID] == nil {
		g.friends[userID] = make(map[string]bool)
	}
	g.friends[userID][friendID] = true
}

func (g *fakeGraph) CreateFriendship(ctx context.Context, userID, friendID, requestID string) error {
	g.addFriend(userID, friendID)
	g.addFriend(friendID, userID)
	delete(g.requests, requestID)
	return nil
}

func (g *fakeGraph) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	delete(g.friends[userID], friendID)
	delete(g.friends[friendID], userID)
	return nil
}

func (g *fakeGraph) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for id := range g.friends[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *fakeGraph) HasFriend(ctx context.Context, userID, otherID string) (bool, error) {
	return g.friends[userID][otherID], nil
}

func (g *fakeGraph) CreateRequest(ctx context.Context, req models.FriendRequest) error {
	g.requests[req.ID] = req
	return nil
}

func (g *fakeGraph) GetRequest(ctx context.Context, toUserID, requestID string) (models.FriendRequest, error) {
	req, ok := g.requests[requestID]
	if !ok || req.ToUserID != toUserID {
		return models.FriendRequest{}, errors.ErrNotFound
	}
	return req, nil
}

func (g *fakeGraph) DeleteRequest(ctx context.Context, toUserID, requestID string) error {
	req, ok := g.requests[requestID]
	if !ok || req.ToUserID != toUserID {
		return errors.ErrNotFound
	}
	delete(g.requests, req.ID)
	return nil
}

func (g *fakeGraph) HasPendingRequest(ctx context.Context, fromID, toID string) (bool, error) {
	for _, req := range g.requests {
		if req.FromUserID == fromID && req.ToUserID == toID && req.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (g *fakeGraph) ListPendingRequests(ctx context.Context, toUserID string) ([]models.FriendRequest, error) {
	var out []models.FriendRequest
	for _, req := range g.requests {
		if req.ToUserID == toUserID && req.Status == models.RequestPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func newFriendFixture(users map[string]models.User) (*FriendService, *fakeGraph) {
	graph := newFakeGraph()
	return NewFriendService(graph, &fakeProfiles{users: users}), graph
}

func riderProfiles() map[string]models.User {
	return map[string]models.User{
		"u1": {ID: "u1", Handle: "alice_rides", Name: "Alice"},
		"u2": {ID: "u2", Handle: "bob_moto", Name: "Bob"},
		"u3": {ID: "u3", Handle: "carol99", Name: "Carol"},
	}
}

func TestSendRequestToSelfRejected(t *testing.T) {
	svc, _ := newFriendFixture(riderProfiles())
	_, err := svc.SendRequest(context.Background(), "u1", "alice_rides")
	apiErr, ok := err.(*errors.APIError)
	if !ok || apiErr.Code != "SELF_REQUEST" {
		t.Fatalf("expected SELF_REQUEST, got %v", err)
	}
}

func TestSendRequestAlreadyFriendsRejected(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	graph.addFriend("u1", "u2")
	graph.addFriend("u2", "u1")

	_, err := svc.SendRequest(context.Background(), "u1", "bob_moto")
	apiErr, ok := err.(*errors.APIError)
	if !ok || apiErr.Code != "ALREADY_FRIENDS" {
		t.Fatalf("expected ALREADY_FRIENDS, got %v", err)
	}
}

func TestSendRequestDuplicatePendingRejected(t *testing.T) {
	svc, _ := newFriendFixture(riderProfiles())
	if _, err := svc.SendRequest(context.Background(), "u1", "bob_moto"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	_, err := svc.SendRequest(context.Background(), "u1", "bob_moto")
	apiErr, ok := err.(*errors.APIError)
	if !ok || apiErr.Code != "REQUEST_PENDING" {
		t.Fatalf("expected REQUEST_PENDING, got %v", err)
	}
}

func TestSendRequestUnknownHandle(t *testing.T) {
	svc, _ := newFriendFixture(riderProfiles())
	if _, err := svc.SendRequest(context.Background(), "u1", "no_such_rider"); err == nil {
		t.Fatal("expected error for unknown handle")
	}
}

func TestAcceptRequestCreatesMutualFriendship(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "bob_moto")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.AcceptRequest(ctx, "u2", req.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		ok, err := svc.AreFriends(ctx, pair[0], pair[1])
		if err != nil || !ok {
			t.Fatalf("expected %s and %s to be friends, got ok=%v err=%v", pair[0], pair[1], ok, err)
		}
	}
	if _, ok := graph.requests[req.ID]; ok {
		t.Fatal("expected request removed after accept")
	}
}

func TestAcceptRequestWrongRecipient(t *testing.T) {
	svc, _ := newFriendFixture(riderProfiles())
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "bob_moto")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.AcceptRequest(ctx, "u3", req.ID); err == nil {
		t.Fatal("expected error when a non-recipient accepts")
	}
}

func TestRejectRequestDeletesOnly(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "bob_moto")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.RejectRequest(ctx, "u2", req.ID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if _, ok := graph.requests[req.ID]; ok {
		t.Fatal("expected request removed after reject")
	}
	if ok, _ := svc.AreFriends(ctx, "u1", "u2"); ok {
		t.Fatal("reject must not create a friendship")
	}
}

func TestRemoveFriendBothDirections(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	ctx := context.Background()
	graph.addFriend("u1", "u2")
	graph.addFriend("u2", "u1")

	if err := svc.RemoveFriend(ctx, "u1", "u2"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if ok, _ := svc.AreFriends(ctx, "u1", "u2"); ok {
		t.Fatal("expected u1->u2 removed")
	}
	if ok, _ := svc.AreFriends(ctx, "u2", "u1"); ok {
		t.Fatal("expected u2->u1 removed")
	}
}

func TestRemoveFriendNotFriends(t *testing.T) {
	svc, _ := newFriendFixture(riderProfiles())
	if err := svc.RemoveFriend(context.Background(), "u1", "u3"); err != errors.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFriendsSkipsMissingProfiles(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	graph.addFriend("u1", "u2")
	graph.addFriend("u1", "deleted-user")

	friends, err := svc.GetFriends(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != "u2" {
		t.Fatalf("expected only u2, got %+v", friends)
	}
}

func TestListPendingRequests(t *testing.T) {
	svc, graph := newFriendFixture(riderProfiles())
	graph.requests["r1"] = models.FriendRequest{
		ID: "r1", FromUserID: "u1", ToUserID: "u2",
		Status: models.RequestPending, CreatedAt: time.Now().UTC(),
	}

	reqs, err := svc.ListPendingRequests(context.Background(), "u2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 1 || reqs[0].ID != "r1" {
		t.Fatalf("expected [r1], got %+v", reqs)
	}
}
