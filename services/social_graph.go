package services

import (
	"context"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// MongoSocialGraph stores friendship membership records and friend requests.
// A friendship is a symmetric pair of records, one per direction; the pair is
// written and removed inside a single transaction so a crash cannot leave an
// asymmetric friendship behind.
type MongoSocialGraph struct {
	client      *mongo.Client
	friendships *mongo.Collection
	requests    *mongo.Collection
}

func NewMongoSocialGraph(client *mongo.Client, db *mongo.Database) *MongoSocialGraph {
	return &MongoSocialGraph{
		client:      client,
		friendships: db.Collection("friendships"),
		requests:    db.Collection("friend_requests"),
	}
}

func (g *MongoSocialGraph) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := g.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to start session", http.StatusInternalServerError)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "friendship transaction failed", http.StatusInternalServerError)
	}
	return nil
}

// CreateFriendship writes both membership records and removes the accepted
// request in one transaction. Membership writes are upserts, so replaying an
// accept is harmless.
func (g *MongoSocialGraph) CreateFriendship(ctx context.Context, userID, friendID, requestID string) error {
	now := time.Now().UTC()
	return g.withTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
			filter := bson.M{"userId": pair[0], "friendId": pair[1]}
			update := bson.M{"$setOnInsert": bson.M{
				"userId":    pair[0],
				"friendId":  pair[1],
				"createdAt": now,
			}}
			opts := options.Update().SetUpsert(true)
			if _, err := g.friendships.UpdateOne(sc, filter, update, opts); err != nil {
				return err
			}
		}
		if requestID != "" {
			if _, err := g.requests.DeleteOne(sc, bson.M{"_id": requestID, "toUserId": userID}); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveFriendship deletes both membership records in one transaction.
func (g *MongoSocialGraph) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	return g.withTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
			if _, err := g.friendships.DeleteOne(sc, bson.M{"userId": pair[0], "friendId": pair[1]}); err != nil {
				return err
			}
		}
		return nil
	})
}

// FriendIDs returns the ids in userID's friend sub-collection.
func (g *MongoSocialGraph) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := g.friendships.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to load friends", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var records []models.Friendship
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to decode friends", http.StatusInternalServerError)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.FriendID)
	}
	return ids, nil
}

// HasFriend checks membership of otherID within userID's records only,
// relying on the bidirectional-write invariant.
func (g *MongoSocialGraph) HasFriend(ctx context.Context, userID, otherID string) (bool, error) {
	count, err := g.friendships.CountDocuments(ctx, bson.M{"userId": userID, "friendId": otherID})
	if err != nil {
		return false, errors.Wrap(err, "DB_ERROR", "failed to check friendship", http.StatusInternalServerError)
	}
	return count > 0, nil
}

// CreateRequest stores a pending request under the recipient.
func (g *MongoSocialGraph) CreateRequest(ctx context.Context, req models.FriendRequest) error {
	if _, err := g.requests.InsertOne(ctx, req); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to create friend request", http.StatusInternalServerError)
	}
	return nil
}

// GetRequest loads one of the recipient's requests by id.
func (g *MongoSocialGraph) GetRequest(ctx context.Context, toUserID, requestID string) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := g.requests.FindOne(ctx, bson.M{"_id": requestID, "toUserId": toUserID}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.FriendRequest{}, errors.ErrNotFound
		}
		return models.FriendRequest{}, errors.Wrap(err, "DB_ERROR", "failed to load friend request", http.StatusInternalServerError)
	}
	return req, nil
}

// DeleteRequest removes a request from the recipient's sub-collection.
func (g *MongoSocialGraph) DeleteRequest(ctx context.Context, toUserID, requestID string) error {
	result, err := g.requests.DeleteOne(ctx, bson.M{"_id": requestID, "toUserId": toUserID})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete friend request", http.StatusInternalServerError)
	}
	if result.DeletedCount == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// HasPendingRequest reports whether fromID already has a pending request to
// toID. Application-level pre-check, not a uniqueness constraint.
func (g *MongoSocialGraph) HasPendingRequest(ctx context.Context, fromID, toID string) (bool, error) {
	count, err := g.requests.CountDocuments(ctx, bson.M{
		"fromUserId": fromID,
		"toUserId":   toID,
		"status":     models.RequestPending,
	})
	if err != nil {
		return false, errors.Wrap(err, "DB_ERROR", "failed to check pending request", http.StatusInternalServerError)
	}
	return count > 0, nil
}

// ListPendingRequests returns the recipient's pending requests, newest first.
func (g *MongoSocialGraph) ListPendingRequests(ctx context.Context, toUserID string) ([]models.FriendRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := g.requests.Find(ctx, bson.M{"toUserId": toUserID, "status": models.RequestPending}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list friend requests", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var requests []models.FriendRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to decode friend requests", http.StatusInternalServerError)
	}
	return requests, nil
}
