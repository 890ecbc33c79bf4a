package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letsride-server/models"
	"letsride-server/utils/errors"
	"letsride-server/utils/validation"
)

const userCacheTTL = 24 * time.Hour

// UserService manages rider profile documents, keyed by identity id.
// Profiles are mutated by the owning user only.
type UserService struct {
	collection  *mongo.Collection
	redisClient *redis.Client
}

func NewUserService(db *mongo.Database, redisClient *redis.Client) *UserService {
	collection := db.Collection("users")

	// Ensure unique index on handle
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "handle", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := collection.Indexes().CreateOne(context.Background(), indexModel)
	if err != nil {
		log.Printf("Failed to create unique index on users.handle: %v", err)
	}

	return &UserService{
		collection:  collection,
		redisClient: redisClient,
	}
}

// CreateProfileParams carries the fields chosen at profile-setup completion.
type CreateProfileParams struct {
	Handle    string
	Name      string
	AvatarURL string
	Bio       string
}

// CreateProfile creates the rider profile for userID. The handle must pass
// format validation and must not already be taken.
func (s *UserService) CreateProfile(ctx context.Context, userID string, params CreateProfileParams) (models.User, error) {
	if userID == "" || params.Name == "" {
		return models.User{}, errors.ErrInvalidInput
	}
	if res := validation.ValidateHandleFormat(params.Handle); !res.IsValid {
		return models.User{}, errors.NewAPIError("INVALID_HANDLE", res.Error, http.StatusBadRequest)
	}

	available, err := s.IsHandleAvailable(ctx, params.Handle)
	if err != nil {
		return models.User{}, err
	}
	if !available {
		return models.User{}, errors.NewAPIError("HANDLE_TAKEN", "This handle is already in use", http.StatusConflict)
	}

	avatarURL := params.AvatarURL
	if avatarURL == "" {
		avatarURL = models.DefaultAvatarURL
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        userID,
		Handle:    params.Handle,
		Name:      params.Name,
		AvatarURL: avatarURL,
		Bio:       params.Bio,
		Blocked:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, errors.NewAPIError("HANDLE_TAKEN", "This handle is already in use", http.StatusConflict)
		}
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to create profile", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// GetByID retrieves a profile from Redis or MongoDB.
func (s *UserService) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	// Check Redis first
	userJSON, err := s.redisClient.Get(ctx, "user:"+userID).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			log.Printf("Failed to unmarshal cached user %s: %v", userID, err)
		} else {
			return user, nil
		}
	}

	err = s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, errors.ErrNotFound
		}
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to load profile", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// GetByHandle resolves a handle to a profile via the secondary handle index.
func (s *UserService) GetByHandle(ctx context.Context, handle string) (models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"handle": handle}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, errors.ErrNotFound
		}
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to look up handle", http.StatusInternalServerError)
	}
	return user, nil
}

// IsHandleAvailable reports whether no profile currently owns the handle.
func (s *UserService) IsHandleAvailable(ctx context.Context, handle string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"handle": handle})
	if err != nil {
		return false, errors.Wrap(err, "DB_ERROR", "failed to check handle", http.StatusInternalServerError)
	}
	return count == 0, nil
}

// UpdateProfileParams carries the owner-editable profile fields. Nil means
// leave unchanged.
type UpdateProfileParams struct {
	Name      *string
	Bio       *string
	AvatarURL *string
}

// UpdateProfile applies a partial update to the caller's own profile.
// Handle, id and creation timestamp are immutable.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (models.User, error) {
	set := bson.M{}
	if params.Name != nil {
		if *params.Name == "" {
			return models.User{}, errors.ErrInvalidInput
		}
		set["name"] = *params.Name
	}
	if params.Bio != nil {
		set["bio"] = *params.Bio
	}
	if params.AvatarURL != nil {
		set["avatarUrl"] = *params.AvatarURL
	}
	if len(set) == 0 {
		return s.GetByID(ctx, userID)
	}

	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return models.User{}, errors.Wrap(err, "DB_ERROR", "failed to update profile", http.StatusInternalServerError)
	}
	if result.MatchedCount == 0 {
		return models.User{}, errors.ErrNotFound
	}

	s.invalidateUser(ctx, userID)
	return s.GetByID(ctx, userID)
}

// BlockUser adds blockedID to the caller's block list. Idempotent.
func (s *UserService) BlockUser(ctx context.Context, userID, blockedID string) error {
	if userID == blockedID {
		return errors.ErrInvalidInput
	}
	return s.updateBlockList(ctx, userID, bson.M{"$addToSet": bson.M{"blocked": blockedID}})
}

// UnblockUser removes blockedID from the caller's block list. Idempotent.
func (s *UserService) UnblockUser(ctx context.Context, userID, blockedID string) error {
	return s.updateBlockList(ctx, userID, bson.M{"$pull": bson.M{"blocked": blockedID}})
}

func (s *UserService) updateBlockList(ctx context.Context, userID string, update bson.M) error {
	update["$currentDate"] = bson.M{"updatedAt": true}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update block list", http.StatusInternalServerError)
	}
	if result.MatchedCount == 0 {
		return errors.ErrNotFound
	}
	s.invalidateUser(ctx, userID)
	return nil
}

func (s *UserService) cacheUser(ctx context.Context, user models.User) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		log.Printf("Failed to marshal user %s for cache: %v", user.ID, err)
		return
	}
	if err := s.redisClient.Set(ctx, "user:"+user.ID, userJSON, userCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache user %s: %v", user.ID, err)
	}
}

func (s *UserService) invalidateUser(ctx context.Context, userID string) {
	if err := s.redisClient.Del(ctx, "user:"+userID).Err(); err != nil {
		log.Printf("Failed to invalidate cached user %s: %v", userID, err)
	}
}
