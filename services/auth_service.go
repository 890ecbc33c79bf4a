package services

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// AuthService manages sign-in identities. An identity is created at
// registration and is the source of the stable user id; the rider profile
// is created separately when profile setup completes.
type AuthService struct {
	identities *mongo.Collection
	jwtSecret  string
}

func NewAuthService(db *mongo.Database, jwtSecret string) *AuthService {
	return &AuthService{
		identities: db.Collection("identities"),
		jwtSecret:  jwtSecret,
	}
}

// Register creates a new identity and returns its id.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (string, error) {
	if email == "" || name == "" || len(password) < 8 {
		return "", errors.ErrInvalidInput
	}

	count, err := s.identities.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return "", errors.Wrap(err, "DB_ERROR", "failed to check existing email", http.StatusInternalServerError)
	}
	if count > 0 {
		return "", errors.NewAPIError("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	identity := models.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(passwordHash),
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.identities.InsertOne(ctx, identity); err != nil {
		return "", errors.Wrap(err, "DB_ERROR", "failed to create identity", http.StatusInternalServerError)
	}

	return identity.ID, nil
}

// Login authenticates an identity and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var identity models.Identity
	err := s.identities.FindOne(ctx, bson.M{"email": email}).Decode(&identity)
	if err != nil {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return "", errors.NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID": identity.ID,
		"name":   identity.Name,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}

	return tokenString, nil
}

// GetIdentity returns the identity for a user id. Used during profile setup
// to prefill the display name.
func (s *AuthService) GetIdentity(ctx context.Context, userID string) (models.Identity, error) {
	var identity models.Identity
	err := s.identities.FindOne(ctx, bson.M{"_id": userID}).Decode(&identity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Identity{}, errors.ErrNotFound
		}
		return models.Identity{}, errors.Wrap(err, "DB_ERROR", "failed to load identity", http.StatusInternalServerError)
	}
	return identity, nil
}
