package models

import "time"

// DefaultAvatarURL is served when a rider has no uploaded profile photo,
// including when an avatar upload fails during profile setup.
const DefaultAvatarURL = "/media/avatars/default/rider.png"

// User is the rider profile document. The ID is the identity id issued at
// sign-up; the profile itself is created later, when setup completes.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Handle    string    `json:"handle" bson:"handle"`
	Name      string    `json:"name" bson:"name"`
	AvatarURL string    `json:"avatar_url" bson:"avatarUrl"`
	Bio       string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Blocked   []string  `json:"blocked,omitempty" bson:"blocked"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// HasBlocked reports whether the user has put otherID on their block list.
func (u User) HasBlocked(otherID string) bool {
	for _, id := range u.Blocked {
		if id == otherID {
			return true
		}
	}
	return false
}

// Identity is a sign-in credential record. It exists before (and without) a
// profile; its ID is the stable user id everything else is keyed by.
type Identity struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Name         string    `json:"name" bson:"name"`
	PhotoURL     string    `json:"photo_url,omitempty" bson:"photoUrl,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"createdAt"`
}
