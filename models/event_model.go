package models

import "time"

// EventVisibility is the declared audience scope of a ride.
type EventVisibility string

const (
	VisibilityPublic  EventVisibility = "public"
	VisibilityFriends EventVisibility = "friends"
	VisibilityInvite  EventVisibility = "invite"
)

// Valid reports whether v is one of the three known tiers.
func (v EventVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityInvite:
		return true
	}
	return false
}

// EventFilter selects which slice of the feed a rider is looking at.
type EventFilter string

const (
	FilterAll      EventFilter = "all"
	FilterPublic   EventFilter = "public"
	FilterFriends  EventFilter = "friends"
	FilterInvited  EventFilter = "invited"
	FilterMyEvents EventFilter = "myEvents"
)

// Valid reports whether f is a known feed filter.
func (f EventFilter) Valid() bool {
	switch f {
	case FilterAll, FilterPublic, FilterFriends, FilterInvited, FilterMyEvents:
		return true
	}
	return false
}

// LocationCoords is an optional lat/lng pair for the meeting point.
type LocationCoords struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Event is a ride document. CreatedBy is immutable after creation except
// through ownership transfer. The creator is always a participant and the
// invited list only matters for visibility=invite.
type Event struct {
	ID             string          `json:"id" bson:"_id"`
	Title          string          `json:"title" bson:"title"`
	Description    string          `json:"description" bson:"description"`
	Visibility     EventVisibility `json:"visibility" bson:"visibility"`
	CreatedBy      string          `json:"created_by" bson:"createdBy"`
	StartsAt       time.Time       `json:"starts_at" bson:"startsAt"`
	EndsAt         time.Time       `json:"ends_at" bson:"endsAt"`
	LocationName   string          `json:"location_name" bson:"locationName"`
	LocationCoords *LocationCoords `json:"location_coords,omitempty" bson:"locationCoords,omitempty"`
	Participants   []string        `json:"participants" bson:"participants"`
	Invited        []string        `json:"invited,omitempty" bson:"invited,omitempty"`
	BannerURL      string          `json:"banner_url,omitempty" bson:"bannerUrl,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"createdAt"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updatedAt"`
}

// IsParticipant reports whether userID has joined the event.
func (e Event) IsParticipant(userID string) bool {
	for _, id := range e.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// IsInvited reports whether userID is on the invite list.
func (e Event) IsInvited(userID string) bool {
	for _, id := range e.Invited {
		if id == userID {
			return true
		}
	}
	return false
}
