package services

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// startsAtDesc orders query results the way every feed arm wants them.
var startsAtDesc = options.Find().SetSort(bson.D{{Key: "startsAt", Value: -1}})

// EventService manages ride documents: lifecycle mutations plus the
// per-visibility queries the feed engine composes.
type EventService struct {
	collection *mongo.Collection
}

func NewEventService(db *mongo.Database) *EventService {
	return &EventService{collection: db.Collection("events")}
}

// CreateEventParams carries the caller-supplied fields for a new ride.
type CreateEventParams struct {
	Title          string
	Description    string
	Visibility     models.EventVisibility
	StartsAt       time.Time
	EndsAt         time.Time
	LocationName   string
	LocationCoords *models.LocationCoords
	Invited        []string
}

func validateCreateEvent(params CreateEventParams) error {
	if params.Title == "" || params.Description == "" || params.LocationName == "" {
		return errors.ErrInvalidInput
	}
	if !params.Visibility.Valid() {
		return errors.NewAPIError("INVALID_VISIBILITY", "Visibility must be public, friends or invite", http.StatusBadRequest)
	}
	if !params.EndsAt.After(params.StartsAt) {
		return errors.NewAPIError("INVALID_TIMES", "Event must end after it starts", http.StatusBadRequest)
	}
	return nil
}

// Create inserts a new ride. The caller becomes creator and sole initial
// participant.
func (s *EventService) Create(ctx context.Context, userID string, params CreateEventParams) (models.Event, error) {
	if err := validateCreateEvent(params); err != nil {
		return models.Event{}, err
	}

	var invited []string
	if params.Visibility == models.VisibilityInvite {
		invited = params.Invited
	}

	now := time.Now().UTC()
	event := models.Event{
		ID:             uuid.New().String(),
		Title:          params.Title,
		Description:    params.Description,
		Visibility:     params.Visibility,
		CreatedBy:      userID,
		StartsAt:       params.StartsAt.UTC(),
		EndsAt:         params.EndsAt.UTC(),
		LocationName:   params.LocationName,
		LocationCoords: params.LocationCoords,
		Participants:   []string{userID},
		Invited:        invited,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.collection.InsertOne(ctx, event); err != nil {
		return models.Event{}, errors.Wrap(err, "DB_ERROR", "failed to create event", http.StatusInternalServerError)
	}
	return event, nil
}

// GetByID loads one ride document.
func (s *EventService) GetByID(ctx context.Context, eventID string) (models.Event, error) {
	var event models.Event
	err := s.collection.FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Event{}, errors.ErrNotFound
		}
		return models.Event{}, errors.Wrap(err, "DB_ERROR", "failed to load event", http.StatusInternalServerError)
	}
	return event, nil
}

// UpdateEventParams carries the creator-editable fields. Nil means leave
// unchanged. CreatedBy and CreatedAt are immutable here; ownership moves
// only through TransferOwnership.
type UpdateEventParams struct {
	Title          *string
	Description    *string
	Visibility     *models.EventVisibility
	StartsAt       *time.Time
	EndsAt         *time.Time
	LocationName   *string
	LocationCoords *models.LocationCoords
}

// Update applies a partial field merge. Only the creator may edit.
func (s *EventService) Update(ctx context.Context, callerID, eventID string, params UpdateEventParams) (models.Event, error) {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if event.CreatedBy != callerID {
		return models.Event{}, errors.ErrPermissionDenied
	}

	set := bson.M{}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Visibility != nil {
		if !params.Visibility.Valid() {
			return models.Event{}, errors.NewAPIError("INVALID_VISIBILITY", "Visibility must be public, friends or invite", http.StatusBadRequest)
		}
		set["visibility"] = *params.Visibility
	}
	startsAt := event.StartsAt
	endsAt := event.EndsAt
	if params.StartsAt != nil {
		startsAt = params.StartsAt.UTC()
		set["startsAt"] = startsAt
	}
	if params.EndsAt != nil {
		endsAt = params.EndsAt.UTC()
		set["endsAt"] = endsAt
	}
	if !endsAt.After(startsAt) {
		return models.Event{}, errors.NewAPIError("INVALID_TIMES", "Event must end after it starts", http.StatusBadRequest)
	}
	if params.LocationName != nil {
		set["locationName"] = *params.LocationName
	}
	if params.LocationCoords != nil {
		set["locationCoords"] = *params.LocationCoords
	}
	if len(set) == 0 {
		return event, nil
	}

	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update); err != nil {
		return models.Event{}, errors.Wrap(err, "DB_ERROR", "failed to update event", http.StatusInternalServerError)
	}
	return s.GetByID(ctx, eventID)
}

// Delete removes a ride. Only the creator may delete.
func (s *EventService) Delete(ctx context.Context, callerID, eventID string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != callerID {
		return errors.ErrPermissionDenied
	}
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": eventID}); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to delete event", http.StatusInternalServerError)
	}
	return nil
}

// Join adds userID to the participant set. Safe to repeat.
func (s *EventService) Join(ctx context.Context, eventID, userID string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Visibility == models.VisibilityInvite && event.CreatedBy != userID && !event.IsInvited(userID) {
		return errors.ErrPermissionDenied
	}
	return s.updateParticipants(ctx, eventID, bson.M{"$addToSet": bson.M{"participants": userID}})
}

// Leave removes userID from the participant set. The creator cannot leave;
// ownership must be transferred first.
func (s *EventService) Leave(ctx context.Context, eventID, userID string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy == userID {
		return errors.NewAPIError("CREATOR_CANNOT_LEAVE", "Transfer ownership before leaving your own event", http.StatusConflict)
	}
	return s.updateParticipants(ctx, eventID, bson.M{"$pull": bson.M{"participants": userID}})
}

// RemoveParticipant lets the creator kick a non-creator participant.
func (s *EventService) RemoveParticipant(ctx context.Context, callerID, eventID, targetID string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != callerID {
		return errors.ErrPermissionDenied
	}
	if targetID == event.CreatedBy || targetID == callerID {
		return errors.ErrInvalidInput
	}
	return s.updateParticipants(ctx, eventID, bson.M{"$pull": bson.M{"participants": targetID}})
}

// TransferOwnership reassigns the creator to an existing participant.
func (s *EventService) TransferOwnership(ctx context.Context, callerID, eventID, targetID string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != callerID {
		return errors.ErrPermissionDenied
	}
	if !event.IsParticipant(targetID) {
		return errors.NewAPIError("NOT_PARTICIPANT", "New owner must already be a participant", http.StatusBadRequest)
	}

	update := bson.M{
		"$set":         bson.M{"createdBy": targetID},
		"$currentDate": bson.M{"updatedAt": true},
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to transfer ownership", http.StatusInternalServerError)
	}
	return nil
}

// Invite adds ids to the invited list of an invite-only ride.
func (s *EventService) Invite(ctx context.Context, callerID, eventID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return errors.ErrInvalidInput
	}
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != callerID {
		return errors.ErrPermissionDenied
	}
	if event.Visibility != models.VisibilityInvite {
		return errors.NewAPIError("NOT_INVITE_ONLY", "Only invite-only events have an invite list", http.StatusBadRequest)
	}

	update := bson.M{
		"$addToSet":    bson.M{"invited": bson.M{"$each": userIDs}},
		"$currentDate": bson.M{"updatedAt": true},
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to invite users", http.StatusInternalServerError)
	}
	return nil
}

// SetBanner records the banner image URL. Only the creator may change it.
func (s *EventService) SetBanner(ctx context.Context, callerID, eventID, bannerURL string) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != callerID {
		return errors.ErrPermissionDenied
	}

	update := bson.M{
		"$set":         bson.M{"bannerUrl": bannerURL},
		"$currentDate": bson.M{"updatedAt": true},
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to set banner", http.StatusInternalServerError)
	}
	return nil
}

func (s *EventService) updateParticipants(ctx context.Context, eventID string, update bson.M) error {
	update["$currentDate"] = bson.M{"updatedAt": true}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": eventID}, update); err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update participants", http.StatusInternalServerError)
	}
	return nil
}

// The four query arms below feed the visibility engine. Each is a single
// predicate query ordered by start time descending.

// PublicEvents returns all rides with visibility=public.
func (s *EventService) PublicEvents(ctx context.Context) ([]models.Event, error) {
	return s.find(ctx, bson.M{"visibility": models.VisibilityPublic})
}

// EventsByCreator returns all rides created by userID, any visibility.
func (s *EventService) EventsByCreator(ctx context.Context, userID string) ([]models.Event, error) {
	return s.find(ctx, bson.M{"createdBy": userID})
}

// InvitedEvents returns invite-only rides listing userID as invited.
func (s *EventService) InvitedEvents(ctx context.Context, userID string) ([]models.Event, error) {
	return s.find(ctx, bson.M{
		"visibility": models.VisibilityInvite,
		"invited":    userID,
	})
}

// FriendEvents returns one friend's rides visible to their friends.
// Invite-only rides are excluded; they surface only via the invited arm.
func (s *EventService) FriendEvents(ctx context.Context, friendID string) ([]models.Event, error) {
	return s.find(ctx, bson.M{
		"createdBy":  friendID,
		"visibility": bson.M{"$in": []models.EventVisibility{models.VisibilityPublic, models.VisibilityFriends}},
	})
}

func (s *EventService) find(ctx context.Context, filter bson.M) ([]models.Event, error) {
	cursor, err := s.collection.Find(ctx, filter, startsAtDesc)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "event query failed", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to decode events", http.StatusInternalServerError)
	}
	return events, nil
}
