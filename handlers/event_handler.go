package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"letsride-server/middleware"
	"letsride-server/models"
	"letsride-server/services"
	"letsride-server/store"
	"letsride-server/utils/errors"
)

const maxBannerBytes = 10 << 20

type EventHandler struct {
	eventService  *services.EventService
	feedService   *services.FeedService
	friendService *services.FriendService
	mediaService  *services.MediaService
	registry      *store.Registry
}

func NewEventHandler(
	eventService *services.EventService,
	feedService *services.FeedService,
	friendService *services.FriendService,
	mediaService *services.MediaService,
	registry *store.Registry,
) *EventHandler {
	return &EventHandler{
		eventService:  eventService,
		feedService:   feedService,
		friendService: friendService,
		mediaService:  mediaService,
		registry:      registry,
	}
}

type createEventInput struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Visibility     models.EventVisibility `json:"visibility"`
	StartsAt       time.Time              `json:"starts_at"`
	EndsAt         time.Time              `json:"ends_at"`
	LocationName   string                 `json:"location_name"`
	LocationCoords *models.LocationCoords `json:"location_coords"`
	Invited        []string               `json:"invited"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input createEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if !input.EndsAt.After(input.StartsAt) {
		middleware.WriteError(w, errors.NewAPIError("INVALID_TIMES", "Event must end after it starts", http.StatusBadRequest))
		return
	}

	event, err := h.eventService.Create(r.Context(), userID, services.CreateEventParams{
		Title:          input.Title,
		Description:    input.Description,
		Visibility:     input.Visibility,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		LocationName:   input.LocationName,
		LocationCoords: input.LocationCoords,
		Invited:        input.Invited,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Events.Upsert(services.FeedEntry{Event: event})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

// Feed returns the filtered event list. Without an explicit filter the
// caller's last active filter is reused, defaulting to "all".
func (h *EventHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	session := h.registry.Session(userID)
	filter := models.EventFilter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = session.Events.Filter()
	}
	if !filter.Valid() {
		middleware.WriteError(w, errors.NewAPIError("INVALID_FILTER", "Unknown event filter", http.StatusBadRequest))
		return
	}

	entries, err := h.feedService.List(r.Context(), userID, filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	session.Events.SetEvents(entries, filter)

	response := map[string]any{
		"events": entries,
		"count":  len(entries),
		"filter": filter,
	}
	// The last-viewed event survives refetches so the client can restore
	// its detail view; deleting that event clears it.
	if selected := session.Events.Selected(); selected != "" {
		response["selected_event_id"] = selected
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Get returns one event, subject to its visibility tier.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	event, err := h.eventService.GetByID(r.Context(), eventID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.authorizeView(r, event, userID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Events.Select(event.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// authorizeView enforces the visibility tiers on direct reads: public is
// open, friends-only needs a friendship with the creator, invite-only needs
// an invitation. Creators and joined participants always pass.
func (h *EventHandler) authorizeView(r *http.Request, event models.Event, userID string) error {
	if event.CreatedBy == userID || event.IsParticipant(userID) {
		return nil
	}
	switch event.Visibility {
	case models.VisibilityPublic:
		return nil
	case models.VisibilityFriends:
		isFriend, err := h.friendService.AreFriends(r.Context(), event.CreatedBy, userID)
		if err != nil {
			return err
		}
		if !isFriend {
			return errors.ErrPermissionDenied
		}
		return nil
	case models.VisibilityInvite:
		if !event.IsInvited(userID) {
			return errors.ErrPermissionDenied
		}
		return nil
	default:
		return errors.ErrPermissionDenied
	}
}

type updateEventInput struct {
	Title          *string                 `json:"title"`
	Description    *string                 `json:"description"`
	Visibility     *models.EventVisibility `json:"visibility"`
	StartsAt       *time.Time              `json:"starts_at"`
	EndsAt         *time.Time              `json:"ends_at"`
	LocationName   *string                 `json:"location_name"`
	LocationCoords *models.LocationCoords  `json:"location_coords"`
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	var input updateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	event, err := h.eventService.Update(r.Context(), userID, eventID, services.UpdateEventParams{
		Title:          input.Title,
		Description:    input.Description,
		Visibility:     input.Visibility,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		LocationName:   input.LocationName,
		LocationCoords: input.LocationCoords,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Events.Upsert(services.FeedEntry{Event: event})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	if err := h.eventService.Delete(r.Context(), userID, eventID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Events.Remove(eventID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "event_id": eventID})
}

func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.participantOp(w, r, h.eventService.Join, "joined")
}

func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.participantOp(w, r, h.eventService.Leave, "left")
}

func (h *EventHandler) participantOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, eventID, userID string) error, status string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	if err := op(r.Context(), eventID, userID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status, "event_id": eventID})
}

func (h *EventHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	var input struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.eventService.Invite(r.Context(), userID, eventID, input.UserIDs); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "invited", "event_id": eventID, "count": len(input.UserIDs)})
}

func (h *EventHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	var input struct {
		ToUserID string `json:"to_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ToUserID == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.eventService.TransferOwnership(r.Context(), userID, eventID, input.ToUserID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "transferred", "event_id": eventID, "new_owner": input.ToUserID})
}

func (h *EventHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	vars := mux.Vars(r)

	if err := h.eventService.RemoveParticipant(r.Context(), userID, vars["id"], vars["userId"]); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "removed", "event_id": vars["id"], "user_id": vars["userId"]})
}

// UploadBanner stores a banner image for the event and records its URL.
func (h *EventHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	eventID := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxBannerBytes); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	defer file.Close()

	bannerURL, err := h.mediaService.UploadEventImage(eventID, file)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.eventService.SetBanner(r.Context(), userID, eventID, bannerURL); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "uploaded", "event_id": eventID, "banner_url": bannerURL})
}
