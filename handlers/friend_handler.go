package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"letsride-server/middleware"
	"letsride-server/models"
	"letsride-server/services"
	"letsride-server/store"
	"letsride-server/utils/errors"
)

type FriendHandler struct {
	friendService *services.FriendService
	userService   *services.UserService
	registry      *store.Registry
}

func NewFriendHandler(friendService *services.FriendService, userService *services.UserService, registry *store.Registry) *FriendHandler {
	return &FriendHandler{friendService: friendService, userService: userService, registry: registry}
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input struct {
		ToHandle string `json:"to_handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ToHandle == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	req, err := h.friendService.SendRequest(r.Context(), userID, input.ToHandle)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(req)
}

// pendingRequest is a request joined with its sender's public profile so the
// people screen can render who is asking.
type pendingRequest struct {
	models.FriendRequest
	SenderHandle    string `json:"sender_handle,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`
	SenderAvatarURL string `json:"sender_avatar_url,omitempty"`
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	requests, err := h.friendService.ListPendingRequests(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	enriched := make([]pendingRequest, 0, len(requests))
	for _, req := range requests {
		entry := pendingRequest{FriendRequest: req}
		sender, err := h.userService.GetByID(r.Context(), req.FromUserID)
		if err != nil {
			log.Printf("Failed to load sender %s for request %s: %v", req.FromUserID, req.ID, err)
		} else {
			entry.SenderHandle = sender.Handle
			entry.SenderName = sender.Name
			entry.SenderAvatarURL = sender.AvatarURL
		}
		enriched = append(enriched, entry)
	}

	h.registry.Session(userID).Friends.SetRequests(requests)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"requests": enriched, "count": len(enriched)})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	requestID := mux.Vars(r)["id"]

	if err := h.friendService.AcceptRequest(r.Context(), userID, requestID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Friends.RemoveRequest(requestID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "request_id": requestID})
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	requestID := mux.Vars(r)["id"]

	if err := h.friendService.RejectRequest(r.Context(), userID, requestID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Friends.RemoveRequest(requestID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "rejected", "request_id": requestID})
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	friends, err := h.friendService.GetFriends(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Friends.SetFriends(friends)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"friends": friends, "count": len(friends)})
}

func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	friendID := mux.Vars(r)["id"]

	if err := h.friendService.RemoveFriend(r.Context(), userID, friendID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	h.registry.Session(userID).Friends.RemoveFriend(friendID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "removed", "friend_id": friendID})
}
