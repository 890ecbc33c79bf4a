package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"letsride-server/middleware"
	"letsride-server/services"
	"letsride-server/utils/errors"
	"letsride-server/utils/validation"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	userService  *services.UserService
	mediaService *services.MediaService
}

func NewUserHandler(userService *services.UserService, mediaService *services.MediaService) *UserHandler {
	return &UserHandler{userService: userService, mediaService: mediaService}
}

// SetupProfile completes profile setup: handle, name, optional bio and an
// optional avatar upload. A failed avatar upload falls back to the default
// avatar instead of aborting setup.
func (h *UserHandler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	params := services.CreateProfileParams{
		Handle: r.FormValue("handle"),
		Name:   r.FormValue("name"),
		Bio:    r.FormValue("bio"),
	}

	if file, _, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		avatarURL, uploadErr := h.mediaService.UploadAvatar(userID, file)
		if uploadErr != nil {
			log.Printf("Avatar upload failed during setup for %s, using default: %v", userID, uploadErr)
		} else {
			params.AvatarURL = avatarURL
		}
	}

	user, err := h.userService.CreateProfile(r.Context(), userID, params)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var input struct {
		Name      *string `json:"name"`
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.UpdateProfileParams{
		Name:      input.Name,
		Bio:       input.Bio,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UploadAvatar replaces the caller's profile photo.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	defer file.Close()

	avatarURL, err := h.mediaService.UploadAvatar(userID, file)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.UpdateProfileParams{AvatarURL: &avatarURL})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// GetByHandle returns another rider's public profile. A rider who blocked
// the caller reads as private.
func (h *UserHandler) GetByHandle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	handle := mux.Vars(r)["handle"]

	user, err := h.userService.GetByHandle(r.Context(), handle)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if user.ID != userID && user.HasBlocked(userID) {
		middleware.WriteError(w, errors.ErrPermissionDenied)
		return
	}

	// Block lists are never shown to other users.
	if user.ID != userID {
		user.Blocked = nil
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// CheckHandle reports format validity and availability for live input.
func (h *UserHandler) CheckHandle(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")

	result := validation.ValidateHandleFormat(handle)
	response := map[string]any{
		"handle":   handle,
		"is_valid": result.IsValid,
	}
	if !result.IsValid {
		response["error"] = result.Error
		response["available"] = false
	} else {
		available, err := h.userService.IsHandleAvailable(r.Context(), handle)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		response["available"] = available
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// SuggestHandles derives candidate handles from a display name. Suggestions
// still need the availability check before use.
func (h *UserHandler) SuggestHandles(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	suggestions := validation.GenerateHandleSuggestions(name)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"suggestions": suggestions})
}

func (h *UserHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.updateBlock(w, r, h.userService.BlockUser, "blocked")
}

func (h *UserHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.updateBlock(w, r, h.userService.UnblockUser, "unblocked")
}

func (h *UserHandler) updateBlock(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, blockedID string) error, status string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	targetID := mux.Vars(r)["id"]

	if err := op(r.Context(), userID, targetID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status, "user_id": targetID})
}
