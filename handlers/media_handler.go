package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"letsride-server/middleware"
	"letsride-server/models"
	"letsride-server/services"
	"letsride-server/utils/errors"
)

const maxChatMediaBytes = 25 << 20

type MediaHandler struct {
	mediaService *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// Serve streams a stored blob. URLs handed out by the upload endpoints all
// point here.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	mediaPath := "media/" + mux.Vars(r)["path"]
	if strings.Contains(mediaPath, "..") {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(mediaPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if err := h.mediaService.Download(mediaPath, w); err != nil {
		middleware.WriteError(w, err)
		return
	}
}

// UploadChatMedia stores an image or video for a chat message and returns
// its URL. Chat itself is not live yet; media pathing already is.
func (h *MediaHandler) UploadChatMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserID(r.Context()); !ok {
		middleware.WriteError(w, errors.ErrUnauthorized)
		return
	}
	vars := mux.Vars(r)

	if err := r.ParseMultipartForm(maxChatMediaBytes); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	defer file.Close()

	mediaType := models.MediaType(r.FormValue("type"))
	url, err := h.mediaService.UploadChatMedia(vars["chatId"], vars["messageId"], mediaType, file)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"media_url": url})
}
