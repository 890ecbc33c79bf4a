package services

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letsride-server/models"
	"letsride-server/utils/errors"
)

// MediaService stores uploaded blobs in GridFS under logical paths and hands
// back stable retrieval URLs served by the media handler.
type MediaService struct {
	bucket *gridfs.Bucket
}

func NewMediaService(db *mongo.Database) (*MediaService, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("media"))
	if err != nil {
		return nil, errors.Wrap(err, "STORAGE_ERROR", "failed to open media bucket", http.StatusInternalServerError)
	}
	return &MediaService{bucket: bucket}, nil
}

// AvatarPath builds the storage path for a profile photo.
func AvatarPath(userID string, ts time.Time) string {
	return fmt.Sprintf("media/avatars/%s/profile_%d.jpg", userID, ts.UnixMilli())
}

// EventImagePath builds the storage path for an event banner.
func EventImagePath(eventID string, ts time.Time) string {
	return fmt.Sprintf("media/events/%s/event_%d.jpg", eventID, ts.UnixMilli())
}

// ChatMediaPath builds the storage path for chat media. The extension
// follows the media type.
func ChatMediaPath(chatID, messageID string, mediaType models.MediaType, ts time.Time) string {
	ext := "jpg"
	if mediaType == models.MediaVideo {
		ext = "mp4"
	}
	return fmt.Sprintf("media/chats/%s/%s/%s_%d.%s", chatID, messageID, mediaType, ts.UnixMilli(), ext)
}

// UploadAvatar stores a profile photo and returns its URL.
func (s *MediaService) UploadAvatar(userID string, src io.Reader) (string, error) {
	return s.upload(AvatarPath(userID, time.Now()), src)
}

// UploadEventImage stores an event banner and returns its URL.
func (s *MediaService) UploadEventImage(eventID string, src io.Reader) (string, error) {
	return s.upload(EventImagePath(eventID, time.Now()), src)
}

// UploadChatMedia stores chat media and returns its URL.
func (s *MediaService) UploadChatMedia(chatID, messageID string, mediaType models.MediaType, src io.Reader) (string, error) {
	if mediaType != models.MediaImage && mediaType != models.MediaVideo {
		return "", errors.ErrInvalidInput
	}
	return s.upload(ChatMediaPath(chatID, messageID, mediaType, time.Now()), src)
}

func (s *MediaService) upload(path string, src io.Reader) (string, error) {
	if _, err := s.bucket.UploadFromStream(path, src); err != nil {
		return "", errors.Wrap(err, "STORAGE_ERROR", "failed to store media", http.StatusInternalServerError)
	}
	return "/" + path, nil
}

// Download streams the blob stored at path into w.
func (s *MediaService) Download(path string, w io.Writer) error {
	if _, err := s.bucket.DownloadToStreamByName(path, w); err != nil {
		if err == gridfs.ErrFileNotFound {
			return errors.ErrNotFound
		}
		return errors.Wrap(err, "STORAGE_ERROR", "failed to read media", http.StatusInternalServerError)
	}
	return nil
}
