package models

// MediaType distinguishes chat media uploads. It picks the stored file
// extension.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)
