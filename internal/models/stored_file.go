package models

import "time"

// StoredFile represents an uploaded image persisted to the uploads directory.
// It exists only for the lifetime of one processing request; the caller that
// accepted the upload is responsible for its eventual removal.
type StoredFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
