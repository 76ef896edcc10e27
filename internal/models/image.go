package models

import (
	"time"

	"github.com/google/uuid"
)

// OriginalView is the view id that shows the active original photo.
const OriginalView = "original"

type UploadedImage struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Timestamp time.Time `json:"timestamp"`
}

type StagedImage struct {
	ID              uuid.UUID `json:"id"`
	OriginalImageID uuid.UUID `json:"original_image_id"`
	URL             string    `json:"url"`
	Description     string    `json:"description"`
	Style           string    `json:"style"`
	RoomType        string    `json:"room_type"`
	Model           string    `json:"model"`
	Timestamp       time.Time `json:"timestamp"`
}

// StagingAttempt is one row of the usage ledger.
type StagingAttempt struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id"`
	ImageID       uuid.UUID  `json:"image_id"`
	StagedImageID *uuid.UUID `json:"staged_image_id,omitempty"`
	Style         string     `json:"style"`
	RoomType      string     `json:"room_type"`
	Model         string     `json:"model"`
	Succeeded     bool       `json:"succeeded"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `json:"created_at"`
}
