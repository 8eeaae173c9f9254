package models

import (
	"time"

	"github.com/google/uuid"
)

// Attachment represents an image archived with a user turn
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	MessageID   int64     `json:"message_id"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
