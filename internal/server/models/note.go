package models

import "time"

// Note is a personal note document. OwnerID is set at creation and never
// reassigned.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPinned    bool      `json:"isPinned"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NoteWithOwner joins a note with its owner's summary for list responses.
type NoteWithOwner struct {
	Note
	Owner *OwnerSummary `json:"owner"`
}
