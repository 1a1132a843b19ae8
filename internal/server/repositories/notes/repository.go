// Package notes provides the repository for persisted note documents.
package notes

import (
	"context"

	"github.com/adarshn/notebox/internal/server/models"
)

// ListParams controls owner-scoped listing. SortBy must already be a valid
// column name (the service whitelists it); Query filters title/description
// case-insensitively when non-empty.
type ListParams struct {
	Limit    int
	Offset   int
	Query    string
	SortBy   string
	SortDesc bool
}

// Repository is the persistence contract for notes. Implementations return
// common.ErrNotFound for missing rows. Owner is set at creation and no
// operation can change it.
type Repository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	// GetWithOwner loads a note scoped to its owner, with the owner summary
	// populated.
	GetWithOwner(ctx context.Context, id, ownerID string) (*models.NoteWithOwner, error)
	// Update patches title/description/pinned; nil fields keep their stored
	// values.
	Update(ctx context.Context, id string, title, description *string, isPinned *bool) (*models.Note, error)
	Delete(ctx context.Context, id string) error
	SetPinned(ctx context.Context, id string, pinned bool) (*models.Note, error)
	ListByOwner(ctx context.Context, ownerID string, p ListParams) ([]*models.NoteWithOwner, error)
	SearchByOwner(ctx context.Context, ownerID, query string, limit, offset int) ([]*models.Note, error)
}
