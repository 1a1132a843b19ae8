package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/models"
	"github.com/adarshn/notebox/internal/server/repositories/notes"
	"github.com/adarshn/notebox/internal/server/repositories/repomanager"
)

const (
	defaultNotePageLimit = 10
	maxNotePageLimit     = 100
)

// noteSortColumns whitelists sortBy values (API spelling and column spelling)
// against the actual columns.
var noteSortColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
	"title":      "title",
	"isPinned":   "is_pinned",
	"is_pinned":  "is_pinned",
}

// ListOptions carries raw pagination/sort/filter input from the transport
// layer; NoteService normalizes it before querying.
type ListOptions struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
}

// NoteService implements note CRUD with the owner-only mutation policy.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager) *NoteService {
	return &NoteService{db: db, repomanager: m}
}

// Create stores a new note owned by ownerID.
func (s *NoteService) Create(ctx context.Context, ownerID, title, description string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", common.ErrValidation)
	}

	repo := s.repomanager.Notes(s.db)

	note, err := repo.Create(ctx, &models.Note{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating note: %w", err)
	}
	return note, nil
}

// authorizeOwner is the shared policy for single-note mutations: validate
// the id, confirm the note exists before touching it, then confirm the
// caller owns it.
func (s *NoteService) authorizeOwner(ctx context.Context, repo notes.Repository, noteID, ownerID string) (*models.Note, error) {
	if _, err := uuid.Parse(noteID); err != nil {
		return nil, fmt.Errorf("%w: invalid note id", common.ErrValidation)
	}

	note, err := repo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: note not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error looking up note: %w", err)
	}

	if note.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: you are not authorized to modify this note", common.ErrForbidden)
	}
	return note, nil
}

// Update patches the note's title/description/pinned flag. The owner field
// is not part of the update surface and can never change.
func (s *NoteService) Update(ctx context.Context, noteID, ownerID string, title, description *string, isPinned *bool) (*models.Note, error) {
	repo := s.repomanager.Notes(s.db)

	if _, err := s.authorizeOwner(ctx, repo, noteID, ownerID); err != nil {
		return nil, err
	}

	if title == nil && description == nil {
		return nil, fmt.Errorf("%w: title or description is required", common.ErrValidation)
	}

	updated, err := repo.Update(ctx, noteID, title, description, isPinned)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: note not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating note: %w", err)
	}
	return updated, nil
}

// Delete removes the note permanently; there is no soft delete.
func (s *NoteService) Delete(ctx context.Context, noteID, ownerID string) error {
	repo := s.repomanager.Notes(s.db)

	if _, err := s.authorizeOwner(ctx, repo, noteID, ownerID); err != nil {
		return err
	}

	if err := repo.Delete(ctx, noteID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: note not found", common.ErrNotFound)
		}
		return fmt.Errorf("error deleting note: %w", err)
	}
	return nil
}

// SetPinned toggles the pinned flag. Setting the same value twice is
// idempotent.
func (s *NoteService) SetPinned(ctx context.Context, noteID, ownerID string, pinned bool) (*models.Note, error) {
	repo := s.repomanager.Notes(s.db)

	if _, err := s.authorizeOwner(ctx, repo, noteID, ownerID); err != nil {
		return nil, err
	}

	note, err := repo.SetPinned(ctx, noteID, pinned)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: note not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating pinned state: %w", err)
	}
	return note, nil
}

// List returns the owner's notes joined with the owner summary, filtered,
// sorted and paginated. An empty page is reported as not found.
func (s *NoteService) List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.NoteWithOwner, error) {
	params := normalizeListOptions(opts)

	repo := s.repomanager.Notes(s.db)

	items, err := repo.ListByOwner(ctx, ownerID, params)
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no notes found", common.ErrNotFound)
	}
	return items, nil
}

// Search returns the owner's notes whose title matches the query.
func (s *NoteService) Search(ctx context.Context, ownerID, query string, page, limit int) ([]*models.Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", common.ErrValidation)
	}

	params := normalizeListOptions(ListOptions{Page: page, Limit: limit})

	repo := s.repomanager.Notes(s.db)

	items, err := repo.SearchByOwner(ctx, ownerID, strings.TrimSpace(query), params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("error searching notes: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no notes found matching the query", common.ErrNotFound)
	}
	return items, nil
}

// Get loads a single note with the owner populated, scoped to the caller so
// other users' notes read as not found.
func (s *NoteService) Get(ctx context.Context, noteID, ownerID string) (*models.NoteWithOwner, error) {
	if _, err := uuid.Parse(noteID); err != nil {
		return nil, fmt.Errorf("%w: invalid note id", common.ErrValidation)
	}

	repo := s.repomanager.Notes(s.db)

	note, err := repo.GetWithOwner(ctx, noteID, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: note not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error looking up note: %w", err)
	}
	return note, nil
}

func normalizeListOptions(opts ListOptions) notes.ListParams {
	page := opts.Page
	if page < 1 {
		page = 1
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNotePageLimit
	}
	if limit > maxNotePageLimit {
		limit = maxNotePageLimit
	}

	sortBy, ok := noteSortColumns[opts.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	return notes.ListParams{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Query:    strings.TrimSpace(opts.Query),
		SortBy:   sortBy,
		SortDesc: opts.SortType != "asc",
	}
}
