package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/dbx"
	"github.com/adarshn/notebox/internal/server/models"
)

const noteColumns = `id, title, description, is_pinned, owner_id, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanNote(row *sql.Row) (*models.Note, error) {
	note := &models.Note{}
	err := row.Scan(&note.ID, &note.Title, &note.Description, &note.IsPinned,
		&note.OwnerID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (id, title, description, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + noteColumns

	return scanNote(r.db.QueryRowContext(ctx, query,
		note.ID, note.Title, note.Description, note.OwnerID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	return scanNote(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetWithOwner(ctx context.Context, id, ownerID string) (*models.NoteWithOwner, error) {
	query := `
		SELECT n.id, n.title, n.description, n.is_pinned, n.owner_id,
			n.created_at, n.updated_at,
			u.id, u.username, u.fullname, u.avatar_url
		FROM notes n
		JOIN users u ON u.id = n.owner_id
		WHERE n.id = $1 AND n.owner_id = $2
	`

	item := &models.NoteWithOwner{Owner: &models.OwnerSummary{}}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&item.ID, &item.Title, &item.Description, &item.IsPinned,
		&item.OwnerID, &item.CreatedAt, &item.UpdatedAt,
		&item.Owner.ID, &item.Owner.Username, &item.Owner.Fullname, &item.Owner.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, title, description *string, isPinned *bool) (*models.Note, error) {
	query := `
		UPDATE notes
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			is_pinned = COALESCE($4, is_pinned),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + noteColumns

	return scanNote(r.db.QueryRowContext(ctx, query, id, title, description, isPinned))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM notes WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetPinned(ctx context.Context, id string, pinned bool) (*models.Note, error) {
	query := `
		UPDATE notes
		SET is_pinned = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + noteColumns

	return scanNote(r.db.QueryRowContext(ctx, query, id, pinned))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, p ListParams) ([]*models.NoteWithOwner, error) {
	dir := "ASC"
	if p.SortDesc {
		dir = "DESC"
	}

	// p.SortBy comes from the service-side whitelist, never from raw input.
	query := fmt.Sprintf(`
		SELECT n.id, n.title, n.description, n.is_pinned, n.owner_id,
			n.created_at, n.updated_at,
			u.id, u.username, u.fullname, u.avatar_url
		FROM notes n
		JOIN users u ON u.id = n.owner_id
		WHERE n.owner_id = $1
			AND ($2 = '' OR n.title ILIKE '%%' || $2 || '%%' OR n.description ILIKE '%%' || $2 || '%%')
		ORDER BY n.%s %s
		LIMIT $3 OFFSET $4
	`, p.SortBy, dir)

	rows, err := r.db.QueryContext(ctx, query, ownerID, p.Query, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.NoteWithOwner
	for rows.Next() {
		item := &models.NoteWithOwner{Owner: &models.OwnerSummary{}}
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &item.IsPinned,
			&item.OwnerID, &item.CreatedAt, &item.UpdatedAt,
			&item.Owner.ID, &item.Owner.Username, &item.Owner.Fullname, &item.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) SearchByOwner(ctx context.Context, ownerID, query string, limit, offset int) ([]*models.Note, error) {
	q := `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE owner_id = $1 AND title ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, q, ownerID, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*models.Note
	for rows.Next() {
		note := &models.Note{}
		if err := rows.Scan(&note.ID, &note.Title, &note.Description, &note.IsPinned,
			&note.OwnerID, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}
