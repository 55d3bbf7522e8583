package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// tagRepository implements tag data access
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *sql.DB) *tagRepository {
	return &tagRepository{
		db: db,
	}
}

// Create inserts a new tag and sets its generated id
func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (name, slug, created_at, updated_at)
		VALUES (?, ?, NOW(), NOW())
	`

	result, err := r.db.ExecContext(ctx, query, tag.Name, tag.Slug)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted tag id: %w", err)
	}
	tag.ID = id

	return nil
}

// GetByName retrieves a tag by its unique name
func (r *tagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM tags WHERE name = ? LIMIT 1`

	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&tag.ID,
		&tag.Name,
		&tag.Slug,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}

	return tag, nil
}

// List returns all tags ordered by name
func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM tags ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// ListByMediaID returns the tags attached to a media item
func (r *tagRepository) ListByMediaID(ctx context.Context, mediaID int64) ([]models.Tag, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.created_at, t.updated_at
		FROM tags t
		INNER JOIN media_tag mt ON mt.tag_id = t.id
		WHERE mt.media_id = ?
		ORDER BY t.name
	`

	rows, err := r.db.QueryContext(ctx, query, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// SyncMedia replaces the tag associations of a media item with tagIDs
func (r *tagRepository) SyncMedia(ctx context.Context, mediaID int64, tagIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM media_tag WHERE media_id = ?`, mediaID); err != nil {
		return fmt.Errorf("failed to clear media tags: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(tagIDs))
	args := make([]any, 0, len(tagIDs)*2)
	for i, tagID := range tagIDs {
		placeholders[i] = "(?, ?)"
		args = append(args, mediaID, tagID)
	}

	query := fmt.Sprintf(`INSERT INTO media_tag (media_id, tag_id) VALUES %s`,
		strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to attach media tags: %w", err)
	}

	return nil
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt, &tag.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tags, nil
}
