package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// mediaColumns is the select list shared by media queries. folder_date is
// formatted in SQL so it scans as the canonical YYYY-MM-DD bucket key.
const mediaColumns = `id, user_id, original, name, description, type, disk, path,
	thumbnail_path, medium_path, url, mime_type, extension, size, width, height,
	duration, folder_id, DATE_FORMAT(folder_date, '%Y-%m-%d'), uploaded_at,
	created_at, updated_at, deleted_at`

// mediaRepository implements media data access
type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) *mediaRepository {
	return &mediaRepository{
		db: db,
	}
}

// Create inserts a new media record and sets its generated id
func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	query := `
		INSERT INTO media (user_id, original, name, description, type, disk, path,
			thumbnail_path, medium_path, url, mime_type, extension, size, width,
			height, duration, folder_id, folder_date, uploaded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`

	result, err := r.db.ExecContext(ctx, query,
		media.UserID,
		media.Original,
		media.Name,
		nullString(media.Description),
		media.Type,
		media.Disk,
		media.Path,
		nullString(media.ThumbnailPath),
		nullString(media.MediumPath),
		media.URL,
		media.MimeType,
		media.Extension,
		media.Size,
		media.Width,
		media.Height,
		media.Duration,
		media.FolderID,
		media.FolderDate,
		media.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted media id: %w", err)
	}
	media.ID = id

	return nil
}

// GetByID retrieves a media record by id. Soft-deleted records are
// returned too so tombstones stay fetchable for audit.
func (r *mediaRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = ? LIMIT 1`, mediaColumns)

	media, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media by id: %w", err)
	}

	return media, nil
}

// MediaFilter holds the conjunctive predicates for List
type MediaFilter struct {
	// UserID scopes results to the caller: owned by them or unowned
	UserID     *int64
	FolderID   *int64
	BucketDate string
	DateFrom   string
	DateTo     string
	Type       string
	Search     string
	TagIDs     []int64
	Page       int
	PerPage    int
}

// List returns a page of non-deleted media matching all supplied filters,
// newest first, plus the total match count
func (r *mediaRepository) List(ctx context.Context, filter MediaFilter) ([]models.Media, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if filter.UserID != nil {
		conditions = append(conditions, "(user_id = ? OR user_id IS NULL)")
		args = append(args, *filter.UserID)
	}
	if filter.FolderID != nil {
		conditions = append(conditions, "folder_id = ?")
		args = append(args, *filter.FolderID)
	}
	if filter.BucketDate != "" {
		conditions = append(conditions, "folder_date = ?")
		args = append(args, filter.BucketDate)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "folder_date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "folder_date <= ?")
		args = append(args, filter.DateTo)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(original) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if len(filter.TagIDs) > 0 {
		placeholders := make([]string, len(filter.TagIDs))
		for i, id := range filter.TagIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions,
			fmt.Sprintf("EXISTS (SELECT 1 FROM media_tag WHERE media_tag.media_id = media.id AND media_tag.tag_id IN (%s))",
				strings.Join(placeholders, ",")))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM media WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count media: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	query := fmt.Sprintf(`
		SELECT %s FROM media
		WHERE %s
		ORDER BY uploaded_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, mediaColumns, where)

	rows, err := r.db.QueryContext(ctx, query, append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, *media)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, total, nil
}

// ListIDsByFolder returns the ids of non-deleted media directly contained in a folder
func (r *mediaRepository) ListIDsByFolder(ctx context.Context, folderID int64) ([]int64, error) {
	query := `SELECT id FROM media WHERE folder_id = ? AND deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder media: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan media id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// Update persists the mutable fields of a media record
func (r *mediaRepository) Update(ctx context.Context, media *models.Media) error {
	query := `
		UPDATE media
		SET name = ?, description = ?, folder_id = ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		media.Name,
		nullString(media.Description),
		media.FolderID,
		media.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return nil
}

// SoftDelete tombstones a media record
func (r *mediaRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE media SET deleted_at = NOW(), updated_at = NOW() WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (*models.Media, error) {
	media := &models.Media{}
	var (
		userID        sql.NullInt64
		description   sql.NullString
		thumbnailPath sql.NullString
		mediumPath    sql.NullString
		folderID      sql.NullInt64
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&media.ID,
		&userID,
		&media.Original,
		&media.Name,
		&description,
		&media.Type,
		&media.Disk,
		&media.Path,
		&thumbnailPath,
		&mediumPath,
		&media.URL,
		&media.MimeType,
		&media.Extension,
		&media.Size,
		&media.Width,
		&media.Height,
		&media.Duration,
		&folderID,
		&media.FolderDate,
		&media.UploadedAt,
		&media.CreatedAt,
		&media.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		media.UserID = &userID.Int64
	}
	if description.Valid {
		media.Description = description.String
	}
	if thumbnailPath.Valid {
		media.ThumbnailPath = thumbnailPath.String
	}
	if mediumPath.Valid {
		media.MediumPath = mediumPath.String
	}
	if folderID.Valid {
		media.FolderID = &folderID.Int64
	}
	if deletedAt.Valid {
		media.DeletedAt = &deletedAt.Time
	}

	return media, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
