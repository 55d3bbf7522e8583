package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// folderColumns selects folder fields plus live aggregate counters
// over directly-contained, non-deleted media. The tree variant does
// not cache aggregates; they are computed on read.
const folderColumns = `f.id, f.user_id, f.name, f.parent_id, f.created_at, f.updated_at,
	(SELECT COUNT(*) FROM media m WHERE m.folder_id = f.id AND m.deleted_at IS NULL),
	(SELECT COALESCE(SUM(m.size), 0) FROM media m WHERE m.folder_id = f.id AND m.deleted_at IS NULL)`

// folderRepository implements folder tree data access
type folderRepository struct {
	db *sql.DB
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(db *sql.DB) *folderRepository {
	return &folderRepository{
		db: db,
	}
}

// Create inserts a new folder and sets its generated id
func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (user_id, name, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
	`

	result, err := r.db.ExecContext(ctx, query, folder.UserID, folder.Name, folder.ParentID)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted folder id: %w", err)
	}
	folder.ID = id

	return nil
}

// GetByID retrieves a non-deleted folder with its live aggregates
func (r *folderRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM folders f WHERE f.id = ? AND f.deleted_at IS NULL LIMIT 1`, folderColumns)

	folder, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder by id: %w", err)
	}

	return folder, nil
}

// List returns folders under parentID (nil for root folders), scoped to
// items the caller may see, ordered by name
func (r *folderRepository) List(ctx context.Context, userID *int64, parentID *int64) ([]models.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM folders f WHERE f.deleted_at IS NULL`, folderColumns)
	var args []any

	if userID != nil {
		query += " AND (f.user_id = ? OR f.user_id IS NULL)"
		args = append(args, *userID)
	}
	if parentID != nil {
		query += " AND f.parent_id = ?"
		args = append(args, *parentID)
	} else {
		query += " AND f.parent_id IS NULL"
	}
	query += " ORDER BY f.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return folders, nil
}

// ListChildren returns the direct, non-deleted children of a folder
func (r *folderRepository) ListChildren(ctx context.Context, parentID int64) ([]models.Folder, error) {
	return r.List(ctx, nil, &parentID)
}

// Update persists a folder's name and parent
func (r *folderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := `
		UPDATE folders
		SET name = ?, parent_id = ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, folder.Name, folder.ParentID, folder.ID)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
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

// SoftDelete tombstones a folder
func (r *folderRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE folders SET deleted_at = NOW(), updated_at = NOW() WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
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

func scanFolder(row rowScanner) (*models.Folder, error) {
	folder := &models.Folder{}
	var (
		userID   sql.NullInt64
		parentID sql.NullInt64
	)

	err := row.Scan(
		&folder.ID,
		&userID,
		&folder.Name,
		&parentID,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.MediaCount,
		&folder.TotalSize,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		folder.UserID = &userID.Int64
	}
	if parentID.Valid {
		folder.ParentID = &parentID.Int64
	}

	return folder, nil
}
