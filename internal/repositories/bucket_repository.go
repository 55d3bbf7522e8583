package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// bucketRepository maintains the per-user, per-day aggregate counters
type bucketRepository struct {
	db *sql.DB
}

// NewBucketRepository creates a new date bucket repository
func NewBucketRepository(db *sql.DB) *bucketRepository {
	return &bucketRepository{
		db: db,
	}
}

// Increment adds one item of the given size to the (user, date) bucket,
// creating the bucket row with folderPath on first use. The counter update
// is a single statement so concurrent uploads to the same bucket cannot
// lose updates.
func (r *bucketRepository) Increment(ctx context.Context, userID int64, bucketDate, folderPath string, size int64) error {
	query := `
		INSERT INTO date_buckets (user_id, bucket_date, folder_path, item_count, total_size, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			item_count = item_count + 1,
			total_size = total_size + VALUES(total_size),
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, userID, bucketDate, folderPath, size)
	if err != nil {
		return fmt.Errorf("failed to increment bucket: %w", err)
	}

	return nil
}

// Decrement removes one item of the given size from the (user, date) bucket
func (r *bucketRepository) Decrement(ctx context.Context, userID int64, bucketDate string, size int64) error {
	query := `
		UPDATE date_buckets
		SET item_count = item_count - 1, total_size = total_size - ?, updated_at = NOW()
		WHERE user_id = ? AND bucket_date = ?
	`

	_, err := r.db.ExecContext(ctx, query, size, userID, bucketDate)
	if err != nil {
		return fmt.Errorf("failed to decrement bucket: %w", err)
	}

	return nil
}

// Get retrieves one bucket by its composite key
func (r *bucketRepository) Get(ctx context.Context, userID int64, bucketDate string) (*models.DateBucket, error) {
	query := `
		SELECT id, user_id, DATE_FORMAT(bucket_date, '%Y-%m-%d'), folder_path,
			item_count, total_size, created_at, updated_at
		FROM date_buckets
		WHERE user_id = ? AND bucket_date = ?
		LIMIT 1
	`

	bucket := &models.DateBucket{}
	err := r.db.QueryRowContext(ctx, query, userID, bucketDate).Scan(
		&bucket.ID,
		&bucket.UserID,
		&bucket.BucketDate,
		&bucket.FolderPath,
		&bucket.ItemCount,
		&bucket.TotalSize,
		&bucket.CreatedAt,
		&bucket.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return bucket, nil
}

// List returns a user's buckets, newest date first, optionally bounded
// by an inclusive date range
func (r *bucketRepository) List(ctx context.Context, userID int64, dateFrom, dateTo string) ([]models.DateBucket, error) {
	query := `
		SELECT id, user_id, DATE_FORMAT(bucket_date, '%Y-%m-%d'), folder_path,
			item_count, total_size, created_at, updated_at
		FROM date_buckets
		WHERE user_id = ?
	`
	args := []any{userID}

	if dateFrom != "" {
		query += " AND bucket_date >= ?"
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		query += " AND bucket_date <= ?"
		args = append(args, dateTo)
	}
	query += " ORDER BY bucket_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	var buckets []models.DateBucket
	for rows.Next() {
		var bucket models.DateBucket
		err := rows.Scan(
			&bucket.ID,
			&bucket.UserID,
			&bucket.BucketDate,
			&bucket.FolderPath,
			&bucket.ItemCount,
			&bucket.TotalSize,
			&bucket.CreatedAt,
			&bucket.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return buckets, nil
}
