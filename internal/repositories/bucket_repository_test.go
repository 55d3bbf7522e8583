package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gallerykit/media-service/internal/apperrors"
)

func setupBucketTestRepository(t *testing.T) (*bucketRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewBucketRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestBucketRepository_Increment(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
	}{
		{
			name: "first upload creates the bucket",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO date_buckets .+ ON DUPLICATE KEY UPDATE`).
					WithArgs(int64(7), "2024-03-15", "gallery/users/7/2024/03/15", int64(2048)).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "subsequent upload bumps the counters",
			setupMock: func(mock sqlmock.Sqlmock) {
				// MySQL reports 2 affected rows for an upsert that updated
				mock.ExpectExec(`INSERT INTO date_buckets .+ ON DUPLICATE KEY UPDATE`).
					WithArgs(int64(7), "2024-03-15", "gallery/users/7/2024/03/15", int64(2048)).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO date_buckets`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupBucketTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Increment(context.Background(), 7, "2024-03-15", "gallery/users/7/2024/03/15", 2048)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBucketRepository_Decrement(t *testing.T) {
	repo, mock, cleanup := setupBucketTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE date_buckets\s+SET item_count = item_count - 1, total_size = total_size - \?`).
		WithArgs(int64(2048), int64(7), "2024-03-15").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Decrement(context.Background(), 7, "2024-03-15", 2048)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketRepository_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupBucketTestRepository(t)
		defer cleanup()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "user_id", "bucket_date", "folder_path", "item_count", "total_size", "created_at", "updated_at"}).
			AddRow(1, 7, "2024-03-15", "gallery/users/7/2024/03/15", 3, 6144, now, now)
		mock.ExpectQuery(`SELECT .+ FROM date_buckets\s+WHERE user_id = \? AND bucket_date = \?`).
			WithArgs(int64(7), "2024-03-15").
			WillReturnRows(rows)

		bucket, err := repo.Get(context.Background(), 7, "2024-03-15")

		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", bucket.BucketDate)
		assert.Equal(t, int64(3), bucket.ItemCount)
		assert.Equal(t, int64(6144), bucket.TotalSize)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupBucketTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM date_buckets`).
			WithArgs(int64(7), "2024-03-16").
			WillReturnError(sql.ErrNoRows)

		bucket, err := repo.Get(context.Background(), 7, "2024-03-16")

		assert.Nil(t, bucket)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBucketRepository_List(t *testing.T) {
	repo, mock, cleanup := setupBucketTestRepository(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "bucket_date", "folder_path", "item_count", "total_size", "created_at", "updated_at"}).
		AddRow(2, 7, "2024-03-16", "gallery/users/7/2024/03/16", 1, 1024, now, now).
		AddRow(1, 7, "2024-03-15", "gallery/users/7/2024/03/15", 3, 6144, now, now)
	mock.ExpectQuery(`SELECT .+ FROM date_buckets\s+WHERE user_id = \? AND bucket_date >= \? AND bucket_date <= \? ORDER BY bucket_date DESC`).
		WithArgs(int64(7), "2024-03-01", "2024-03-31").
		WillReturnRows(rows)

	buckets, err := repo.List(context.Background(), 7, "2024-03-01", "2024-03-31")

	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-03-16", buckets[0].BucketDate)
	assert.Equal(t, "2024-03-15", buckets[1].BucketDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
