package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// setupMediaTestRepository creates a media repository with a mock database
func setupMediaTestRepository(t *testing.T) (*mediaRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewMediaRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

var mediaTestColumns = []string{
	"id", "user_id", "original", "name", "description", "type", "disk", "path",
	"thumbnail_path", "medium_path", "url", "mime_type", "extension", "size",
	"width", "height", "duration", "folder_id", "folder_date", "uploaded_at",
	"created_at", "updated_at", "deleted_at",
}

func mediaTestRow(id int64, userID driver.Value, deletedAt driver.Value) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, userID, "sunset.jpg", "sunset", "a sunset", "image", "public",
		"gallery/users/7/2024/03/15/abc.jpg",
		"gallery/users/7/2024/03/15/thumbnails/thumb_abc.jpg",
		"gallery/users/7/2024/03/15/medium/medium_abc.jpg",
		"http://localhost:8082/storage/gallery/users/7/2024/03/15/abc.jpg",
		"image/jpeg", "jpg", int64(2048), int64(1920), int64(1080), int64(0),
		nil, "2024-03-15", now, now, now, deletedAt,
	}
}

func TestNewMediaRepository(t *testing.T) {
	db := &sql.DB{}

	repo := NewMediaRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestMediaRepository_Create(t *testing.T) {
	userID := int64(7)
	uploadedAt := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		media         *models.Media
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedID    int64
	}{
		{
			name: "success",
			media: &models.Media{
				UserID:        &userID,
				Original:      "sunset.jpg",
				Name:          "sunset",
				Description:   "a sunset",
				Type:          models.FileTypeImage,
				Disk:          "public",
				Path:          "gallery/users/7/2024/03/15/abc.jpg",
				ThumbnailPath: "gallery/users/7/2024/03/15/thumbnails/thumb_abc.jpg",
				MediumPath:    "gallery/users/7/2024/03/15/medium/medium_abc.jpg",
				URL:           "http://localhost:8082/storage/gallery/users/7/2024/03/15/abc.jpg",
				MimeType:      "image/jpeg",
				Extension:     "jpg",
				Size:          2048,
				Width:         1920,
				Height:        1080,
				FolderDate:    "2024-03-15",
				UploadedAt:    uploadedAt,
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO media`).
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			expectedError: false,
			expectedID:    42,
		},
		{
			name: "database error on insert",
			media: &models.Media{
				Original:   "sunset.jpg",
				Name:       "sunset",
				Type:       models.FileTypeImage,
				Disk:       "public",
				FolderDate: "2024-03-15",
				UploadedAt: uploadedAt,
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO media`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupMediaTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), tt.media)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, tt.media.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMediaRepository_GetByID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		rows := sqlmock.NewRows(mediaTestColumns).
			AddRow(mediaTestRow(1, int64(7), nil)...)
		mock.ExpectQuery(`SELECT .+ FROM media WHERE id = \?`).
			WithArgs(int64(1)).
			WillReturnRows(rows)

		media, err := repo.GetByID(context.Background(), 1)

		require.NoError(t, err)
		assert.Equal(t, int64(1), media.ID)
		require.NotNil(t, media.UserID)
		assert.Equal(t, int64(7), *media.UserID)
		assert.Equal(t, "2024-03-15", media.FolderDate)
		assert.Equal(t, models.FileTypeImage, media.Type)
		assert.Nil(t, media.DeletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tombstoned record is still returned", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		deletedAt := time.Now()
		rows := sqlmock.NewRows(mediaTestColumns).
			AddRow(mediaTestRow(2, int64(7), deletedAt)...)
		mock.ExpectQuery(`SELECT .+ FROM media WHERE id = \?`).
			WithArgs(int64(2)).
			WillReturnRows(rows)

		media, err := repo.GetByID(context.Background(), 2)

		require.NoError(t, err)
		require.NotNil(t, media.DeletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM media WHERE id = \?`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		media, err := repo.GetByID(context.Background(), 99)

		assert.Nil(t, media)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMediaRepository_List(t *testing.T) {
	t.Run("owner scope and type filter", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		userID := int64(7)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM media`).
			WithArgs(userID, "image").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT .+ FROM media\s+WHERE .+ ORDER BY uploaded_at DESC, id DESC`).
			WithArgs(userID, "image", 20, 0).
			WillReturnRows(sqlmock.NewRows(mediaTestColumns).
				AddRow(mediaTestRow(1, userID, nil)...))

		items, total, err := repo.List(context.Background(), MediaFilter{
			UserID: &userID,
			Type:   "image",
			Page:   1,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, int64(1), items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tag filter adds exists clause", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM media WHERE .+ EXISTS \(SELECT 1 FROM media_tag`).
			WithArgs(int64(3), int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT .+ FROM media`).
			WithArgs(int64(3), int64(5), 20, 0).
			WillReturnRows(sqlmock.NewRows(mediaTestColumns))

		items, total, err := repo.List(context.Background(), MediaFilter{
			TagIDs: []int64{3, 5},
		})

		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, items)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count query error", func(t *testing.T) {
		repo, mock, cleanup := setupMediaTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM media`).
			WillReturnError(errors.New("database error"))

		_, _, err := repo.List(context.Background(), MediaFilter{})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMediaRepository_ListIDsByFolder(t *testing.T) {
	repo, mock, cleanup := setupMediaTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM media WHERE folder_id = \? AND deleted_at IS NULL`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))

	ids, err := repo.ListIDsByFolder(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepository_SoftDelete(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET deleted_at = NOW\(\)`).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "already deleted",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE media SET deleted_at = NOW\(\)`).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupMediaTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.SoftDelete(context.Background(), 1)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
