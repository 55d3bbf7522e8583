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
	"github.com/gallerykit/media-service/internal/models"
)

func setupTagTestRepository(t *testing.T) (*tagRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewTagRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestTagRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupTagTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO tags`).
		WithArgs("Summer Trip", "summer-trip").
		WillReturnResult(sqlmock.NewResult(5, 1))

	tag := &models.Tag{Name: "Summer Trip", Slug: "summer-trip"}
	err := repo.Create(context.Background(), tag)

	require.NoError(t, err)
	assert.Equal(t, int64(5), tag.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_GetByName(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupTagTestRepository(t)
		defer cleanup()

		now := time.Now()
		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM tags WHERE name = \?`).
			WithArgs("vacation").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
				AddRow(3, "vacation", "vacation", now, now))

		tag, err := repo.GetByName(context.Background(), "vacation")

		require.NoError(t, err)
		assert.Equal(t, int64(3), tag.ID)
		assert.Equal(t, "vacation", tag.Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, cleanup := setupTagTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM tags WHERE name = \?`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		tag, err := repo.GetByName(context.Background(), "missing")

		assert.Nil(t, tag)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTagRepository_ListByMediaID(t *testing.T) {
	repo, mock, cleanup := setupTagTestRepository(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT t\.id, t\.name, t\.slug, t\.created_at, t\.updated_at\s+FROM tags t\s+INNER JOIN media_tag mt`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
			AddRow(1, "beach", "beach", now, now).
			AddRow(2, "vacation", "vacation", now, now))

	tags, err := repo.ListByMediaID(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "beach", tags[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_SyncMedia(t *testing.T) {
	t.Run("replaces associations", func(t *testing.T) {
		repo, mock, cleanup := setupTagTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM media_tag WHERE media_id = \?`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO media_tag \(media_id, tag_id\) VALUES \(\?, \?\), \(\?, \?\)`).
			WithArgs(int64(1), int64(3), int64(1), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.SyncMedia(context.Background(), 1, []int64{3, 5})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty list only clears", func(t *testing.T) {
		repo, mock, cleanup := setupTagTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM media_tag WHERE media_id = \?`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.SyncMedia(context.Background(), 1, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clear error", func(t *testing.T) {
		repo, mock, cleanup := setupTagTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`DELETE FROM media_tag WHERE media_id = \?`).
			WithArgs(int64(1)).
			WillReturnError(errors.New("database error"))

		err := repo.SyncMedia(context.Background(), 1, []int64{3})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
