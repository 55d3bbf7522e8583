package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

func TestTagService_Create(t *testing.T) {
	t.Run("derives slug", func(t *testing.T) {
		repo := newMockTagRepo()
		service := NewTagService(repo)

		tag, err := service.Create(context.Background(), "Summer Trip")

		require.NoError(t, err)
		assert.Equal(t, "Summer Trip", tag.Name)
		assert.Equal(t, "summer-trip", tag.Slug)
		assert.NotZero(t, tag.ID)
	})

	t.Run("duplicate name returns existing", func(t *testing.T) {
		repo := newMockTagRepo()
		service := NewTagService(repo)

		first, err := service.Create(context.Background(), "beach")
		require.NoError(t, err)

		second, err := service.Create(context.Background(), "beach")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, repo.created, 1)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		service := NewTagService(newMockTagRepo())

		_, err := service.Create(context.Background(), "   ")

		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestTagService_List(t *testing.T) {
	repo := newMockTagRepo()
	repo.allTags = []models.Tag{{ID: 1, Name: "beach"}, {ID: 2, Name: "vacation"}}
	service := NewTagService(repo)

	tags, err := service.List(context.Background())

	require.NoError(t, err)
	assert.Len(t, tags, 2)
}
