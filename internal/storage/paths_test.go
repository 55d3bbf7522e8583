package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gallerykit/media-service/internal/config"
)

func TestGenerateFileName(t *testing.T) {
	t.Run("appends extension", func(t *testing.T) {
		name := GenerateFileName("jpg")

		require.True(t, strings.HasSuffix(name, ".jpg"))
		_, err := uuid.Parse(strings.TrimSuffix(name, ".jpg"))
		assert.NoError(t, err)
	})

	t.Run("no extension", func(t *testing.T) {
		name := GenerateFileName("")

		_, err := uuid.Parse(name)
		assert.NoError(t, err)
	})

	t.Run("names are unique", func(t *testing.T) {
		assert.NotEqual(t, GenerateFileName("png"), GenerateFileName("png"))
	})
}

func TestBucketDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-15", BucketDate(ts))
}

func TestDatePath(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024/03/15", DatePath(ts, "2006/01/02"))
	assert.Equal(t, "2024-03", DatePath(ts, "2006-01"))
}

func TestFolderPath(t *testing.T) {
	userID := int64(42)

	tests := []struct {
		name         string
		organization string
		userID       *int64
		expected     string
	}{
		{
			name:         "user-date with owner",
			organization: config.OrganizationUserDate,
			userID:       &userID,
			expected:     "gallery/users/42/2024/03/15",
		},
		{
			name:         "date-user with owner",
			organization: config.OrganizationDateUser,
			userID:       &userID,
			expected:     "gallery/2024/03/15/users/42",
		},
		{
			name:         "user-date anonymous",
			organization: config.OrganizationUserDate,
			userID:       nil,
			expected:     "gallery/public/2024/03/15",
		},
		{
			name:         "date-user anonymous",
			organization: config.OrganizationDateUser,
			userID:       nil,
			expected:     "gallery/2024/03/15/public",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := FolderPath("gallery", tt.organization, tt.userID, "2024/03/15")

			assert.Equal(t, tt.expected, path)
		})
	}
}

func TestRenditionPaths(t *testing.T) {
	folderPath := "gallery/users/42/2024/03/15"

	assert.Equal(t, "gallery/users/42/2024/03/15/thumbnails/thumb_abc.jpg",
		ThumbnailPath(folderPath, "abc.jpg"))
	assert.Equal(t, "gallery/users/42/2024/03/15/medium/medium_abc.jpg",
		MediumPath(folderPath, "abc.jpg"))
}
