package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gallerykit/media-service/internal/config"
)

// GenerateFileName generates a collision-free storage filename: a fresh
// UUID plus the original extension. The original name never appears in
// the storage path.
func GenerateFileName(extension string) string {
	newUUID := uuid.New().String()
	if extension != "" && extension[0] != '.' {
		return newUUID + "." + extension
	}
	return newUUID + extension
}

// BucketDate truncates a timestamp to its canonical calendar-day bucket key.
// The bucket key is independent of the display formatting of DatePath.
func BucketDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DatePath formats the date segment of a storage path using the configured layout
func DatePath(t time.Time, layout string) string {
	return t.Format(layout)
}

// FolderPath derives the storage directory for an upload. Organization
// user-date yields {base}/users/{id}/{datePath}, date-user yields
// {base}/{datePath}/users/{id}. Anonymous uploads use a public segment
// in place of users/{id}.
func FolderPath(base, organization string, userID *int64, datePath string) string {
	userSegment := "public"
	if userID != nil {
		userSegment = fmt.Sprintf("users/%d", *userID)
	}

	if organization == config.OrganizationDateUser {
		return fmt.Sprintf("%s/%s/%s", base, datePath, userSegment)
	}
	return fmt.Sprintf("%s/%s/%s", base, userSegment, datePath)
}

// ThumbnailPath places a thumbnail rendition alongside its original
func ThumbnailPath(folderPath, filename string) string {
	return fmt.Sprintf("%s/thumbnails/thumb_%s", folderPath, filename)
}

// MediumPath places a medium rendition alongside its original
func MediumPath(folderPath, filename string) string {
	return fmt.Sprintf("%s/medium/medium_%s", folderPath, filename)
}
