package models

import (
	"fmt"
	"strings"
	"time"
)

// FileType classifies media by its MIME type
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// documentMimeTypes is the fixed set of office/PDF MIME types treated as documents
var documentMimeTypes = map[string]struct{}{
	"application/pdf":          {},
	"application/msword":       {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
}

// ClassifyMime maps a MIME type to a FileType.
// Precedence: image/ video/ audio/ prefixes, then the document set, then other.
func ClassifyMime(mimeType string) FileType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return FileTypeAudio
	}
	if _, ok := documentMimeTypes[mimeType]; ok {
		return FileTypeDocument
	}
	return FileTypeOther
}

// Media represents a stored media item and its metadata
type Media struct {
	ID            int64      `json:"id" db:"id"`
	UserID        *int64     `json:"user_id" db:"user_id"`
	Original      string     `json:"original" db:"original"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description,omitempty" db:"description"`
	Type          FileType   `json:"type" db:"type"`
	Disk          string     `json:"disk" db:"disk"`
	Path          string     `json:"path" db:"path"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	MediumPath    string     `json:"medium_path,omitempty" db:"medium_path"`
	URL           string     `json:"url" db:"url"`
	MimeType      string     `json:"mime_type" db:"mime_type"`
	Extension     string     `json:"extension" db:"extension"`
	Size          int64      `json:"size" db:"size"`
	Width         int64      `json:"width" db:"width"`
	Height        int64      `json:"height" db:"height"`
	Duration      int64      `json:"duration" db:"duration"`
	FolderID      *int64     `json:"folder_id" db:"folder_id"`
	FolderDate    string     `json:"folder_date" db:"folder_date"`
	UploadedAt    time.Time  `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Tags          []Tag      `json:"tags"`
}

// IsImage reports whether the item is an image
func (m *Media) IsImage() bool {
	return m.Type == FileTypeImage
}

// FormattedSize returns the size as a human readable string
func (m *Media) FormattedSize() string {
	return FormatBytes(m.Size)
}

// MediaPage is a paginated set of media items
type MediaPage struct {
	Items   []Media `json:"items"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// FormatBytes renders a byte count using binary units
func FormatBytes(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size > 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
