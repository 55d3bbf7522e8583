package models

import "time"

// Folder is a node in the user-defined folder tree.
// MediaCount and TotalSize are computed from directly-contained,
// non-deleted media at read time; they are not stored.
type Folder struct {
	ID         int64      `json:"id" db:"id"`
	UserID     *int64     `json:"user_id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	ParentID   *int64     `json:"parent_id" db:"parent_id"`
	MediaCount int64      `json:"media_count"`
	TotalSize  int64      `json:"total_size"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Children   []Folder   `json:"children,omitempty"`
}

// DateBucket caches per-user, per-calendar-day aggregate counters.
// Counters are maintained incrementally on every media create/delete.
type DateBucket struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	BucketDate string    `json:"bucket_date" db:"bucket_date"`
	FolderPath string    `json:"folder_path" db:"folder_path"`
	ItemCount  int64     `json:"item_count" db:"item_count"`
	TotalSize  int64     `json:"total_size" db:"total_size"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// FormattedSize returns the bucket's total size as a human readable string
func (b *DateBucket) FormattedSize() string {
	return FormatBytes(b.TotalSize)
}
