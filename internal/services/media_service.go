package services

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/config"
	"github.com/gallerykit/media-service/internal/imagetool"
	"github.com/gallerykit/media-service/internal/metrics"
	"github.com/gallerykit/media-service/internal/models"
	"github.com/gallerykit/media-service/internal/repositories"
	"github.com/gallerykit/media-service/internal/storage"
)

// MediaRepository defines the metadata store operations used by the pipeline
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByID(ctx context.Context, id int64) (*models.Media, error)
	List(ctx context.Context, filter repositories.MediaFilter) ([]models.Media, int, error)
	ListIDsByFolder(ctx context.Context, folderID int64) ([]int64, error)
	Update(ctx context.Context, media *models.Media) error
	SoftDelete(ctx context.Context, id int64) error
}

// BucketRepository maintains the per-user, per-day aggregate counters
type BucketRepository interface {
	Increment(ctx context.Context, userID int64, bucketDate, folderPath string, size int64) error
	Decrement(ctx context.Context, userID int64, bucketDate string, size int64) error
	List(ctx context.Context, userID int64, dateFrom, dateTo string) ([]models.DateBucket, error)
}

// TagRepository defines the tag operations used for attachment
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	ListByMediaID(ctx context.Context, mediaID int64) ([]models.Tag, error)
	SyncMedia(ctx context.Context, mediaID int64, tagIDs []int64) error
}

// Transformer produces image metadata and derived renditions
type Transformer interface {
	Probe(data []byte) (imagetool.Dimensions, error)
	Cover(data []byte, width, height int, extension string) ([]byte, error)
	ScaleToFit(data []byte, width, height int, extension string) ([]byte, error)
}

// MediaService orchestrates the upload pipeline and media CRUD
type MediaService struct {
	repo        MediaRepository
	buckets     BucketRepository
	tags        TagRepository
	disks       *storage.Registry
	transformer Transformer
	cfg         config.GalleryConfig
	logger      *zap.Logger
}

// NewMediaService creates a new media service
func NewMediaService(
	repo MediaRepository,
	buckets BucketRepository,
	tags TagRepository,
	disks *storage.Registry,
	transformer Transformer,
	cfg config.GalleryConfig,
	logger *zap.Logger,
) *MediaService {
	return &MediaService{
		repo:        repo,
		buckets:     buckets,
		tags:        tags,
		disks:       disks,
		transformer: transformer,
		cfg:         cfg,
		logger:      logger,
	}
}

// UploadInput carries one file and its upload options
type UploadInput struct {
	Data         []byte
	OriginalName string
	MimeType     string
	OwnerID      *int64
	Name         string
	Description  string
	FolderID     *int64
	TagIDs       []int64
	TagNames     []string
	// Date selects the target date bucket; zero means now
	Date time.Time
	// Disk overrides the default disk; must be a configured disk
	Disk string
}

// Upload runs the full pipeline: validate, derive the storage path, store
// the original, classify and probe, derive renditions, persist metadata,
// attach tags and update the date-bucket aggregate. Re-invoking with the
// same bytes creates a second distinct item; uploads are user actions,
// not replays.
func (s *MediaService) Upload(ctx context.Context, input UploadInput) (*models.Media, error) {
	size := int64(len(input.Data))

	// Validation precedes any write; a rejection leaves no partial state
	maxBytes := s.cfg.MaxSizeKB * 1024
	if size > maxBytes {
		return nil, apperrors.NewValidation("file size exceeds maximum allowed size of %dKB", s.cfg.MaxSizeKB)
	}

	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.OriginalName), "."))
	if !slices.Contains(s.cfg.AllowedExtensions, extension) {
		return nil, apperrors.NewValidation("file type not allowed. Allowed types: %s",
			strings.Join(s.cfg.AllowedExtensions, ", "))
	}

	targetDate := input.Date
	if targetDate.IsZero() {
		targetDate = time.Now()
	}
	bucketDate := storage.BucketDate(targetDate)
	datePath := storage.DatePath(targetDate, s.cfg.DateLayout)
	folderPath := storage.FolderPath(s.cfg.StoragePath, s.cfg.Organization, input.OwnerID, datePath)

	filename := storage.GenerateFileName(extension)
	filePath := folderPath + "/" + filename

	diskName, disk, err := s.disks.Resolve(input.Disk)
	if err != nil {
		return nil, apperrors.NewValidation("disk not allowed: %s", input.Disk)
	}

	if err := disk.Put(ctx, filePath, input.Data, input.MimeType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	fileType := models.ClassifyMime(input.MimeType)

	// A probe failure is not fatal; the upload continues with zero dimensions
	var width, height int64
	if fileType == models.FileTypeImage {
		dims, err := s.transformer.Probe(input.Data)
		if err != nil {
			s.logger.Warn("image probe failed",
				zap.String("file", input.OriginalName),
				zap.Error(err),
			)
		} else {
			width = int64(dims.Width)
			height = int64(dims.Height)
		}
	}

	// Derived renditions are best-effort: the original is already stored
	// and a failed rendition leaves its path empty
	var thumbnailPath, mediumPath string
	if fileType == models.FileTypeImage {
		if s.cfg.Thumbnail.Enabled {
			thumbnailPath = s.deriveRendition(ctx, disk, input.Data, folderPath, filename, extension, renditionThumbnail)
		}
		if s.cfg.Medium.Enabled {
			mediumPath = s.deriveRendition(ctx, disk, input.Data, folderPath, filename, extension, renditionMedium)
		}
	}

	name := input.Name
	if name == "" {
		name = strings.TrimSuffix(input.OriginalName, filepath.Ext(input.OriginalName))
	}

	media := &models.Media{
		UserID:        input.OwnerID,
		Original:      input.OriginalName,
		Name:          name,
		Description:   input.Description,
		Type:          fileType,
		Disk:          diskName,
		Path:          filePath,
		ThumbnailPath: thumbnailPath,
		MediumPath:    mediumPath,
		URL:           disk.URL(filePath),
		MimeType:      input.MimeType,
		Extension:     extension,
		Size:          size,
		Width:         width,
		Height:        height,
		FolderID:      input.FolderID,
		FolderDate:    bucketDate,
		UploadedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, media); err != nil {
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}

	metrics.ObserveUpload(string(fileType), size)

	tagIDs, err := s.resolveTags(ctx, input.TagIDs, input.TagNames)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) > 0 {
		if err := s.tags.SyncMedia(ctx, media.ID, tagIDs); err != nil {
			return nil, fmt.Errorf("failed to attach tags: %w", err)
		}
	}

	if err := s.buckets.Increment(ctx, ownerKey(input.OwnerID), bucketDate, folderPath, size); err != nil {
		return nil, fmt.Errorf("failed to update folder stats: %w", err)
	}

	if err := s.attachTags(ctx, media); err != nil {
		return nil, err
	}

	return media, nil
}

type rendition int

const (
	renditionThumbnail rendition = iota
	renditionMedium
)

// deriveRendition generates and stores one rendition, returning its path
// or empty string on failure
func (s *MediaService) deriveRendition(ctx context.Context, disk storage.Storage, data []byte, folderPath, filename, extension string, kind rendition) string {
	var (
		derived []byte
		path    string
		err     error
	)

	switch kind {
	case renditionThumbnail:
		path = storage.ThumbnailPath(folderPath, filename)
		derived, err = s.transformer.Cover(data, s.cfg.Thumbnail.Width, s.cfg.Thumbnail.Height, extension)
	case renditionMedium:
		path = storage.MediumPath(folderPath, filename)
		derived, err = s.transformer.ScaleToFit(data, s.cfg.Medium.Width, s.cfg.Medium.Height, extension)
	}
	if err != nil {
		s.logger.Warn("failed to generate rendition", zap.String("path", path), zap.Error(err))
		return ""
	}

	if err := disk.Put(ctx, path, derived, ""); err != nil {
		s.logger.Warn("failed to store rendition", zap.String("path", path), zap.Error(err))
		return ""
	}

	return path
}

// resolveTags merges explicit tag ids with tags referenced by name,
// creating missing named tags with a derived slug
func (s *MediaService) resolveTags(ctx context.Context, tagIDs []int64, tagNames []string) ([]int64, error) {
	resolved := make([]int64, 0, len(tagIDs)+len(tagNames))
	resolved = append(resolved, tagIDs...)

	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.tags.GetByName(ctx, name)
		if err == apperrors.ErrNotFound {
			tag = &models.Tag{Name: name, Slug: models.Slugify(name)}
			if err := s.tags.Create(ctx, tag); err != nil {
				return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("failed to look up tag %q: %w", name, err)
		}
		if !slices.Contains(resolved, tag.ID) {
			resolved = append(resolved, tag.ID)
		}
	}

	return resolved, nil
}

// ListFilter holds the Query Service predicates; all are conjunctive
type ListFilter struct {
	FolderID   *int64
	BucketDate string
	DateFrom   string
	DateTo     string
	Type       string
	Search     string
	TagIDs     []int64
	Page       int
	PerPage    int
}

// List returns a page of media visible to the caller, newest first
func (s *MediaService) List(ctx context.Context, caller *int64, filter ListFilter) (*models.MediaPage, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	items, total, err := s.repo.List(ctx, repositories.MediaFilter{
		UserID:     caller,
		FolderID:   filter.FolderID,
		BucketDate: filter.BucketDate,
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
		Type:       filter.Type,
		Search:     filter.Search,
		TagIDs:     filter.TagIDs,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	for i := range items {
		if err := s.attachTags(ctx, &items[i]); err != nil {
			return nil, err
		}
	}

	return &models.MediaPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// Get retrieves a media item by id, including tombstoned records so
// soft-deleted items remain inspectable by direct lookup
func (s *MediaService) Get(ctx context.Context, id int64, caller *int64) (*models.Media, error) {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canAccess(media.UserID, caller) {
		return nil, apperrors.ErrAccessDenied
	}

	if err := s.attachTags(ctx, media); err != nil {
		return nil, err
	}

	return media, nil
}

// UpdateInput carries the mutable media fields; nil fields are unchanged
type UpdateInput struct {
	Name        *string
	Description *string
	FolderID    *int64
	TagIDs      *[]int64
}

// Update renames, moves or re-tags a media item
func (s *MediaService) Update(ctx context.Context, id int64, caller *int64, input UpdateInput) (*models.Media, error) {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(media.UserID, caller) {
		return nil, apperrors.ErrAccessDenied
	}
	if media.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}

	if input.Name != nil {
		media.Name = *input.Name
	}
	if input.Description != nil {
		media.Description = *input.Description
	}
	if input.FolderID != nil {
		media.FolderID = input.FolderID
	}

	if err := s.repo.Update(ctx, media); err != nil {
		return nil, err
	}

	if input.TagIDs != nil {
		if err := s.tags.SyncMedia(ctx, media.ID, *input.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to sync tags: %w", err)
		}
	}

	if err := s.attachTags(ctx, media); err != nil {
		return nil, err
	}

	return media, nil
}

// Delete removes the item's blobs from storage, tombstones the metadata
// row, then decrements the date-bucket aggregate by the stored size.
// Blob deletion failures are logged, not fatal: an orphaned blob is
// preferable to a dangling metadata row.
func (s *MediaService) Delete(ctx context.Context, id int64, caller *int64) error {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(media.UserID, caller) {
		return apperrors.ErrAccessDenied
	}
	if media.DeletedAt != nil {
		return apperrors.ErrNotFound
	}

	disk, err := s.disks.Disk(media.Disk)
	if err != nil {
		return fmt.Errorf("failed to resolve disk: %w", err)
	}

	for _, path := range []string{media.Path, media.ThumbnailPath, media.MediumPath} {
		if path == "" {
			continue
		}
		if err := disk.Delete(ctx, path); err != nil {
			s.logger.Warn("failed to delete blob", zap.String("path", path), zap.Error(err))
		}
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if err := s.buckets.Decrement(ctx, ownerKey(media.UserID), media.FolderDate, media.Size); err != nil {
		return fmt.Errorf("failed to update folder stats: %w", err)
	}

	return nil
}

// BulkDelete deletes each id best-effort and reports only the success
// count; individual failures never abort the batch
func (s *MediaService) BulkDelete(ctx context.Context, ids []int64, caller *int64) int {
	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id, caller); err != nil {
			s.logger.Info("bulk delete skipped item", zap.Int64("id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted
}

// DownloadResult carries the original bytes and attachment metadata
type DownloadResult struct {
	Content  []byte
	Filename string
	MimeType string
}

// Download returns the stored original for streaming as an attachment
func (s *MediaService) Download(ctx context.Context, id int64, caller *int64) (*DownloadResult, error) {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(media.UserID, caller) {
		return nil, apperrors.ErrAccessDenied
	}
	if media.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}

	disk, err := s.disks.Disk(media.Disk)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve disk: %w", err)
	}

	exists, err := disk.Exists(ctx, media.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to check file: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFound
	}

	content, err := disk.Get(ctx, media.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &DownloadResult{
		Content:  content,
		Filename: media.Original,
		MimeType: media.MimeType,
	}, nil
}

// ListIDsByFolder exposes the ids of media directly contained in a folder
func (s *MediaService) ListIDsByFolder(ctx context.Context, folderID int64) ([]int64, error) {
	return s.repo.ListIDsByFolder(ctx, folderID)
}

// ListBuckets returns the caller's date-bucket aggregates, newest first
func (s *MediaService) ListBuckets(ctx context.Context, caller *int64, dateFrom, dateTo string) ([]models.DateBucket, error) {
	return s.buckets.List(ctx, ownerKey(caller), dateFrom, dateTo)
}

func (s *MediaService) attachTags(ctx context.Context, media *models.Media) error {
	tags, err := s.tags.ListByMediaID(ctx, media.ID)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	media.Tags = tags
	return nil
}

// canAccess applies the ownership rule: unowned items are visible to any
// caller, owned items only to their owner
func canAccess(owner *int64, caller *int64) bool {
	if owner == nil {
		return true
	}
	return caller != nil && *caller == *owner
}

// ownerKey maps an optional owner to the bucket key; anonymous uploads
// aggregate under user id 0
func ownerKey(owner *int64) int64 {
	if owner == nil {
		return 0
	}
	return *owner
}
