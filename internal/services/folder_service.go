package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// FolderRepository defines the folder store operations
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id int64) (*models.Folder, error)
	List(ctx context.Context, userID *int64, parentID *int64) ([]models.Folder, error)
	ListChildren(ctx context.Context, parentID int64) ([]models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	SoftDelete(ctx context.Context, id int64) error
}

// MediaManager is the slice of the media service the folder service
// needs for recursive deletion
type MediaManager interface {
	ListIDsByFolder(ctx context.Context, folderID int64) ([]int64, error)
	Delete(ctx context.Context, id int64, caller *int64) error
}

// FolderService manages the folder tree and its recursive deletion
type FolderService struct {
	repo   FolderRepository
	media  MediaManager
	logger *zap.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(repo FolderRepository, media MediaManager, logger *zap.Logger) *FolderService {
	return &FolderService{
		repo:   repo,
		media:  media,
		logger: logger,
	}
}

// FolderInput carries the folder attributes for create and update
type FolderInput struct {
	Name     string
	ParentID *int64
}

// Create adds a folder owned by the caller, optionally under a parent
// the caller can access
func (s *FolderService) Create(ctx context.Context, caller *int64, input FolderInput) (*models.Folder, error) {
	if input.Name == "" {
		return nil, apperrors.NewValidation("folder name is required")
	}

	if input.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !canAccess(parent.UserID, caller) {
			return nil, apperrors.ErrAccessDenied
		}
	}

	folder := &models.Folder{
		UserID:   caller,
		Name:     input.Name,
		ParentID: input.ParentID,
	}
	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return s.repo.GetByID(ctx, folder.ID)
}

// Get retrieves a folder with its direct children
func (s *FolderService) Get(ctx context.Context, id int64, caller *int64) (*models.Folder, error) {
	folder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(folder.UserID, caller) {
		return nil, apperrors.ErrAccessDenied
	}

	children, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	folder.Children = children

	return folder, nil
}

// List returns the folders visible to the caller at one tree level;
// a nil parentID selects the root level
func (s *FolderService) List(ctx context.Context, caller *int64, parentID *int64) ([]models.Folder, error) {
	if parentID != nil {
		parent, err := s.repo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !canAccess(parent.UserID, caller) {
			return nil, apperrors.ErrAccessDenied
		}
	}

	folders, err := s.repo.List(ctx, caller, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// Update renames a folder or moves it under a new parent. A move that
// would make the folder its own ancestor is rejected.
func (s *FolderService) Update(ctx context.Context, id int64, caller *int64, input FolderInput) (*models.Folder, error) {
	folder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(folder.UserID, caller) {
		return nil, apperrors.ErrAccessDenied
	}

	if input.Name != "" {
		folder.Name = input.Name
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, apperrors.NewValidation("folder cannot be its own parent")
		}
		parent, err := s.repo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !canAccess(parent.UserID, caller) {
			return nil, apperrors.ErrAccessDenied
		}
		cyclic, err := s.isDescendant(ctx, id, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, apperrors.NewValidation("cannot move folder into its own subtree")
		}
		folder.ParentID = input.ParentID
	}

	if err := s.repo.Update(ctx, folder); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// Delete removes a folder subtree depth-first: children first, then the
// folder's own media, then the folder itself. The walk is not
// transactional; a mid-walk failure leaves already-deleted descendants
// deleted.
func (s *FolderService) Delete(ctx context.Context, id int64, caller *int64) error {
	folder, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(folder.UserID, caller) {
		return apperrors.ErrAccessDenied
	}

	return s.deleteTree(ctx, id, caller)
}

func (s *FolderService) deleteTree(ctx context.Context, id int64, caller *int64) error {
	children, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	for _, child := range children {
		if err := s.deleteTree(ctx, child.ID, caller); err != nil {
			return err
		}
	}

	mediaIDs, err := s.media.ListIDsByFolder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list folder media: %w", err)
	}
	for _, mediaID := range mediaIDs {
		if err := s.media.Delete(ctx, mediaID, caller); err != nil {
			return fmt.Errorf("failed to delete media %d: %w", mediaID, err)
		}
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("folder deleted",
		zap.Int64("folder_id", id),
		zap.Int("media_count", len(mediaIDs)),
	)
	return nil
}

// isDescendant reports whether candidate sits inside the subtree rooted
// at root, by walking parent links upward from candidate
func (s *FolderService) isDescendant(ctx context.Context, root, candidate int64) (bool, error) {
	current := candidate
	for {
		folder, err := s.repo.GetByID(ctx, current)
		if err != nil {
			return false, err
		}
		if folder.ParentID == nil {
			return false, nil
		}
		if *folder.ParentID == root {
			return true, nil
		}
		current = *folder.ParentID
	}
}
