package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
)

// TagStore extends the pipeline's tag operations with listing
type TagStore interface {
	TagRepository
	List(ctx context.Context) ([]models.Tag, error)
}

// TagService manages the shared tag vocabulary
type TagService struct {
	repo TagStore
}

// NewTagService creates a new tag service
func NewTagService(repo TagStore) *TagService {
	return &TagService{repo: repo}
}

// Create adds a tag with a slug derived from its name; duplicate names
// resolve to the existing tag
func (s *TagService) Create(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidation("tag name is required")
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if err != apperrors.ErrNotFound {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	tag := &models.Tag{Name: name, Slug: models.Slugify(name)}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// List returns all tags ordered by name
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.repo.List(ctx)
}
