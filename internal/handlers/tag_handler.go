package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/models"
)

// TagManager defines the tag service operations used over HTTP
type TagManager interface {
	Create(ctx context.Context, name string) (*models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

// TagHandler handles tag-related HTTP requests
type TagHandler struct {
	BaseHandler
	service TagManager
}

// NewTagHandler creates a new tag handler
func NewTagHandler(service TagManager, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     service,
	}
}

// RegisterRoutes registers all tag handler routes
func (h *TagHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
	})
}

type createTagRequest struct {
	Name string `json:"name"`
}

// Create handles POST /tags
// @Summary Create tag
// @Description Create a tag; a duplicate name returns the existing tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body createTagRequest true "Tag name"
// @Success 201 {object} models.Tag
// @Failure 422 {object} map[string]any "Validation failed"
// @Router /tags [post]
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create tag")
		return
	}

	h.RespondJSON(w, http.StatusCreated, tag)
}

// List handles GET /tags
// @Summary List tags
// @Description List all tags ordered by name
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /tags [get]
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.List(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to list tags")
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}

	h.RespondJSON(w, http.StatusOK, tags)
}
