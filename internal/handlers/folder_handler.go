package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/auth"
	"github.com/gallerykit/media-service/internal/models"
	"github.com/gallerykit/media-service/internal/services"
)

// FolderManager defines the folder service operations used over HTTP
type FolderManager interface {
	Create(ctx context.Context, caller *int64, input services.FolderInput) (*models.Folder, error)
	Get(ctx context.Context, id int64, caller *int64) (*models.Folder, error)
	List(ctx context.Context, caller *int64, parentID *int64) ([]models.Folder, error)
	Update(ctx context.Context, id int64, caller *int64, input services.FolderInput) (*models.Folder, error)
	Delete(ctx context.Context, id int64, caller *int64) error
}

// FolderHandler handles folder-related HTTP requests
type FolderHandler struct {
	BaseHandler
	service FolderManager
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(service FolderManager, logger *zap.Logger) *FolderHandler {
	return &FolderHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     service,
	}
}

// RegisterRoutes registers all folder handler routes
func (h *FolderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/folders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type folderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// Create handles POST /folders
// @Summary Create folder
// @Description Create a folder owned by the caller, optionally under a parent
// @Tags folders
// @Accept json
// @Produce json
// @Param request body folderRequest true "Folder attributes"
// @Success 201 {object} models.Folder
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Parent not found"
// @Failure 422 {object} map[string]any "Validation failed"
// @Router /folders [post]
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.service.Create(r.Context(), auth.GetUserID(r.Context()), services.FolderInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.RespondServiceError(w, err, "failed to create folder")
		return
	}

	h.RespondJSON(w, http.StatusCreated, folder)
}

// List handles GET /folders
// @Summary List folders
// @Description List the caller's folders at one tree level; omit parent_id for the root level
// @Tags folders
// @Produce json
// @Param parent_id query int false "Parent folder ID"
// @Success 200 {array} models.Folder
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /folders [get]
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	var parentID *int64
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		parentID = &value
	}

	folders, err := h.service.List(r.Context(), auth.GetUserID(r.Context()), parentID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to list folders")
		return
	}
	if folders == nil {
		folders = []models.Folder{}
	}

	h.RespondJSON(w, http.StatusOK, folders)
}

// Get handles GET /folders/{id}
// @Summary Get folder
// @Description Retrieve a folder with its aggregates and direct children
// @Tags folders
// @Produce json
// @Param id path int true "Folder ID"
// @Success 200 {object} models.Folder
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /folders/{id} [get]
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	folder, err := h.service.Get(r.Context(), id, auth.GetUserID(r.Context()))
	if err != nil {
		h.RespondServiceError(w, err, "failed to get folder")
		return
	}

	h.RespondJSON(w, http.StatusOK, folder)
}

// Update handles PUT /folders/{id}
// @Summary Update folder
// @Description Rename a folder or move it under a new parent; moves into the folder's own subtree are rejected
// @Tags folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Param request body folderRequest true "Fields to update"
// @Success 200 {object} models.Folder
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 422 {object} map[string]any "Validation failed"
// @Router /folders/{id} [put]
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.service.Update(r.Context(), id, auth.GetUserID(r.Context()), services.FolderInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		h.RespondServiceError(w, err, "failed to update folder")
		return
	}

	h.RespondJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /folders/{id}
// @Summary Delete folder
// @Description Delete a folder subtree: descendants first, each folder's media included
// @Tags folders
// @Produce json
// @Param id path int true "Folder ID"
// @Success 200 {object} map[string]any "Deleted"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /folders/{id} [delete]
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, auth.GetUserID(r.Context())); err != nil {
		h.RespondServiceError(w, err, "failed to delete folder")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "folder deleted"})
}

func (h *FolderHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
