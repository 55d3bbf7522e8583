package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/auth"
	"github.com/gallerykit/media-service/internal/models"
	"github.com/gallerykit/media-service/internal/services"
)

// MediaManager defines the media service operations used over HTTP
type MediaManager interface {
	Upload(ctx context.Context, input services.UploadInput) (*models.Media, error)
	List(ctx context.Context, caller *int64, filter services.ListFilter) (*models.MediaPage, error)
	Get(ctx context.Context, id int64, caller *int64) (*models.Media, error)
	Update(ctx context.Context, id int64, caller *int64, input services.UpdateInput) (*models.Media, error)
	Delete(ctx context.Context, id int64, caller *int64) error
	BulkDelete(ctx context.Context, ids []int64, caller *int64) int
	Download(ctx context.Context, id int64, caller *int64) (*services.DownloadResult, error)
	ListBuckets(ctx context.Context, caller *int64, dateFrom, dateTo string) ([]models.DateBucket, error)
}

// MediaHandler handles media-related HTTP requests
type MediaHandler struct {
	BaseHandler
	service      MediaManager
	maxUploadMem int64
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service MediaManager, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		service:      service,
		maxUploadMem: 32 << 20,
	}
}

// RegisterRoutes registers all media handler routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/media", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Upload)
		r.Get("/buckets", h.ListBuckets)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/download", h.Download)
	})
}

// List handles GET /media
// @Summary List media
// @Description List media visible to the caller with optional filters, newest first
// @Tags media
// @Produce json
// @Param folder_id query int false "Folder ID"
// @Param date query string false "Bucket date (YYYY-MM-DD)"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param type query string false "File type" Enums(image, video, audio, document, other)
// @Param search query string false "Substring over name, original name and description"
// @Param tags query string false "Comma-separated tag IDs"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} models.MediaPage
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /media [get]
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := auth.GetUserID(r.Context())
	q := r.URL.Query()

	filter := services.ListFilter{
		FolderID:   queryInt64Ptr(q, "folder_id"),
		BucketDate: q.Get("date"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		Type:       q.Get("type"),
		Search:     q.Get("search"),
		TagIDs:     queryTagIDs(q),
		Page:       queryInt(q, "page", 1),
		PerPage:    queryInt(q, "per_page", 20),
	}

	page, err := h.service.List(r.Context(), caller, filter)
	if err != nil {
		h.RespondServiceError(w, err, "failed to list media")
		return
	}

	h.RespondJSON(w, http.StatusOK, page)
}

// Upload handles POST /media
// @Summary Upload media
// @Description Upload one file (field "file") or several (field "files[]"). Optional form fields: name, description, folder_id, tags (comma-separated IDs), tag_names (comma-separated), date (YYYY-MM-DD), disk.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "File to upload"
// @Success 201 {object} map[string]any "Created media"
// @Failure 422 {object} map[string]any "Validation failed"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /media [post]
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller := auth.GetUserID(r.Context())

	if err := r.ParseMultipartForm(h.maxUploadMem); err != nil {
		h.Logger.Info("failed to parse multipart form", zap.Error(err))
		h.RespondValidation(w, "invalid multipart request")
		return
	}

	files := collectFiles(r)
	if len(files) == 0 {
		h.RespondValidation(w, "no file provided")
		return
	}

	base := services.UploadInput{
		OwnerID:     caller,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		FolderID:    formInt64Ptr(r, "folder_id"),
		TagIDs:      splitInt64s(r.FormValue("tags")),
		TagNames:    splitStrings(r.FormValue("tag_names")),
		Disk:        r.FormValue("disk"),
	}
	if raw := r.FormValue("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.RespondValidation(w, "invalid date, expected YYYY-MM-DD")
			return
		}
		base.Date = parsed
	}

	uploaded := make([]*models.Media, 0, len(files))
	for _, fh := range files {
		media, err := h.uploadOne(r.Context(), fh, base)
		if err != nil {
			h.RespondServiceError(w, err, "failed to upload file")
			return
		}
		uploaded = append(uploaded, media)
	}

	if len(uploaded) == 1 {
		h.RespondJSON(w, http.StatusCreated, map[string]any{"success": true, "data": uploaded[0]})
		return
	}
	h.RespondJSON(w, http.StatusCreated, map[string]any{"success": true, "data": uploaded})
}

func (h *MediaHandler) uploadOne(ctx context.Context, fh *multipart.FileHeader, base services.UploadInput) (*models.Media, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	input := base
	input.Data = data
	input.OriginalName = fh.Filename
	input.MimeType = fh.Header.Get("Content-Type")
	if input.MimeType == "" {
		input.MimeType = "application/octet-stream"
	}

	return h.service.Upload(ctx, input)
}

// Get handles GET /media/{id}
// @Summary Get media
// @Description Retrieve a single media item with its tags
// @Tags media
// @Produce json
// @Param id path int true "Media ID"
// @Success 200 {object} models.Media
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /media/{id} [get]
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	media, err := h.service.Get(r.Context(), id, auth.GetUserID(r.Context()))
	if err != nil {
		h.RespondServiceError(w, err, "failed to get media")
		return
	}

	h.RespondJSON(w, http.StatusOK, media)
}

type updateMediaRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	FolderID    *int64   `json:"folder_id"`
	TagIDs      *[]int64 `json:"tags"`
}

// Update handles PUT /media/{id}
// @Summary Update media
// @Description Rename, move or re-tag a media item; omitted fields are unchanged
// @Tags media
// @Accept json
// @Produce json
// @Param id path int true "Media ID"
// @Param request body updateMediaRequest true "Fields to update"
// @Success 200 {object} models.Media
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /media/{id} [put]
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	media, err := h.service.Update(r.Context(), id, auth.GetUserID(r.Context()), services.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		FolderID:    req.FolderID,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		h.RespondServiceError(w, err, "failed to update media")
		return
	}

	h.RespondJSON(w, http.StatusOK, media)
}

// Delete handles DELETE /media/{id}
// @Summary Delete media
// @Description Delete the item's files and tombstone its record
// @Tags media
// @Produce json
// @Param id path int true "Media ID"
// @Success 200 {object} map[string]any "Deleted"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /media/{id} [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, auth.GetUserID(r.Context())); err != nil {
		h.RespondServiceError(w, err, "failed to delete media")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "media deleted"})
}

type bulkDeleteRequest struct {
	MediaIDs []int64 `json:"media_ids"`
}

// BulkDelete handles POST /media/bulk-delete
// @Summary Bulk delete media
// @Description Delete several media items; failures are skipped and only the success count is reported
// @Tags media
// @Accept json
// @Produce json
// @Param request body bulkDeleteRequest true "Media IDs to delete"
// @Success 200 {object} map[string]any "Deleted count"
// @Failure 422 {object} map[string]any "Validation failed"
// @Router /media/bulk-delete [post]
func (h *MediaHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.MediaIDs) == 0 {
		h.RespondValidation(w, "media_ids is required")
		return
	}

	deleted := h.service.BulkDelete(r.Context(), req.MediaIDs, auth.GetUserID(r.Context()))

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}

// Download handles GET /media/{id}/download
// @Summary Download media
// @Description Stream the stored original as an attachment under its original filename
// @Tags media
// @Produce application/octet-stream
// @Param id path int true "Media ID"
// @Success 200 "File content"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Not found"
// @Router /media/{id}/download [get]
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Download(r.Context(), id, auth.GetUserID(r.Context()))
	if err != nil {
		h.RespondServiceError(w, err, "failed to download media")
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	if _, err := w.Write(result.Content); err != nil {
		h.Logger.Error("failed to write file to response", zap.Error(err))
	}
}

// ListBuckets handles GET /media/buckets
// @Summary List date buckets
// @Description List the caller's per-day aggregate counters, newest first
// @Tags media
// @Produce json
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.DateBucket
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /media/buckets [get]
func (h *MediaHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	caller := auth.GetUserID(r.Context())
	q := r.URL.Query()

	buckets, err := h.service.ListBuckets(r.Context(), caller, q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to list buckets")
		return
	}
	if buckets == nil {
		buckets = []models.DateBucket{}
	}

	h.RespondJSON(w, http.StatusOK, buckets)
}

func (h *MediaHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// collectFiles gathers uploads from both the single "file" field and
// the repeated "files[]" field
func collectFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var files []*multipart.FileHeader
	files = append(files, r.MultipartForm.File["file"]...)
	files = append(files, r.MultipartForm.File["files[]"]...)
	return files
}

func queryInt(q url.Values, key string, def int) int {
	raw := q.Get(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func queryInt64Ptr(q url.Values, key string) *int64 {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

// queryTagIDs accepts both repeated "tags[]" params and a single
// comma-separated "tags" param
func queryTagIDs(q url.Values) []int64 {
	var ids []int64
	for _, raw := range q["tags[]"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	if raw := q.Get("tags"); raw != "" {
		ids = append(ids, splitInt64s(raw)...)
	}
	return ids
}

func formInt64Ptr(r *http.Request, key string) *int64 {
	raw := r.FormValue(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

func splitInt64s(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var values []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if value, err := strconv.ParseInt(part, 10, 64); err == nil {
			values = append(values, value)
		}
	}
	return values
}

func splitStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
