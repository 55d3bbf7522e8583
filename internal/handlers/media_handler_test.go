package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gallerykit/media-service/internal/apperrors"
	"github.com/gallerykit/media-service/internal/models"
	"github.com/gallerykit/media-service/internal/services"
)

// mockMediaManager is a mock implementation of MediaManager
type mockMediaManager struct {
	uploaded   []services.UploadInput
	uploadErr  error
	media      *models.Media
	getErr     error
	page       *models.MediaPage
	lastFilter services.ListFilter
	deleteErr  error
	bulkCount  int
	download   *services.DownloadResult
	buckets    []models.DateBucket
}

func (m *mockMediaManager) Upload(ctx context.Context, input services.UploadInput) (*models.Media, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploaded = append(m.uploaded, input)
	return &models.Media{ID: int64(len(m.uploaded)), Original: input.OriginalName}, nil
}

func (m *mockMediaManager) List(ctx context.Context, caller *int64, filter services.ListFilter) (*models.MediaPage, error) {
	m.lastFilter = filter
	if m.page == nil {
		return &models.MediaPage{Items: []models.Media{}, Page: filter.Page, PerPage: filter.PerPage}, nil
	}
	return m.page, nil
}

func (m *mockMediaManager) Get(ctx context.Context, id int64, caller *int64) (*models.Media, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.media, nil
}

func (m *mockMediaManager) Update(ctx context.Context, id int64, caller *int64, input services.UpdateInput) (*models.Media, error) {
	return m.media, nil
}

func (m *mockMediaManager) Delete(ctx context.Context, id int64, caller *int64) error {
	return m.deleteErr
}

func (m *mockMediaManager) BulkDelete(ctx context.Context, ids []int64, caller *int64) int {
	return m.bulkCount
}

func (m *mockMediaManager) Download(ctx context.Context, id int64, caller *int64) (*services.DownloadResult, error) {
	if m.download == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.download, nil
}

func (m *mockMediaManager) ListBuckets(ctx context.Context, caller *int64, dateFrom, dateTo string) ([]models.DateBucket, error) {
	return m.buckets, nil
}

func setupMediaHandler(t *testing.T) (*mockMediaManager, *chi.Mux) {
	t.Helper()
	service := &mockMediaManager{}
	handler := NewMediaHandler(service, zap.NewNop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return service, router
}

func multipartBody(t *testing.T, field, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestMediaHandler_Upload(t *testing.T) {
	t.Run("single file created", func(t *testing.T) {
		service, router := setupMediaHandler(t)

		body, contentType := multipartBody(t, "file", "sunset.jpg", []byte("image-bytes"), map[string]string{
			"tags":      "3,5",
			"tag_names": "beach, vacation",
		})
		req := httptest.NewRequest(http.MethodPost, "/media", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, service.uploaded, 1)
		assert.Equal(t, "sunset.jpg", service.uploaded[0].OriginalName)
		assert.Equal(t, []byte("image-bytes"), service.uploaded[0].Data)
		assert.Equal(t, []int64{3, 5}, service.uploaded[0].TagIDs)
		assert.Equal(t, []string{"beach", "vacation"}, service.uploaded[0].TagNames)
	})

	t.Run("validation error maps to 422", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.uploadErr = apperrors.NewValidation("file type not allowed")

		body, contentType := multipartBody(t, "file", "script.sh", []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, "/media", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "file type not allowed", resp["message"])
	})

	t.Run("missing file is 422", func(t *testing.T) {
		_, router := setupMediaHandler(t)

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("name", "no file here"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/media", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestMediaHandler_List(t *testing.T) {
	service, router := setupMediaHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/media?type=image&search=sunset&tags=3,5&page=2&per_page=10&date_from=2024-03-01", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image", service.lastFilter.Type)
	assert.Equal(t, "sunset", service.lastFilter.Search)
	assert.Equal(t, []int64{3, 5}, service.lastFilter.TagIDs)
	assert.Equal(t, 2, service.lastFilter.Page)
	assert.Equal(t, 10, service.lastFilter.PerPage)
	assert.Equal(t, "2024-03-01", service.lastFilter.DateFrom)
}

func TestMediaHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.media = &models.Media{ID: 1, Name: "sunset"}

		req := httptest.NewRequest(http.MethodGet, "/media/1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.getErr = apperrors.ErrNotFound

		req := httptest.NewRequest(http.MethodGet, "/media/99", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("access denied maps to 403", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.getErr = apperrors.ErrAccessDenied

		req := httptest.NewRequest(http.MethodGet, "/media/1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad id is 400", func(t *testing.T) {
		_, router := setupMediaHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/media/abc", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unexpected error maps to 500", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.getErr = errors.New("connection reset")

		req := httptest.NewRequest(http.MethodGet, "/media/1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMediaHandler_BulkDelete(t *testing.T) {
	t.Run("reports count", func(t *testing.T) {
		service, router := setupMediaHandler(t)
		service.bulkCount = 2

		req := httptest.NewRequest(http.MethodPost, "/media/bulk-delete",
			bytes.NewBufferString(`{"media_ids":[1,2,3]}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(2), resp["deleted"])
	})

	t.Run("empty ids is 422", func(t *testing.T) {
		_, router := setupMediaHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/media/bulk-delete",
			bytes.NewBufferString(`{"media_ids":[]}`))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestMediaHandler_Download(t *testing.T) {
	service, router := setupMediaHandler(t)
	service.download = &services.DownloadResult{
		Content:  []byte("image-bytes"),
		Filename: "sunset.jpg",
		MimeType: "image/jpeg",
	}

	req := httptest.NewRequest(http.MethodGet, "/media/1/download", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sunset.jpg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("image-bytes"), rec.Body.Bytes())
}
