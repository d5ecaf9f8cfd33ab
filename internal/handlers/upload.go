package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/my-app/apiserver/internal/storage"
)

const (
	maxUploadMemory = 32 << 20
	maxUploadFiles  = 10
	uploadFolder    = "uploads"
	formFieldFile   = "file"
	formFieldFiles  = "files"
)

// UploadHandler stores uploaded files in object storage.
type UploadHandler struct {
	storage   *storage.Storage
	publicURL string
}

// NewUploadHandler constructs an UploadHandler with the provided storage.
func NewUploadHandler(store *storage.Storage, publicURL string) *UploadHandler {
	return &UploadHandler{
		storage:   store,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// UploadRouter registers upload routes on the given router. All routes
// require authentication.
func UploadRouter(r chi.Router, store *storage.Storage, publicURL string, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUploadHandler(store, publicURL)

	r.With(authMiddleware).Post("/single", handler.UploadSingle)
	r.With(authMiddleware).Post("/multiple", handler.UploadMultiple)
	r.With(authMiddleware).Delete("/*", handler.Delete)
	r.Get("/*", handler.Download)
}

// UploadSingle stores one file from the "file" form field.
func (h *UploadHandler) UploadSingle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	result, err := h.store(r, file, header)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// UploadMultiple stores up to 10 files from the "files" form field.
func (h *UploadHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	if r.MultipartForm == nil {
		writeError(w, http.StatusBadRequest, "files are required")
		return
	}
	headers := r.MultipartForm.File[formFieldFiles]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files are required")
		return
	}
	if len(headers) > maxUploadFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per request", maxUploadFiles))
		return
	}

	results := make([]UploadResult, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid file")
			return
		}

		result, err := h.store(r, file, header)
		_ = file.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store file")
			return
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusCreated, results)
}

// Delete removes a stored object by key.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing object key")
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Download streams a stored object by key.
func (h *UploadHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing object key")
		return
	}

	object, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer object.Close()

	if _, err := io.Copy(w, object); err != nil {
		return
	}
}

func (h *UploadHandler) store(r *http.Request, file multipart.File, header *multipart.FileHeader) (UploadResult, error) {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s%s", uploadFolder, uuid.NewString(), path.Ext(header.Filename))
	if err := h.storage.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		Key:      key,
		URL:      h.objectURL(key),
		Bucket:   h.storage.Bucket(),
		Size:     header.Size,
		MimeType: contentType,
	}, nil
}

func (h *UploadHandler) objectURL(key string) string {
	if h.publicURL == "" {
		return key
	}
	return h.publicURL + "/" + key
}

// UploadResult describes a stored object.
type UploadResult struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Bucket   string `json:"bucket"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}
