package transport

import (
	"errors"
	"net/http"

	"feira-smart/internal/middleware"
	"feira-smart/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadResponse carries the public URL of a stored image
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadHandler accepts image uploads for products, stalls and markets
type UploadHandler struct {
	store  storage.ImageStore
	logger *zap.Logger
}

// NewUploadHandler creates a new UploadHandler. A nil store disables uploads.
func NewUploadHandler(store storage.ImageStore, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// RegisterRoutes registers the upload route for authenticated users
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/api/uploads", h.Upload)
}

// Upload handles POST /api/uploads with a multipart "file" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	if h.store == nil {
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "uploads are disabled")
		return
	}

	// Leave room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1<<10)
	if err := r.ParseMultipartForm(storage.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "image must be at most 5 MiB")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxImageSize {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "image must be at most 5 MiB")
		return
	}

	// Trust the bytes, not the client's header
	sniff := make([]byte, 512)
	n, _ := file.Read(sniff)
	contentType := http.DetectContentType(sniff[:n])
	if _, err := file.Seek(0, 0); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "unreadable file")
		return
	}

	url, err := h.store.PutImage(r.Context(), c.UserID, file, header.Size, contentType)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
