package transport

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 5 << 20 // 5 MiB

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadResponse returns the public path of a stored image
type UploadResponse struct {
	Image string `json:"image"`
}

// UploadHandler stores product and profile images on local disk
type UploadHandler struct {
	uploadDir string
	logger    *zap.Logger
}

// NewUploadHandler creates a new UploadHandler. The directory is created if
// it does not exist.
func NewUploadHandler(uploadDir string, logger *zap.Logger) (*UploadHandler, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}
	return &UploadHandler{
		uploadDir: uploadDir,
		logger:    logger,
	}, nil
}

// RegisterRoutes registers the upload route and the static file server for
// previously uploaded images
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/api/upload", h.Upload)
	})

	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)
}

// Upload accepts a multipart image and stores it under a random name
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		middleware.RespondWithError(w, http.StatusBadRequest, "unsupported image type")
		return
	}

	name := uuid.New().String() + ext
	dstPath := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		h.logger.Error("Failed to create upload file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("Failed to write upload file", zap.Error(err))
		os.Remove(dstPath)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	h.logger.Info("Image uploaded", zap.String("file", name))
	middleware.RespondWithJSON(w, http.StatusCreated, UploadResponse{Image: "/uploads/" + name})
}
