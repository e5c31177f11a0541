package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
)

const (
	formFieldFile = "file"
	// Leaves room for multipart framing around a maximum-size image.
	maxUploadBody = services.MaxImageSize + 1<<20
)

// MediaHandler streams stored media objects.
type MediaHandler struct {
	mediaService *services.MediaService
	logger       *slog.Logger
}

func NewMediaHandler(mediaService *services.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, logger: logger}
}

func MediaRouter(r chi.Router, h *MediaHandler) {
	r.Get("/*", h.GetObject)
}

func (h *MediaHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	obj, err := h.mediaService.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.WarnContext(r.Context(), "media stream interrupted", "error", err)
	}
}

// formFile returns the uploaded file part of a multipart request.
func formFile(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		return nil, errors.New("invalid multipart form")
	}
	file, _, err := r.FormFile(formFieldFile)
	if err != nil {
		return nil, errors.New("file is required")
	}
	return file, nil
}
