package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/flex-cms/pkg/flexcms"
)

// MediaHandler handles HTTP requests for uploaded media
type MediaHandler struct {
	service flexcms.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service flexcms.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.UploadMedia)
	r.Get("/{id}", h.GetMedia)
	r.Get("/{id}/file", h.DownloadMedia)

	return r
}

const maxUploadSize = 64 << 20 // 64 MiB

// UploadMedia stores a multipart file upload and registers it as media
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	media, err := h.service.UploadMedia(r.Context(), flexcms.UploadMediaRequest{
		Filename: header.Filename,
		Path:     r.FormValue("path"),
		Alt:      r.FormValue("alt"),
		Type:     header.Header.Get("Content-Type"),
		Reader:   file,
	})
	if err != nil {
		slog.Error("Failed to upload media", "filename", header.Filename, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Media uploaded", "media_id", media.ID.String(), "filename", media.Filename)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

// GetMedia retrieves the media record by id
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	media, err := h.service.GetMediaByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, flexcms.ErrMediaNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get media", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, media)
}

// DownloadMedia streams the stored file
func (h *MediaHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	media, err := h.service.GetMediaByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, flexcms.ErrMediaNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to get media", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := h.service.DownloadMedia(r.Context(), media)
	if err != nil {
		slog.Error("Failed to download media", "media_id", media.ID.String(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer body.Close()

	if media.Type != "" {
		w.Header().Set("Content-Type", media.Type)
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.Error("Failed to stream media", "media_id", media.ID.String(), "error", err)
	}
}
