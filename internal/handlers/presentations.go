package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slidrapp/slidr/internal/api/middleware"
	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/metrics"
	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/upload"
)

// PresentationInfo represents a presentation in the list response.
type PresentationInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Username   string `json:"username"`
	Cover      string `json:"cover"`
	SlideCount int    `json:"slideCount"`
	Rendered   string `json:"rendered"`
}

// PresentationListResponse represents the presentations list response.
type PresentationListResponse struct {
	Presentations []PresentationInfo `json:"presentations"`
	Total         int                `json:"total"`
}

// ListPresentations lists rendered presentations, oldest render first.
func (h *Handler) ListPresentations(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	docs, total, err := h.store.ListRenderedPresentations(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	items := make([]PresentationInfo, len(docs))
	for i, p := range docs {
		items[i] = PresentationInfo{
			ID:         p.ID,
			Title:      p.Title,
			Username:   p.Username,
			Cover:      p.PageURL(0),
			SlideCount: p.SlideCount(),
		}
		if p.Rendered != nil {
			items[i].Rendered = p.Rendered.UTC().Format(time.RFC3339)
		}
	}

	h.JSON(w, http.StatusOK, PresentationListResponse{
		Presentations: items,
		Total:         total,
	})
}

// GetPresentation returns one presentation document.
func (h *Handler) GetPresentation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !broadcast.ValidSlug(id) {
		h.Error(w, http.StatusBadRequest, "invalid presentation ID")
		return
	}

	p, err := h.presentation(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "presentation not found")
		return
	}

	h.JSON(w, http.StatusOK, p)
}

// UploadResponse is returned when an upload has been accepted.
type UploadResponse struct {
	Presentation *models.Presentation `json:"presentation"`
	StatusURL    string               `json:"status_url"`
}

// UploadPresentation accepts a PDF and schedules its rendering.
func (h *Handler) UploadPresentation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		recordUpload("rejected")
		h.Error(w, http.StatusUnsupportedMediaType, "file must be a PDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if !isPDF(data) {
		recordUpload("rejected")
		h.Error(w, http.StatusUnsupportedMediaType, "file must be a PDF")
		return
	}

	title := sanitizeText(r.FormValue("title"), 200)

	p, err := h.pipeline.Start(r.Context(), user, title, data)
	if err != nil {
		if errors.Is(err, upload.ErrEmptyUpload) {
			h.Error(w, http.StatusBadRequest, "file is empty")
			return
		}
		h.logger.Error().Err(err).Str("user", user.ID.String()).Msg("upload failed")
		h.Error(w, http.StatusInternalServerError, "upload failed")
		return
	}

	h.JSON(w, http.StatusAccepted, UploadResponse{
		Presentation: p,
		StatusURL:    "/presentations/" + p.ID + "/status",
	})
}

// UploadStatus reports the upload progress of a presentation.
func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !broadcast.ValidSlug(id) {
		h.Error(w, http.StatusBadRequest, "invalid presentation ID")
		return
	}

	if progress, ok := h.pipeline.Progress(id); ok {
		h.JSON(w, http.StatusOK, progress)
		return
	}

	// Uploads tracked by another process (or before a restart) are reported from the document.
	p, err := h.store.GetPresentation(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "presentation not found")
		return
	}

	progress := upload.Progress{ID: p.ID, Status: upload.StatusRendering, UpdatedAt: p.Created}
	if p.Rendered != nil {
		progress.Status = upload.StatusDone
		progress.Page = p.SlideCount()
		progress.PageCount = p.SlideCount()
		progress.UpdatedAt = *p.Rendered
	}
	h.JSON(w, http.StatusOK, progress)
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// recordUpload counts rejected uploads that never reached the pipeline.
func recordUpload(status string) {
	metrics.Uploads.WithLabelValues(status).Inc()
}
