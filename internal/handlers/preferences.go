package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slidrapp/slidr/internal/api/middleware"
	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/models"
)

const maxNoteLength = 10000

// PreferencesRequest replaces the editable fields of a presentation.
type PreferencesRequest struct {
	Title string        `json:"title"`
	Notes []models.Note `json:"notes"`
}

// UpdatePreferences lets the owner edit the title and speaker notes.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !broadcast.ValidSlug(id) {
		h.Error(w, http.StatusBadRequest, "invalid presentation ID")
		return
	}

	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := h.store.GetPresentation(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "presentation not found")
		return
	}
	if p.UID != user.ID {
		h.Error(w, http.StatusForbidden, "not the owner of this presentation")
		return
	}

	if err := validateNotes(req.Notes, p.SlideCount()); err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	title := sanitizeText(req.Title, 200)
	if req.Notes == nil {
		req.Notes = p.Notes
	}

	if err := h.store.UpdatePreferences(r.Context(), id, title, req.Notes); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	h.invalidate(r.Context(), id)

	p.Title = title
	p.Notes = req.Notes
	h.JSON(w, http.StatusOK, p)
}

// validateNotes checks that every note names at least one existing page.
func validateNotes(notes []models.Note, pageCount int) error {
	for i, note := range notes {
		if len(note.PageIndices) == 0 {
			return fmt.Errorf("note %d has no pages", i)
		}
		for _, idx := range note.PageIndices {
			if idx < 0 || idx >= pageCount {
				return fmt.Errorf("note %d references page %d out of range", i, idx)
			}
		}
		if len(note.Markdown) > maxNoteLength {
			return fmt.Errorf("note %d is too long", i)
		}
	}
	return nil
}

// ReactionsResponse lists reaction tallies for a session.
type ReactionsResponse struct {
	Session   string                 `json:"session"`
	Reactions []models.ReactionCount `json:"reactions"`
}

// GetReactions returns how many reactions of each kind a session received.
func (h *Handler) GetReactions(w http.ResponseWriter, r *http.Request) {
	session, err := broadcast.SessionID(chi.URLParam(r, "id"), r.URL.Query().Get("session"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session")
		return
	}

	resp := ReactionsResponse{Session: session, Reactions: []models.ReactionCount{}}
	if h.redis == nil {
		h.JSON(w, http.StatusOK, resp)
		return
	}

	counts, err := h.redis.GetReactionCounts(r.Context(), session)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read reactions")
		return
	}
	resp.Reactions = counts
	h.JSON(w, http.StatusOK, resp)
}
