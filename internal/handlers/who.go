package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slidrapp/slidr/internal/crypto"
)

// WhoResponse represents the public user profile.
type WhoResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	TwitterHandle string `json:"twitter_handle,omitempty"`
	JoinedAt      string `json:"joined_at"`
}

// Who handles user profile lookup.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	id, ok := crypto.ParseUserID(chi.URLParam(r, "id"))
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, WhoResponse{
		ID:            user.ID.String(),
		Username:      user.Username,
		TwitterHandle: user.TwitterHandle,
		JoinedAt:      user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
