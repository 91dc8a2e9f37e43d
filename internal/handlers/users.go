package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/slidrapp/slidr/internal/crypto"
	"github.com/slidrapp/slidr/internal/metrics"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username      string `json:"username"`
	TwitterHandle string `json:"twitter_handle"`
}

// RegisterResponse is returned once; the token is not recoverable later.
type RegisterResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Token      string `json:"token"`
	ProfileURL string `json:"profile_url"`
}

// Register creates a presentation owner and issues its API token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if !usernameRegex.MatchString(username) {
		h.Error(w, http.StatusBadRequest, "username must be 3-32 letters, digits or underscores")
		return
	}

	twitter := strings.TrimSpace(req.TwitterHandle)
	if twitter != "" {
		if !twitterRegex.MatchString(twitter) {
			h.Error(w, http.StatusBadRequest, "invalid twitter_handle")
			return
		}
		twitter = "@" + strings.TrimPrefix(twitter, "@")
	}

	existing, err := h.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "username already taken")
		return
	}

	token, err := crypto.NewToken()
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	hash, err := crypto.HashToken(token)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	user, err := h.store.CreateUser(r.Context(), username, twitter, hash)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	metrics.UsersRegistered.Inc()
	h.logger.Info().Str("user", user.ID.String()).Str("username", user.Username).Msg("user registered")

	h.JSON(w, http.StatusCreated, RegisterResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Token:      token,
		ProfileURL: "/users/" + user.ID.String(),
	})
}
