package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/slidrapp/slidr/internal/crypto"
	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// Auth headers.
const (
	HeaderUser          = "X-Slidr-User"
	HeaderAuthorization = "Authorization"
)

// AuthMiddleware checks bearer tokens for authenticated endpoints.
type AuthMiddleware struct {
	store store.DocumentStore
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(s store.DocumentStore) *AuthMiddleware {
	return &AuthMiddleware{store: s}
}

// RequireAuth verifies X-Slidr-User and its bearer token against the stored hash.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userHeader := r.Header.Get(HeaderUser)
		token, ok := bearerToken(r.Header.Get(HeaderAuthorization))
		if userHeader == "" || !ok {
			jsonError(w, http.StatusUnauthorized, "missing auth headers")
			return
		}

		userID, valid := crypto.ParseUserID(userHeader)
		if !valid {
			jsonError(w, http.StatusUnauthorized, "invalid user ID format")
			return
		}

		user, err := m.store.GetUserByID(r.Context(), userID)
		if err != nil || user == nil {
			jsonError(w, http.StatusUnauthorized, "user not found")
			return
		}

		if err := crypto.VerifyToken(user.TokenHash, token); err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
