package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/crypto"
	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/store"
)

func TestRequireAuth(t *testing.T) {
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer s.Close()

	token, err := crypto.NewToken()
	require.NoError(t, err)
	hash, err := crypto.HashToken(token)
	require.NoError(t, err)
	user, err := s.CreateUser(context.Background(), "ada", "", hash)
	require.NoError(t, err)

	var seen *models.User
	handler := NewAuthMiddleware(s).RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		user   string
		auth   string
		status int
	}{
		{name: "valid", user: user.ID.String(), auth: "Bearer " + token, status: http.StatusNoContent},
		{name: "lowercase scheme", user: user.ID.String(), auth: "bearer " + token, status: http.StatusNoContent},
		{name: "missing headers", status: http.StatusUnauthorized},
		{name: "missing token", user: user.ID.String(), status: http.StatusUnauthorized},
		{name: "basic scheme", user: user.ID.String(), auth: "Basic " + token, status: http.StatusUnauthorized},
		{name: "bad user id", user: "nope", auth: "Bearer " + token, status: http.StatusUnauthorized},
		{name: "unknown user", user: crypto.NewUUIDv7().String(), auth: "Bearer " + token, status: http.StatusUnauthorized},
		{name: "wrong token", user: user.ID.String(), auth: "Bearer wrong", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPut, "/presentations/x/preferences", nil)
			if tt.user != "" {
				req.Header.Set(HeaderUser, tt.user)
			}
			if tt.auth != "" {
				req.Header.Set(HeaderAuthorization, tt.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, user.ID, seen.ID)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestGetUserFromContextEmpty(t *testing.T) {
	assert.Nil(t, GetUserFromContext(context.Background()))
}
