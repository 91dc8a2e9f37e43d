package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/crypto"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/users", jsonBody(t, RegisterRequest{Username: "ada", TwitterHandle: "ada_l"}), nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[RegisterResponse](t, rec)
	assert.Equal(t, "ada", resp.Username)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "/users/"+resp.ID, resp.ProfileURL)

	id, ok := crypto.ParseUserID(resp.ID)
	require.True(t, ok)
	user, err := env.store.GetUserByID(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "@ada_l", user.TwitterHandle)
	assert.NoError(t, crypto.VerifyToken(user.TokenHash, resp.Token))
	assert.NotContains(t, rec.Body.String(), user.TokenHash)
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t, false)
	env.user(t, "ada")

	rec := env.do(t, http.MethodPost, "/users", jsonBody(t, RegisterRequest{Username: "ada"}), nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "short username", body: `{"username":"ab"}`},
		{name: "spaces", body: `{"username":"a b c"}`},
		{name: "bad twitter", body: `{"username":"grace","twitter_handle":"way-too-long-handle-here"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/users", strings.NewReader(tt.body), nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestWho(t *testing.T) {
	env := newTestEnv(t, false)
	u := env.user(t, "ada")

	rec := env.do(t, http.MethodGet, "/users/"+u.ID.String(), nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[WhoResponse](t, rec)
	assert.Equal(t, "ada", resp.Username)
	assert.NotEmpty(t, resp.JoinedAt)

	rec = env.do(t, http.MethodGet, "/users/not-a-uuid", nil, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/"+crypto.NewUUIDv7().String(), nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
