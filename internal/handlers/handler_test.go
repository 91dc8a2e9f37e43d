package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/api/middleware"
	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/render"
	"github.com/slidrapp/slidr/internal/storage"
	"github.com/slidrapp/slidr/internal/store"
	"github.com/slidrapp/slidr/internal/upload"
)

type blankDocument struct{ pages int }

func (d blankDocument) NumPage() int  { return d.pages }
func (d blankDocument) Title() string { return "" }
func (d blankDocument) Close() error  { return nil }
func (d blankDocument) RenderPage(_, width int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, width, width/2)), nil
}

type blankRenderer struct{ pages int }

func (r blankRenderer) Open([]byte) (render.Document, error) {
	return blankDocument{pages: r.pages}, nil
}

type testEnv struct {
	handler  *Handler
	store    *store.SQLiteStore
	redis    *store.RedisStore
	pipeline *upload.Pipeline
	router   chi.Router
}

func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "slidr.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	bucket, err := storage.NewFileBucket(t.TempDir(), "https://slidr.test/files")
	require.NoError(t, err)

	env := &testEnv{store: s}
	opts := Options{
		Store:     s,
		Logger:    zerolog.Nop(),
		PublicURL: "https://slidr.test/",
		MaxUpload: 1 << 20,
	}
	pipelineOpts := upload.Options{
		Store:    s,
		Bucket:   bucket,
		Renderer: blankRenderer{pages: 2},
		Width:    32,
		Logger:   zerolog.Nop(),
	}
	if withRedis {
		mr := miniredis.RunT(t)
		env.redis, err = store.NewRedisStore(ctx, "redis://"+mr.Addr())
		require.NoError(t, err)
		t.Cleanup(func() { _ = env.redis.Close() })
		opts.Redis = env.redis
		pipelineOpts.Cache = env.redis
	}
	env.pipeline = upload.NewPipeline(pipelineOpts)
	t.Cleanup(env.pipeline.Close)
	opts.Pipeline = env.pipeline

	env.handler = NewHandler(opts)
	h := env.handler

	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/users", h.Register)
	r.Get("/users/{id}", h.Who)
	r.Get("/presentations", h.ListPresentations)
	r.Post("/presentations", h.UploadPresentation)
	r.Get("/presentations/{id}", h.GetPresentation)
	r.Get("/presentations/{id}/status", h.UploadStatus)
	r.Get("/presentations/{id}/reactions", h.GetReactions)
	r.Put("/presentations/{id}/preferences", h.UpdatePreferences)
	r.Get("/{prefix:[pfis]}/*", h.RenderForBot)
	env.router = r

	return env
}

// do serves a request, authenticating it as user when non-nil.
func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, user *models.User, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.store.CreateUser(context.Background(), name, "", "hash")
	require.NoError(t, err)
	return u
}

// rendered creates a rendered presentation owned by u with the given page URLs.
func (e *testEnv) rendered(t *testing.T, u *models.User, title string, pages ...string) *models.Presentation {
	t.Helper()
	ctx := context.Background()
	p := &models.Presentation{UID: u.ID, Username: u.Username, Title: title}
	require.NoError(t, e.store.CreatePresentation(ctx, p))
	require.NoError(t, e.store.SetRendered(ctx, p.ID, title, pages, models.DefaultNotes(len(pages)), time.Now().UTC()))
	got, err := e.store.GetPresentation(ctx, p.ID)
	require.NoError(t, err)
	return got
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
