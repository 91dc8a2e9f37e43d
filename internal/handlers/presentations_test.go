package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/models"
	"github.com/slidrapp/slidr/internal/upload"
)

func multipartPDF(t *testing.T, contentType string, data []byte, title string) (*bytes.Buffer, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if title != "" {
		require.NoError(t, mw.WriteField("title", title))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="deck.pdf"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}

func TestUploadPresentation(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.user(t, "ada")

	body, header := multipartPDF(t, "application/pdf", []byte("%PDF-1.7 test"), "My Talk")
	rec := env.do(t, http.MethodPost, "/presentations", body, owner, header)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[UploadResponse](t, rec)
	require.NotNil(t, resp.Presentation)
	id := resp.Presentation.ID
	assert.Equal(t, "/presentations/"+id+"/status", resp.StatusURL)
	assert.Equal(t, "My Talk", resp.Presentation.Title)

	env.pipeline.Wait()

	rec = env.do(t, http.MethodGet, "/presentations/"+id+"/status", nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[upload.Progress](t, rec)
	assert.Equal(t, upload.StatusDone, progress.Status)
	assert.Equal(t, 2, progress.PageCount)

	rec = env.do(t, http.MethodGet, "/presentations/"+id, nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[models.Presentation](t, rec)
	assert.Len(t, doc.Pages, 2)
	assert.Equal(t, owner.ID, doc.UID)
}

func TestUploadPresentationRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.user(t, "ada")

	body, header := multipartPDF(t, "image/png", []byte("%PDF-1.7"), "")
	rec := env.do(t, http.MethodPost, "/presentations", body, owner, header)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, header = multipartPDF(t, "application/pdf", []byte("GIF89a"), "")
	rec = env.do(t, http.MethodPost, "/presentations", body, owner, header)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadPresentationRequiresUser(t *testing.T) {
	env := newTestEnv(t, false)

	body, header := multipartPDF(t, "application/pdf", []byte("%PDF-1.7"), "")
	rec := env.do(t, http.MethodPost, "/presentations", body, nil, header)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadStatusFromDocument(t *testing.T) {
	env := newTestEnv(t, false)
	p := env.rendered(t, env.user(t, "ada"), "Deck", "a", "b", "c")

	rec := env.do(t, http.MethodGet, "/presentations/"+p.ID+"/status", nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[upload.Progress](t, rec)
	assert.Equal(t, upload.StatusDone, progress.Status)
	assert.Equal(t, 3, progress.PageCount)

	rec = env.do(t, http.MethodGet, "/presentations/missing/status", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPresentation(t *testing.T) {
	env := newTestEnv(t, true)
	p := env.rendered(t, env.user(t, "ada"), "Deck", "a", "b")

	rec := env.do(t, http.MethodGet, "/presentations/"+p.ID, nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deck", decode[models.Presentation](t, rec).Title)

	cached, err := env.redis.GetCachedPresentation(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, cached, "rendered documents are cached on read")

	rec = env.do(t, http.MethodGet, "/presentations/nope", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/presentations/bad%20id", nil, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPresentations(t *testing.T) {
	env := newTestEnv(t, false)
	owner := env.user(t, "ada")
	first := env.rendered(t, owner, "First", "https://img/cover.jpg")
	env.rendered(t, owner, "Second", "x", "y")
	require.NoError(t, env.store.CreatePresentation(context.Background(), &models.Presentation{UID: owner.ID, Username: "ada"}))

	rec := env.do(t, http.MethodGet, "/presentations", nil, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[PresentationListResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Presentations, 2)
	assert.Equal(t, first.ID, resp.Presentations[0].ID)
	assert.Equal(t, "https://img/cover.jpg", resp.Presentations[0].Cover)
	assert.Equal(t, 2, resp.Presentations[1].SlideCount)
	assert.NotEmpty(t, resp.Presentations[0].Rendered)

	rec = env.do(t, http.MethodGet, "/presentations?limit=1&offset=1", nil, nil, nil)
	resp = decode[PresentationListResponse](t, rec)
	require.Len(t, resp.Presentations, 1)
	assert.Equal(t, "Second", resp.Presentations[0].Title)
}
