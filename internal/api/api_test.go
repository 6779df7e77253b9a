package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imagecomposer "github.com/menta2k/image-composer"
	"github.com/menta2k/image-composer/pkg/assets"
	"github.com/menta2k/image-composer/pkg/catalog"
)

func createTestImage(width, height int, c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	root := t.TempDir()
	write := func(key string, data []byte) {
		path := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}
	bg := createTestImage(16, 16, color.NRGBA{0, 0, 255, 255})
	border := createTestImage(16, 16, color.NRGBA{0, 0, 0, 0})
	for _, style := range catalog.Styles() {
		for _, b := range catalog.Backgrounds() {
			write(b.AssetKey(style), bg)
		}
		for _, b := range catalog.Borders() {
			write(b.AssetKey(style), border)
		}
	}

	s := imagecomposer.New(imagecomposer.Options{
		Source: assets.Dir(root),
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, s.Start(context.Background()))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewHandler(s))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	part.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthAndCatalog(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = do(r, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Styles  []catalog.Style  `json:"styles"`
		Borders []catalog.Border `json:"borders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Styles, len(catalog.Styles()))
	assert.Len(t, got.Borders, len(catalog.Borders()))
}

func TestSelectionEndpoints(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/style", `{"id":"card"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/border", `{"color":"red"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/background", `{"name":"Plaza"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/text", `{"text":"Hi"}`).Code)

	w := do(r, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap imagecomposer.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "card", snap.Style.ID)
	assert.Equal(t, "red", snap.Border)
	assert.Equal(t, "Plaza", snap.Background)
	assert.Equal(t, "Hi", snap.Text)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/style", `{"id":"poster"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/border", `{}`).Code)
}

func TestUploadFlow(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "photo.png", "image/png", createTestImage(400, 300, color.NRGBA{0, 200, 0, 255})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var info imagecomposer.UploadInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "positioning", info.State)

	w = do(r, http.MethodPost, "/api/upload/drag", `{"dx":-10,"dy":-20}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, -10.0, info.Position.X)
	assert.Equal(t, -20.0, info.Position.Y)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodGet, "/api/upload/cropped", "").Code)

	w = do(r, http.MethodPost, "/api/upload/commit", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/upload/cropped", "")
	require.Equal(t, http.StatusOK, w.Code)
	cropped, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultStyle().Width, cropped.Bounds().Dx())

	w = do(r, http.MethodGet, "/api/upload/preview", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestUploadErrors(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "tiny.png", "image/png", createTestImage(50, 50, color.NRGBA{255, 0, 0, 255})))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/upload", "").Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/upload/commit", "").Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodGet, "/api/upload/preview", "").Code)
}

func TestRenderAndExport(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/render", "")
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultStyle().Height, img.Bounds().Dy())

	do(r, http.MethodPut, "/api/text", `{"text":"Hello there"}`)
	w = do(r, http.MethodGet, "/api/export/pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fb-square-hello-there.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = do(r, http.MethodGet, "/api/export/jpg", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/export/gif", "").Code)
}
