package storage

import (
	"context"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenshapw/poemVerse/internal/imageurl"
)

func multipartRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="poem.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newUploadRouter(chain *Chain, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(chain, imageurl.NewNormalizer("https://images.shipian.app", "public"), maxBytes).Register(r)
	return r
}

func TestUploadImageNormalizesURL(t *testing.T) {
	chain := NewChain(nil, nil, &fakeProvider{name: "cloudflare", available: true, url: "https://imagedelivery.net/acct/img-1/public"})
	r := newUploadRouter(chain, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "image/jpeg", []byte("data")))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://images.shipian.app/images/img-1/public", resp["url"])
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	p := &fakeProvider{name: "cloudflare", available: true, url: "https://x"}
	r := newUploadRouter(NewChain(nil, nil, p), 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "text/plain", []byte("data")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, p.calls)
}

func TestUploadImageTooLarge(t *testing.T) {
	p := &fakeProvider{name: "cloudflare", available: true, url: "https://x"}
	r := newUploadRouter(NewChain(nil, nil, p), 64)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "image/png", bytes.Repeat([]byte("a"), 4096)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, p.calls)
}

func TestUploadImageExhausted(t *testing.T) {
	r := newUploadRouter(NewChain(nil, nil, &fakeProvider{name: "s3", available: false}), 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "image/png", []byte("data")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStorageStatus(t *testing.T) {
	r := newUploadRouter(NewChain(nil, nil, &fakeProvider{name: "s3", available: true}), 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":[{"name":"s3","available":true,"priority":1}]}`, w.Body.String())
}

func TestUploadImageSurvivesClientDisconnect(t *testing.T) {
	p := &fakeProvider{name: "cloudflare", available: true, url: "https://imagedelivery.net/acct/img-2/public"}
	r := newUploadRouter(NewChain(nil, nil, p), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := multipartRequest(t, "image/png", []byte("data")).WithContext(ctx)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, p.calls)
	assert.NoError(t, p.ctxErr)
}
