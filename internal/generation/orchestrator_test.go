package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenshapw/poemVerse/internal/config"
	"github.com/owenshapw/poemVerse/internal/media"
)

type fakeBackend struct {
	name      string
	available bool
	data      []byte
	err       error
	calls     int
	ctxErr    error
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Generate(ctx context.Context, _, _ string) (Result, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Data: f.data, ContentType: media.ContentTypePNG}, nil
}

type countingRenderer struct {
	calls int
	inner Renderer
}

func (r *countingRenderer) Render(req Request) ([]byte, error) {
	r.calls++
	return r.inner.Render(req)
}

func TestFallbackToSecondBackend(t *testing.T) {
	a := &fakeBackend{name: "stability", available: true, err: errors.New("status 500")}
	b := &fakeBackend{name: "huggingface", available: true, data: []byte("from-b")}
	renderer := &countingRenderer{inner: NewPoster(nil, nil)}
	o := NewOrchestrator(renderer, nil, nil, a, b)

	for i := 0; i < 3; i++ {
		res, err := o.Generate(context.Background(), Request{Title: "春晓", Body: "春眠不觉晓"})
		require.NoError(t, err)
		assert.Equal(t, []byte("from-b"), res.Data)
		assert.Equal(t, "huggingface", res.Source)
	}
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, 0, renderer.calls)
}

func TestPrimaryWinsAndSecondaryIsNotCalled(t *testing.T) {
	a := &fakeBackend{name: "stability", available: true, data: []byte("from-a")}
	b := &fakeBackend{name: "huggingface", available: true, data: []byte("from-b")}
	o := NewOrchestrator(NewPoster(nil, nil), nil, nil, a, b)

	res, err := o.Generate(context.Background(), Request{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, "stability", res.Source)
	assert.Equal(t, 0, b.calls)
}

func TestRendererWhenBackendsUnavailable(t *testing.T) {
	a := &fakeBackend{name: "stability"}
	b := &fakeBackend{name: "huggingface"}
	o := NewOrchestrator(NewPoster(nil, nil), nil, nil, a, b)

	res, err := o.Generate(context.Background(), Request{Title: "T", Body: "L1\nL2"})
	require.NoError(t, err)
	assert.Equal(t, SourceRenderer, res.Source)
	assert.Equal(t, media.ContentTypePNG, res.ContentType)
	assert.True(t, media.IsPNG(res.Data))
	assert.Equal(t, 0, a.calls+b.calls)
}

func TestExhaustedWithoutRenderer(t *testing.T) {
	a := &fakeBackend{name: "stability", available: true, err: errors.New("timeout")}
	o := NewOrchestrator(nil, nil, nil, a)

	_, err := o.Generate(context.Background(), Request{Title: "T"})
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestBackendCallsIgnoreCallerCancellation(t *testing.T) {
	a := &fakeBackend{name: "stability", available: true, data: []byte("ok")}
	o := NewOrchestrator(nil, nil, nil, a).WithTimeout(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Generate(ctx, Request{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), res.Data)
	assert.NoError(t, a.ctxErr)
}

func TestPosterDimensions(t *testing.T) {
	data, err := NewPoster([]string{"/nonexistent/font.ttf"}, nil).Render(Request{
		Title:  "静夜思",
		Body:   "床前明月光，疑是地上霜。\n举头望明月，低头思故乡。",
		Author: "李白",
		Tags:   []string{"古风", "思乡"},
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1200, 1600), img.Bounds())
}

func TestPosterFallsBackToEmbeddedFont(t *testing.T) {
	p := NewPoster([]string{"/nonexistent/a.ttc", "/nonexistent/b.ttf"}, nil)
	assert.Equal(t, "goregular", p.FontName())
}

func TestWrapLines(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{name: "Hard breaks", body: "L1\nL2", expected: []string{"L1", "L2"}},
		{name: "Blank lines dropped", body: "a\n\nb\r\n", expected: []string{"a", "b"}},
		{name: "Long line wrapped by rune", body: "一二三四五六七八九十甲乙丙丁戊己庚", expected: []string{"一二三四五六七八九十甲乙丙丁戊", "己庚"}},
		{name: "Empty", body: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WrapLines(tt.body, 15))
		})
	}
}

func pngFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestStabilityDecodesArtifact(t *testing.T) {
	img := pngFixture(t)
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"artifacts":[{"base64":"` + base64.StdEncoding.EncodeToString(img) + `","finishReason":"SUCCESS"}]}`))
	}))
	defer srv.Close()

	s := NewStability(config.GeneratorConfig{APIKey: "key", URL: srv.URL})
	require.True(t, s.Available())

	res, err := s.Generate(context.Background(), "p", "n")
	require.NoError(t, err)
	assert.Equal(t, img, res.Data)
	assert.Equal(t, "Bearer key", gotAuth)
}

func TestStabilityErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewStability(config.GeneratorConfig{APIKey: "key", URL: srv.URL}).Generate(context.Background(), "p", "n")
	assert.ErrorContains(t, err, "status 429")
}

func TestHuggingFaceRejectsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
	}))
	defer srv.Close()

	_, err := NewHuggingFace(config.GeneratorConfig{APIKey: "key", URL: srv.URL}).Generate(context.Background(), "p", "n")
	assert.ErrorContains(t, err, "not an image")
}

func TestHuggingFaceReturnsImageBytes(t *testing.T) {
	img := pngFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	res, err := NewHuggingFace(config.GeneratorConfig{APIKey: "key", URL: srv.URL}).Generate(context.Background(), "p", "n")
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, img, res.Data)
}

func TestBackendsUnavailableWithoutKey(t *testing.T) {
	assert.False(t, NewStability(config.GeneratorConfig{URL: "https://x"}).Available())
	assert.False(t, NewHuggingFace(config.GeneratorConfig{URL: "https://x"}).Available())
}
