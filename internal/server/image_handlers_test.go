package server

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osilab/ometiff/internal/testutil"
)

func TestServer_RegionHandler(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	_, mux := newTestMux(t, path)

	req := httptest.NewRequest(http.MethodGet, "/slides/s1/region?level=0&x=10&y=20&w=32&h=16", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestServer_RegionHandlerJPEG(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	_, mux := newTestMux(t, path)

	req := httptest.NewRequest(http.MethodGet, "/slides/s1/region?w=16&h=16&format=jpeg", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	_, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
}

func TestServer_RegionHandlerRejectsBadParameters(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	_, mux := newTestMux(t, path)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{"missing size", "level=0", http.StatusBadRequest},
		{"zero width", "w=0&h=10", http.StatusBadRequest},
		{"malformed level", "level=abc&w=10&h=10", http.StatusBadRequest},
		{"level out of range", "level=9&w=10&h=10", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/slides/s1/region?"+tt.query, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestServer_RegionHandlerUnknownSlide(t *testing.T) {
	_, mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/slides/s1/region?w=10&h=10", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ThumbnailHandler(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	_, mux := newTestMux(t, path)

	req := httptest.NewRequest(http.MethodGet, "/slides/s1/thumbnail?size=64", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 64)
	assert.LessOrEqual(t, img.Bounds().Dy(), 64)
}

func TestServer_ThumbnailHandlerRejectsBadSize(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	_, mux := newTestMux(t, path)

	for _, q := range []string{"size=0", "size=-5", "size=100000", "size=abc"} {
		req := httptest.NewRequest(http.MethodGet, "/slides/s1/thumbnail?"+q, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}
