package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"freebites/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestUploadImage_Success(t *testing.T) {
	t.Parallel()

	var gotPreset string
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		gotPreset = r.FormValue("upload_preset")
		assert.NotEmpty(t, r.FormValue("public_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://img.example/abc.png","public_id":"abc"}`))
	}))
	defer store.Close()

	svc := NewUploadService(store.URL, "board-unsigned")

	url, err := svc.UploadImage(context.Background(), "pizza.png", "image/png", encodePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/abc.png", url)
	assert.Equal(t, "board-unsigned", gotPreset)
}

func TestUploadImage_StoreFailure(t *testing.T) {
	t.Parallel()

	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer store.Close()

	svc := NewUploadService(store.URL, "board-unsigned")

	_, err := svc.UploadImage(context.Background(), "pizza.png", "image/png", encodePNG(t, 10, 10))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUploadFailed, appErr.Code)
}

func TestUploadImage_RejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	svc := NewUploadService("http://unused.example", "board-unsigned")

	_, err := svc.UploadImage(context.Background(), "notes.pdf", "application/pdf", []byte("%PDF"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestUploadImage_RejectsOversizedDimensions(t *testing.T) {
	t.Parallel()

	svc := NewUploadService("http://unused.example", "board-unsigned")

	_, err := svc.UploadImage(context.Background(), "huge.png", "image/png", encodePNG(t, MaxImageDimension+1, 1))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestUploadImage_RejectsUndecodableImage(t *testing.T) {
	t.Parallel()

	svc := NewUploadService("http://unused.example", "board-unsigned")

	_, err := svc.UploadImage(context.Background(), "fake.png", "image/png", []byte("not a png"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}
