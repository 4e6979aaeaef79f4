package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"freebites/internal/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageDimension caps either side of an uploaded photo.
	MaxImageDimension = 2500
	// MaxUploadBytes caps the raw upload body.
	MaxUploadBytes = 10 << 20
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// UploadService forwards photos to the hosted image store using an unsigned
// upload preset, so the store credentials never reach the browser.
type UploadService struct {
	endpoint string
	preset   string
	client   *http.Client
}

func NewUploadService(endpoint, preset string) *UploadService {
	return &UploadService{
		endpoint: endpoint,
		preset:   preset,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// UploadImage validates the photo and pushes it upstream, returning the
// hosted URL. Failures are not retried; the caller simply resubmits.
func (s *UploadService) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if !allowedImageTypes[contentType] {
		return "", models.NewValidationError(fmt.Sprintf("Unsupported image type %q", contentType))
	}
	if len(data) == 0 {
		return "", models.NewValidationError("Image file is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", models.NewValidationError("Image file too large")
	}

	// HEIC is not decodable here; the upstream store re-encodes it anyway.
	if contentType != "image/heic" {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return "", models.NewValidationError("Image could not be decoded")
		}
		if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
			return "", models.NewValidationError(fmt.Sprintf("Image exceeds %dx%d pixels", MaxImageDimension, MaxImageDimension))
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("upload_preset", s.preset); err != nil {
		return "", models.NewUploadFailedError(err)
	}
	if err := writer.WriteField("public_id", uuid.NewString()); err != nil {
		return "", models.NewUploadFailedError(err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", models.NewUploadFailedError(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", models.NewUploadFailedError(err)
	}
	if err := writer.Close(); err != nil {
		return "", models.NewUploadFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return "", models.NewUploadFailedError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", models.NewUploadFailedError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", models.NewUploadFailedError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", models.NewUploadFailedError(fmt.Errorf("image store returned %d", resp.StatusCode))
	}

	var result uploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", models.NewUploadFailedError(err)
	}
	if result.SecureURL == "" {
		return "", models.NewUploadFailedError(fmt.Errorf("image store response missing secure_url"))
	}
	return result.SecureURL, nil
}
