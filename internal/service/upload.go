package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/storage"
)

// MaxUploadSize is the largest file accepted through the upload endpoint.
const MaxUploadSize = 10 << 20 // 10 MiB

// allowedUploadTypes maps the accepted content types to their canonical
// file extensions. Anything else is rejected before touching storage.
var allowedUploadTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// UploadService stores user-supplied files in the object store and returns
// their public URLs.
type UploadService struct {
	store  storage.ObjectStore // nil when no bucket is configured
	logger *slog.Logger
}

func NewUploadService(store storage.ObjectStore, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:  store,
		logger: logger,
	}
}

// Enabled reports whether an object store is configured. The handler uses
// it to fail fast with a configuration error instead of a nil deref.
func (s *UploadService) Enabled() bool {
	return s.store != nil
}

// UploadResult is returned to the client after a successful upload.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload validates and stores one file under a random key, preserving a
// sanitized form of the original name for traceability.
func (s *UploadService) Upload(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*UploadResult, error) {
	if s.store == nil {
		return nil, apperror.Configuration("object storage bucket")
	}
	if size <= 0 {
		return nil, apperror.ValidationFailed("file", "File is empty")
	}
	if size > MaxUploadSize {
		return nil, apperror.ValidationFailed("file",
			fmt.Sprintf("File must be %d MB or smaller", MaxUploadSize>>20))
	}
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return nil, apperror.ValidationFailed("file", "Unsupported file type")
	}

	key := fmt.Sprintf("uploads/%s-%s%s", uuid.NewString(), sanitizeFilename(filename), ext)
	if err := s.store.Put(ctx, key, contentType, body, size); err != nil {
		s.logger.Error("object upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("uploading object: %w", err)
	}

	s.logger.Info("object uploaded",
		slog.String("key", key),
		slog.Int64("size", size),
	)

	return &UploadResult{Key: key, URL: s.store.URL(key)}, nil
}

// sanitizeFilename strips the extension and reduces the base name to a
// short, URL-safe token. The random key prefix carries uniqueness; this is
// only for humans reading bucket listings.
func sanitizeFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = out[:40]
	}
	if out == "" {
		out = "file"
	}
	return out
}
