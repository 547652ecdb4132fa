// Package storage keeps uploaded product and stall images in an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

// MaxImageSize bounds a single upload
const MaxImageSize = 5 << 20

var ErrUnsupportedType = domain.NewError(domain.ErrValidation, "only JPEG, PNG, GIF and WebP images are accepted")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore persists images and returns their public URL
type ImageStore interface {
	PutImage(ctx context.Context, owner uuid.UUID, r io.Reader, size int64, contentType string) (string, error)
}

// ObjectKey names an image by owner and upload time. It fails for content
// types that are not images.
func ObjectKey(owner uuid.UUID, contentType string, now time.Time) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("images/%s/%d_%s%s", owner, now.Unix(), uuid.New().String()[:8], ext), nil
}
