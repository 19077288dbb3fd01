package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rpupo63/hundred-days/config"
	"github.com/rpupo63/hundred-days/errs"
)

// Every project image goes to the same folder with the same square crop.
const (
	MediaFolder      = "100-days-ai"
	MediaImageWidth  = 800
	MediaImageHeight = 800
)

// ImageUploader hands an image to the media host and returns the public URL
// of the stored, cropped copy. Implementations make exactly one attempt.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, image io.Reader) (string, error)
}

// Media backends selectable through MEDIA_BACKEND.
const (
	MediaBackendCloudinary = "cloudinary"
	MediaBackendS3         = "s3"
)

// NewImageUploader builds the uploader named by MEDIA_BACKEND.
func NewImageUploader(ctx context.Context, cfg map[string]string) (ImageUploader, error) {
	backend := strings.ToLower(config.GetString(cfg, "MEDIA_BACKEND", MediaBackendCloudinary))
	switch backend {
	case MediaBackendCloudinary:
		return NewCloudinaryUploaderFromConfig(cfg)
	case MediaBackendS3:
		return NewS3UploaderFromConfig(ctx, cfg)
	default:
		return nil, errs.NewConfigError("MEDIA_BACKEND", fmt.Errorf("unknown media backend %q", backend))
	}
}
