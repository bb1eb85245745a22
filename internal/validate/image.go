// Package validate checks submitted image payloads before any credit is
// charged or any message is published.
package validate

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

// Limits on accepted images. Dimensions outside this window are rejected
// before dispatch.
const (
	MaxEncodedBytes = 14 << 20 // base64 of a 10 MiB image
	MinDimension    = 50
	MaxDimension    = 2048
)

// ImageValidator validates base64-encoded image payloads.
type ImageValidator struct{}

// NewImageValidator creates an ImageValidator.
func NewImageValidator() *ImageValidator {
	return &ImageValidator{}
}

// Validate decodes the payload and checks encoding, format, and dimensions.
// Every failure wraps domain.ErrInvalidPayload so the dispatcher can report
// it synchronously.
func (v *ImageValidator) Validate(payload string) error {
	if payload == "" {
		return fmt.Errorf("%w: empty payload", domain.ErrInvalidPayload)
	}

	if len(payload) > MaxEncodedBytes {
		return fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrInvalidPayload, MaxEncodedBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: not valid base64: %v", domain.ErrInvalidPayload, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: not a supported image (png, jpeg, gif): %v", domain.ErrInvalidPayload, err)
	}

	switch format {
	case "png", "jpeg", "gif":
	default:
		return fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidPayload, format)
	}

	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: image too large: %dx%d (max %dx%d)",
			domain.ErrInvalidPayload, cfg.Width, cfg.Height, MaxDimension, MaxDimension)
	}

	if cfg.Width < MinDimension || cfg.Height < MinDimension {
		return fmt.Errorf("%w: image too small: %dx%d (min %dx%d)",
			domain.ErrInvalidPayload, cfg.Width, cfg.Height, MinDimension, MinDimension)
	}

	return nil
}
