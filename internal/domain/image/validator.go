package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/logging"
)

// Validator performs structural checks on source bytes before any resize
// work is dispatched.
type Validator struct {
	limits config.LimitsConfig
	logger *logging.Logger
}

// NewValidator constructs a validator enforcing the configured limits.
func NewValidator(limits config.LimitsConfig, logger *logging.Logger) *Validator {
	return &Validator{
		limits: limits,
		logger: logger,
	}
}

// ValidationResult captures the outcome of source validation.
type ValidationResult struct {
	OK       bool
	Format   string
	Width    int
	Height   int
	FileSize int64
	Err      error
}

var imageSignatures = map[string][]byte{
	MimeJPEG: {0xFF, 0xD8},
	MimePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	MimeWebP: {0x52, 0x49, 0x46, 0x46},
}

// Validate probes the source bytes: signature check against the declared
// mime, decodability, and size limits.
func (v *Validator) Validate(data []byte, declaredMime string) ValidationResult {
	result := ValidationResult{}

	if len(data) == 0 {
		result.Err = fmt.Errorf("empty image payload")
		return result
	}

	if v.limits.MaxFileSize > 0 && int64(len(data)) > v.limits.MaxFileSize {
		result.Err = fmt.Errorf(
			"file size exceeds limit: %d bytes (max %d bytes)",
			len(data),
			v.limits.MaxFileSize,
		)
		return result
	}

	if declaredMime != "" && !v.matchesSignature(data, declaredMime) {
		actualHeader := fmt.Sprintf("%x", data[:min(len(data), 16)])
		v.logger.Warn(
			"file signature mismatch: declared_mime=%s actual_header=%s",
			declaredMime,
			actualHeader,
		)
	}

	cfg, actualFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Err = fmt.Errorf("decode image config: %w", err)
		return result
	}
	result.Format = actualFormat

	if v.limits.MaxWidth > 0 && cfg.Width > v.limits.MaxWidth ||
		v.limits.MaxHeight > 0 && cfg.Height > v.limits.MaxHeight {
		result.Err = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, v.limits.MaxWidth, v.limits.MaxHeight)
		return result
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if v.limits.MaxPixels > 0 && totalPixels > v.limits.MaxPixels {
		result.Err = fmt.Errorf("pixel count exceeds limit: %d (max %d)", totalPixels, v.limits.MaxPixels)
		return result
	}

	result.OK = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(data))

	v.logger.Debug(
		"source validation success: format=%s width=%d height=%d size=%d",
		result.Format,
		result.Width,
		result.Height,
		result.FileSize,
	)

	return result
}

func (v *Validator) matchesSignature(data []byte, mime string) bool {
	signature, ok := imageSignatures[strings.ToLower(mime)]
	if !ok || len(data) < len(signature) {
		return false
	}
	return bytes.Equal(signature, data[:len(signature)])
}
