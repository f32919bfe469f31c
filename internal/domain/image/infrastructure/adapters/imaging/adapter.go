package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	imglib "github.com/disintegration/imaging"
	webpenc "github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	domainimage "imageset-go/internal/domain/image"
)

// adapter satisfies the image-processing capability over one decoded source.
type adapter struct {
	src    image.Image
	format string
}

func (a *adapter) Metadata(ctx context.Context) (domainimage.Metadata, error) {
	bounds := a.src.Bounds()
	return domainimage.Metadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: a.format,
	}, nil
}

func (a *adapter) Resize(ctx context.Context, spec domainimage.ResizeSpec) (domainimage.ResizeResult, error) {
	if err := ctx.Err(); err != nil {
		return domainimage.ResizeResult{}, err
	}
	if spec.Width <= 0 {
		return domainimage.ResizeResult{}, fmt.Errorf("resize width must be positive, got %d", spec.Width)
	}

	// height 0 keeps the true aspect ratio
	resized := imglib.Resize(a.src, spec.Width, 0, imglib.Lanczos)

	if spec.Background != "" {
		bg, err := parseHexColor(spec.Background)
		if err != nil {
			return domainimage.ResizeResult{}, err
		}
		canvas := imglib.New(resized.Bounds().Dx(), resized.Bounds().Dy(), bg)
		resized = imglib.Overlay(canvas, resized, image.Pt(0, 0), 1.0)
	}

	data, err := encode(resized, spec.Mime, spec.Quality)
	if err != nil {
		return domainimage.ResizeResult{}, err
	}

	return domainimage.ResizeResult{
		Data:   data,
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
	}, nil
}

func encode(img image.Image, mime string, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	switch mime {
	case domainimage.MimeJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case domainimage.MimePNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case domainimage.MimeWebP:
		opts, err := webpenc.NewLossyEncoderOptions(webpenc.PresetDefault, float32(quality))
		if err != nil {
			return nil, fmt.Errorf("webp encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported target encoding %q", mime)
	}
	return buf.Bytes(), nil
}

func parseHexColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("background color must be #rrggbb, got %q", value)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("background color must be #rrggbb, got %q", value)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
