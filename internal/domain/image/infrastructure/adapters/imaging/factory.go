package imaging

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	domainimage "imageset-go/internal/domain/image"
)

// Factory opens imaging-backed adapters over raw source bytes.
type Factory struct{}

// NewFactory returns the default adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Open decodes the source once; every resize of the invocation shares the
// decoded pixels.
func (f *Factory) Open(source []byte, mime string) (domainimage.Adapter, error) {
	// mime is the invocation's target encoding; decoding sniffs the real
	// source format from the bytes.
	src, format, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	return &adapter{
		src:    src,
		format: format,
	}, nil
}
