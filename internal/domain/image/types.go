package image

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Supported target encodings.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

var mimeByExtension = map[string]string{
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  MimePNG,
	"webp": MimeWebP,
}

var extensionByMime = map[string]string{
	MimeJPEG: "jpg",
	MimePNG:  "png",
	MimeWebP: "webp",
}

// MimeForPath maps a source file extension to its mime type. An unrecognised
// extension is a configuration error.
func MimeForPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mime, ok := mimeByExtension[ext]
	if !ok {
		return "", fmt.Errorf("unrecognised source extension %q", ext)
	}
	return mime, nil
}

// NormalizeFormat resolves an explicit format override to its mime type.
// Both mime strings ("image/jpeg") and short extension names ("jpg") are
// accepted, matching what CLI flags and query params carry.
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(format)
	if _, ok := extensionByMime[f]; ok {
		return f, nil
	}
	if mime, ok := mimeByExtension[f]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("unsupported format %q", format)
}

// ExtensionForMime returns the canonical file extension for a supported mime.
func ExtensionForMime(mime string) (string, error) {
	ext, ok := extensionByMime[mime]
	if !ok {
		return "", fmt.Errorf("unsupported format %q", mime)
	}
	return ext, nil
}

// Metadata describes the decoded source image.
type Metadata struct {
	Width  int
	Height int
	Format string
}

// ResizeSpec is one resize request handed to the adapter.
type ResizeSpec struct {
	Width      int
	Mime       string
	Quality    int
	Background string // hex color flattening transparency, "" keeps alpha
}

// ResizeResult carries the encoded bytes of one derivative. Height comes from
// the adapter's aspect-ratio math; the core never computes it.
type ResizeResult struct {
	Data   []byte
	Width  int
	Height int
}

// Adapter is the pluggable image-processing capability. Implementations own
// all pixel decode, resample and encode work.
type Adapter interface {
	Metadata(ctx context.Context) (Metadata, error)
	Resize(ctx context.Context, spec ResizeSpec) (ResizeResult, error)
}

// AdapterFactory opens an adapter over raw source bytes.
type AdapterFactory interface {
	Open(source []byte, mime string) (Adapter, error)
}

// NameRequest asks the naming collaborator to resolve output addressing for
// one artifact. Template already has [width] and [height] substituted.
type NameRequest struct {
	Template   string
	SourcePath string
	Ext        string
	Data       []byte
}

// NameResult is the resolved output path plus the public reference used in
// srcset construction.
type NameResult struct {
	OutputPath string
	PublicRef  string
}

// Namer resolves naming templates to concrete output addressing.
type Namer interface {
	Resolve(req NameRequest) (NameResult, error)
}

// Emitter persists one artifact. Emission is fire-and-forget for the core;
// failures are the build tool's concern.
type Emitter interface {
	Emit(outputPath string, data []byte) error
}

// Artifact is one emitted derivative plus its addressing metadata.
type Artifact struct {
	Path        string `json:"path"`
	PublicRef   string `json:"publicRef"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SrcFragment string `json:"-"`
}

// Descriptor is the structured value handed back to the invocation's caller.
// Serialisation to a runtime module format is the build tool's concern.
// Wire keys are camelCase with WebP kept as a unit ("srcSetWebP"), matching
// the manifest format consumers already parse.
type Descriptor struct {
	SrcSet      string     `json:"srcSet"`
	SrcSetWebP  string     `json:"srcSetWebP"`
	Images      []Artifact `json:"images"`
	Src         string     `json:"src"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// SizeSpec is the raw, unparsed size policy for one invocation. Override
// fields come from a per-call query and beat everything else.
type SizeSpec struct {
	OverrideSize  string
	OverrideSizes []string

	Size  string
	Sizes []string
	Min   string
	Max   string
	Steps int
}

// Options is the fully resolved configuration for one invocation.
type Options struct {
	SizeSpec SizeSpec `json:"sizeSpec"`

	Quality         int    `json:"quality"`
	Background      string `json:"background,omitempty"`
	Format          string `json:"format,omitempty"` // explicit override, mime or short name
	Placeholder     bool   `json:"placeholder"`
	PlaceholderSize int    `json:"placeholderSize"`
	Disable         bool   `json:"disable"`
	Template        string `json:"template"`
}
