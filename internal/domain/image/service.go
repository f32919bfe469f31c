package image

import (
	"context"

	"imageset-go/internal/platform/errors"
	"imageset-go/internal/platform/logging"
)

// Width and height reported for the disabled / empty-plan pass-through. A
// deliberate stand-in, not a measured value.
const passThroughEdge = 100

// Service runs the full derivative pipeline for single invocations.
type Service struct {
	adapters  AdapterFactory
	assembler *Assembler
	validator *Validator
	logger    *logging.Logger
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Adapters  AdapterFactory
	Namer     Namer
	Emitter   Emitter
	Validator *Validator
	Logger    *logging.Logger
}

// NewService wires the pipeline collaborators.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Adapters == nil {
		return nil, errors.New(errors.KindConfig, "image.new", "adapter factory is required")
	}
	if opts.Namer == nil {
		return nil, errors.New(errors.KindConfig, "image.new", "namer is required")
	}
	if opts.Emitter == nil {
		return nil, errors.New(errors.KindConfig, "image.new", "emitter is required")
	}
	if opts.Logger == nil {
		return nil, errors.New(errors.KindConfig, "image.new", "logger is required")
	}

	return &Service{
		adapters:  opts.Adapters,
		assembler: NewAssembler(opts.Namer, opts.Emitter),
		validator: opts.Validator,
		logger:    opts.Logger,
	}, nil
}

// Generate runs one invocation: resolve the target mime, validate the source,
// plan widths, render concurrently, assemble and emit artifacts, and build
// the descriptor. Emission happens only after the full render resolves, so a
// failed invocation emits nothing.
func (s *Service) Generate(ctx context.Context, source []byte, sourcePath string, opts Options) (*Descriptor, error) {
	mime, err := s.resolveMime(sourcePath, opts)
	if err != nil {
		return nil, err
	}
	ext, err := ExtensionForMime(mime)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, "generate", "resolve extension", err)
	}

	if s.validator != nil {
		if res := s.validator.Validate(source, mime); !res.OK {
			return nil, errors.Wrap(errors.KindConfig, "generate", "source validation failed", res.Err)
		}
	}

	if opts.Disable {
		return s.passThrough(source, sourcePath, opts.Template, ext, mime)
	}

	adapter, err := s.adapters.Open(source, mime)
	if err != nil {
		return nil, errors.Wrap(errors.KindAdapter, "generate", "open adapter", err)
	}

	meta, err := adapter.Metadata(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.KindAdapter, "generate", "read metadata", err)
	}

	plan, err := Plan(opts.SizeSpec, meta.Width)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		s.logger.Debug("empty size plan for %s, passing through", sourcePath)
		return s.passThrough(source, sourcePath, opts.Template, ext, mime)
	}

	out, err := Render(ctx, adapter, plan, RenderOptions{
		Mime:            mime,
		Quality:         opts.Quality,
		Background:      opts.Background,
		Placeholder:     opts.Placeholder,
		PlaceholderSize: opts.PlaceholderSize,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindAdapter, "generate", "render derivatives", err)
	}

	native := make([]Artifact, 0, len(out.Native))
	for _, res := range out.Native {
		artifact, err := s.assembler.Assemble(res, opts.Template, sourcePath, ext)
		if err != nil {
			return nil, err
		}
		native = append(native, artifact)
	}

	webp := make([]Artifact, 0, len(out.WebP))
	for _, res := range out.WebP {
		artifact, err := s.assembler.Assemble(res, opts.Template, sourcePath, "webp")
		if err != nil {
			return nil, err
		}
		webp = append(webp, artifact)
	}

	descriptor := BuildDescriptor(native, webp, out.Placeholder, mime)
	return &descriptor, nil
}

func (s *Service) resolveMime(sourcePath string, opts Options) (string, error) {
	if opts.Format != "" {
		mime, err := NormalizeFormat(opts.Format)
		if err != nil {
			return "", errors.Wrap(errors.KindConfig, "generate", "resolve explicit format", err)
		}
		return mime, nil
	}
	mime, err := MimeForPath(sourcePath)
	if err != nil {
		return "", errors.Wrap(errors.KindConfig, "generate", "sniff source format", err)
	}
	return mime, nil
}

// passThrough emits the original bytes verbatim and wraps them in a
// degenerate one-artifact descriptor.
func (s *Service) passThrough(source []byte, sourcePath, template, ext, mime string) (*Descriptor, error) {
	artifact, err := s.assembler.Assemble(ResizeResult{
		Data:   source,
		Width:  passThroughEdge,
		Height: passThroughEdge,
	}, template, sourcePath, ext)
	if err != nil {
		return nil, err
	}

	descriptor := BuildDescriptor([]Artifact{artifact}, nil, nil, mime)
	return &descriptor, nil
}
