package image

import (
	"strconv"
	"strings"

	"imageset-go/internal/domain/eventbus"
	"imageset-go/internal/platform/errors"
)

// Assembler turns raw resize results into named, emitted artifacts.
type Assembler struct {
	namer   Namer
	emitter Emitter
}

// NewAssembler wires the naming and emission collaborators.
func NewAssembler(namer Namer, emitter Emitter) *Assembler {
	return &Assembler{
		namer:   namer,
		emitter: emitter,
	}
}

// Assemble resolves addressing for one resize result and emits it exactly
// once. The core substitutes [width] and [height]; everything else is the
// namer's job. For WebP variants the caller passes ext "webp" so native and
// WebP artifacts for the same width never collide on output path.
func (a *Assembler) Assemble(res ResizeResult, template, sourcePath, ext string) (Artifact, error) {
	tmpl := strings.ReplaceAll(template, "[width]", strconv.Itoa(res.Width))
	tmpl = strings.ReplaceAll(tmpl, "[height]", strconv.Itoa(res.Height))

	name, err := a.namer.Resolve(NameRequest{
		Template:   tmpl,
		SourcePath: sourcePath,
		Ext:        ext,
		Data:       res.Data,
	})
	if err != nil {
		return Artifact{}, errors.Wrap(errors.KindNaming, "assemble", "resolve output name", err)
	}

	if err := a.emitter.Emit(name.OutputPath, res.Data); err != nil {
		return Artifact{}, errors.Wrap(errors.KindEmit, "assemble", "emit artifact", err)
	}

	eventbus.PublishAsync(eventbus.EventArtifactEmitted, eventbus.ArtifactEvent{
		SourcePath: sourcePath,
		OutputPath: name.OutputPath,
		Width:      res.Width,
		Height:     res.Height,
		Bytes:      len(res.Data),
	})

	return Artifact{
		Path:        name.OutputPath,
		PublicRef:   name.PublicRef,
		Width:       res.Width,
		Height:      res.Height,
		SrcFragment: name.PublicRef + " " + strconv.Itoa(res.Width) + "w",
	}, nil
}
