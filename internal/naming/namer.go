package naming

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	domainimage "imageset-go/internal/domain/image"
)

// hashLength truncates the content hash token; 10 hex chars keeps names
// short while leaving collisions to the width/height tokens to disambiguate.
const hashLength = 10

// Resolver substitutes the remaining template tokens and anchors the result
// in the output directory and public path.
type Resolver struct {
	outputDir  string
	publicPath string
}

// NewResolver builds the default naming collaborator.
func NewResolver(outputDir, publicPath string) *Resolver {
	return &Resolver{
		outputDir:  outputDir,
		publicPath: strings.TrimSuffix(publicPath, "/"),
	}
}

// Resolve handles the [name], [ext] and [hash] tokens; [width] and [height]
// arrive already substituted by the pipeline.
func (r *Resolver) Resolve(req domainimage.NameRequest) (domainimage.NameResult, error) {
	if req.Template == "" {
		return domainimage.NameResult{}, fmt.Errorf("empty filename template")
	}

	base := filepath.Base(req.SourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	file := strings.ReplaceAll(req.Template, "[name]", name)
	file = strings.ReplaceAll(file, "[ext]", req.Ext)
	if strings.Contains(file, "[hash]") {
		sum := fmt.Sprintf("%016x", xxhash.Sum64(req.Data))
		file = strings.ReplaceAll(file, "[hash]", sum[:hashLength])
	}

	return domainimage.NameResult{
		OutputPath: filepath.Join(r.outputDir, file),
		PublicRef:  r.publicPath + path.Join("/", file),
	}, nil
}
