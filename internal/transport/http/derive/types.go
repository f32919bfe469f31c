package derive

import domainimage "imageset-go/internal/domain/image"

// StatusData is the GET /derive payload.
type StatusData struct {
	Status    string `json:"status"`
	OutputDir string `json:"output_dir"`
	Emitter   string `json:"emitter"`
}

// ResultData wraps the descriptor returned by a derivative run.
type ResultData struct {
	SourcePath string                  `json:"source_path"`
	Descriptor *domainimage.Descriptor `json:"descriptor"`
}
