package emit

import (
	"fmt"
	"os"
	"path/filepath"
)

// FS writes artifacts to the local filesystem, creating directories as
// needed.
type FS struct{}

// NewFS returns the filesystem emitter.
func NewFS() *FS {
	return &FS{}
}

func (e *FS) Emit(outputPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
