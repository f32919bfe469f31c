package emit

import "sync"

// Memory collects emitted artifacts in-process. Used by tests and the
// dry-run path.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemory returns an empty in-memory emitter.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
	}
}

func (e *Memory) Emit(outputPath string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	e.files[outputPath] = buf
	return nil
}

// Files returns a snapshot of everything emitted so far.
func (e *Memory) Files() map[string][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string][]byte, len(e.files))
	for k, v := range e.files {
		out[k] = v
	}
	return out
}

// Len reports how many artifacts have been emitted.
func (e *Memory) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.files)
}
