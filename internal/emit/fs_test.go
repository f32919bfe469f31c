package emit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSEmit(t *testing.T) {
	dir := t.TempDir()
	e := NewFS()

	path := filepath.Join(dir, "nested", "deep", "photo-100.jpg")
	data := []byte("jpeg bytes")

	if err := e.Emit(path, data); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read emitted file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("emitted content mismatch: %q", got)
	}
}

func TestFSEmit_Overwrite(t *testing.T) {
	dir := t.TempDir()
	e := NewFS()

	path := filepath.Join(dir, "a.png")
	if err := e.Emit(path, []byte("first")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.Emit(path, []byte("second")); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read emitted file: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("re-emit should overwrite, got %q", got)
	}
}

func TestMemoryEmit(t *testing.T) {
	e := NewMemory()

	if err := e.Emit("out/a.png", []byte("a")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.Emit("out/b.webp", []byte("b")); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}

	files := e.Files()
	if string(files["out/a.png"]) != "a" {
		t.Errorf("stored content mismatch: %q", files["out/a.png"])
	}
}
