package image

import (
	"context"
	"strings"
	"testing"
	"time"

	"imageset-go/internal/domain/eventbus"
	"imageset-go/internal/emit"
	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/errors"
	"imageset-go/internal/platform/logging"
)

const testTemplate = "[name]-[width]x[height].[ext]"

type fakeFactory struct {
	adapter *fakeAdapter
}

func (f *fakeFactory) Open(source []byte, mime string) (Adapter, error) {
	return f.adapter, nil
}

// stubNamer joins template and extension without hashing so tests can
// predict output paths.
type stubNamer struct{}

func (stubNamer) Resolve(req NameRequest) (NameResult, error) {
	base := req.SourcePath
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}
	file := strings.ReplaceAll(req.Template, "[name]", base)
	file = strings.ReplaceAll(file, "[ext]", req.Ext)
	return NameResult{
		OutputPath: "out/" + file,
		PublicRef:  "/assets/" + file,
	}, nil
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "ERROR", Format: "text"})
	if err != nil {
		t.Fatalf("create test logger: %v", err)
	}
	return logger
}

func newTestService(t *testing.T, adapter *fakeAdapter, sink *emit.Memory) *Service {
	t.Helper()
	svc, err := NewService(ServiceOptions{
		Adapters: &fakeFactory{adapter: adapter},
		Namer:    stubNamer{},
		Emitter:  sink,
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceGenerate(t *testing.T) {
	adapter := &fakeAdapter{width: 1000, height: 500}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	d, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
		SizeSpec: SizeSpec{Sizes: []string{"100", "200"}},
		Quality:  85,
		Template: testTemplate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := len(d.Images); got != 2 {
		t.Fatalf("descriptor holds %d artifacts, want 2", got)
	}
	wantSrcSet := "/assets/photo-100x50.png 100w, /assets/photo-200x100.png 200w"
	if d.SrcSet != wantSrcSet {
		t.Errorf("SrcSet = %q, want %q", d.SrcSet, wantSrcSet)
	}
	wantWebP := "/assets/photo-100x50.webp 100w, /assets/photo-200x100.webp 200w"
	if d.SrcSetWebP != wantWebP {
		t.Errorf("SrcSetWebP = %q, want %q", d.SrcSetWebP, wantWebP)
	}
	if d.Src != "/assets/photo-100x50.png" || d.Width != 100 || d.Height != 50 {
		t.Errorf("smallest variant mismatch: src=%q %dx%d", d.Src, d.Width, d.Height)
	}

	// two native plus two webp artifacts on disk
	if sink.Len() != 4 {
		t.Errorf("emitted %d artifacts, want 4", sink.Len())
	}
	files := sink.Files()
	if _, ok := files["out/photo-200x100.webp"]; !ok {
		t.Errorf("webp artifact missing, emitted: %v", keys(files))
	}
}

func TestServiceGenerate_Placeholder(t *testing.T) {
	adapter := &fakeAdapter{width: 800, height: 800}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	d, err := svc.Generate(context.Background(), []byte("src"), "icon.jpg", Options{
		SizeSpec:        SizeSpec{Size: "100"},
		Quality:         85,
		Placeholder:     true,
		PlaceholderSize: 40,
		Template:        testTemplate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !strings.HasPrefix(d.Placeholder, "data:image/jpeg;base64,") {
		t.Errorf("placeholder = %q", d.Placeholder)
	}
	// placeholder is inline only: one native and one webp file emitted
	if sink.Len() != 2 {
		t.Errorf("emitted %d artifacts, want 2", sink.Len())
	}
	if strings.Contains(d.SrcSet, "40w") || strings.Contains(d.SrcSetWebP, "40w") {
		t.Error("placeholder leaked into a srcset")
	}
}

func TestServiceGenerate_DisablePassThrough(t *testing.T) {
	adapter := &fakeAdapter{width: 1000, height: 500}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	source := []byte("original-bytes")
	d, err := svc.Generate(context.Background(), source, "logo.png", Options{
		SizeSpec: SizeSpec{Sizes: []string{"100"}},
		Disable:  true,
		Template: testTemplate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(d.Images) != 1 {
		t.Fatalf("pass-through holds %d artifacts, want 1", len(d.Images))
	}
	if d.Width != 100 || d.Height != 100 {
		t.Errorf("pass-through dimensions = %dx%d, want the 100x100 stand-in", d.Width, d.Height)
	}
	if d.SrcSetWebP != "" {
		t.Errorf("pass-through must not fabricate a webp srcset, got %q", d.SrcSetWebP)
	}

	files := sink.Files()
	if len(files) != 1 {
		t.Fatalf("emitted %d files, want 1", len(files))
	}
	for _, data := range files {
		if string(data) != string(source) {
			t.Error("pass-through must emit the source bytes verbatim")
		}
	}
}

func TestServiceGenerate_EmptyPlanPassThrough(t *testing.T) {
	adapter := &fakeAdapter{width: 640, height: 480}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	d, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
		SizeSpec: SizeSpec{OverrideSizes: []string{}, Sizes: []string{"300"}},
		Template: testTemplate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(d.Images) != 1 || d.Width != 100 || d.Height != 100 {
		t.Errorf("empty plan should pass through with the stand-in dimensions, got %+v", d)
	}
}

func TestServiceGenerate_FailureEmitsNothing(t *testing.T) {
	adapter := &fakeAdapter{width: 1000, height: 500, failAt: 200}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	_, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
		SizeSpec: SizeSpec{Sizes: []string{"100", "200", "400"}},
		Template: testTemplate,
	})
	if err == nil {
		t.Fatal("Generate should fail when any variant fails")
	}
	if sink.Len() != 0 {
		t.Errorf("failed invocation emitted %d artifacts, want 0", sink.Len())
	}
}

func TestServiceGenerate_FormatResolution(t *testing.T) {
	adapter := &fakeAdapter{width: 500, height: 500}

	t.Run("explicit format override", func(t *testing.T) {
		sink := emit.NewMemory()
		svc := newTestService(t, adapter, sink)

		d, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
			SizeSpec: SizeSpec{Size: "100"},
			Format:   MimeJPEG,
			Template: testTemplate,
		})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !strings.HasSuffix(d.Src, ".jpg") {
			t.Errorf("explicit format should drive the extension, got %q", d.Src)
		}
	})

	t.Run("short format names", func(t *testing.T) {
		for name, ext := range map[string]string{
			"jpg":  ".jpg",
			"jpeg": ".jpg",
			"png":  ".png",
			"WEBP": ".webp",
		} {
			sink := emit.NewMemory()
			svc := newTestService(t, adapter, sink)

			d, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
				SizeSpec: SizeSpec{Size: "100"},
				Format:   name,
				Template: testTemplate,
			})
			if err != nil {
				t.Fatalf("Generate with format %q: %v", name, err)
			}
			if !strings.HasSuffix(d.Src, ext) {
				t.Errorf("format %q should yield a %s artifact, got %q", name, ext, d.Src)
			}
		}
	})

	t.Run("unsupported explicit format", func(t *testing.T) {
		svc := newTestService(t, adapter, emit.NewMemory())

		_, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
			Format:   "image/gif",
			Template: testTemplate,
		})
		if !errors.IsKind(err, errors.KindConfig) {
			t.Errorf("expected a config error, got %v", err)
		}
	})

	t.Run("unrecognised source extension", func(t *testing.T) {
		svc := newTestService(t, adapter, emit.NewMemory())

		_, err := svc.Generate(context.Background(), []byte("src"), "scan.tiff", Options{
			Template: testTemplate,
		})
		if !errors.IsKind(err, errors.KindConfig) {
			t.Errorf("expected a config error, got %v", err)
		}
	})
}

func TestServiceGenerate_ValidatorRejects(t *testing.T) {
	adapter := &fakeAdapter{width: 500, height: 500}
	sink := emit.NewMemory()

	svc, err := NewService(ServiceOptions{
		Adapters:  &fakeFactory{adapter: adapter},
		Namer:     stubNamer{},
		Emitter:   sink,
		Validator: NewValidator(config.LimitsConfig{MaxFileSize: 2}, testLogger(t)),
		Logger:    testLogger(t),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Generate(context.Background(), []byte("too large"), "photo.png", Options{
		Template: testTemplate,
	})
	if err == nil {
		t.Fatal("oversized source must be rejected")
	}
	if sink.Len() != 0 {
		t.Errorf("rejected source emitted %d artifacts", sink.Len())
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestServiceGenerate_PublishesArtifactEvents(t *testing.T) {
	adapter := &fakeAdapter{width: 500, height: 500}
	sink := emit.NewMemory()
	svc := newTestService(t, adapter, sink)

	events := make(chan eventbus.ArtifactEvent, 16)
	handler := func(ev eventbus.ArtifactEvent) { events <- ev }
	if err := eventbus.GetAsync().Subscribe(eventbus.EventArtifactEmitted, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	t.Cleanup(func() {
		_ = eventbus.GetAsync().Unsubscribe(eventbus.EventArtifactEmitted, handler)
	})

	_, err := svc.Generate(context.Background(), []byte("src"), "photo.png", Options{
		SizeSpec: SizeSpec{Sizes: []string{"100", "200"}},
		Template: testTemplate,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// two widths, each emitted in the native format and as WebP
	byPath := make(map[string]eventbus.ArtifactEvent)
	deadline := time.After(2 * time.Second)
	for len(byPath) < 4 {
		select {
		case ev := <-events:
			byPath[ev.OutputPath] = ev
		case <-deadline:
			t.Fatalf("got %d artifact events, want 4", len(byPath))
		}
	}

	for path, ev := range byPath {
		if ev.SourcePath != "photo.png" {
			t.Errorf("event for %s carries source %q", path, ev.SourcePath)
		}
		if ev.Bytes == 0 || ev.Width == 0 || ev.Height == 0 {
			t.Errorf("event for %s missing dimensions or size: %+v", path, ev)
		}
		if len(sink.Files()[path]) != ev.Bytes {
			t.Errorf("event for %s reports %d bytes, emitted %d", path, ev.Bytes, len(sink.Files()[path]))
		}
	}
}
