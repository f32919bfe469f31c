package image

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeAdapter resizes by arithmetic instead of pixels. Per-width delays
// let tests scramble completion order.
type fakeAdapter struct {
	width  int
	height int
	delays map[int]time.Duration
	failAt int // width whose resize fails; 0 disables

	mu    sync.Mutex
	calls []ResizeSpec
}

func (f *fakeAdapter) Metadata(ctx context.Context) (Metadata, error) {
	return Metadata{Width: f.width, Height: f.height, Format: "png"}, nil
}

func (f *fakeAdapter) Resize(ctx context.Context, spec ResizeSpec) (ResizeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	f.mu.Unlock()

	if d, ok := f.delays[spec.Width]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ResizeResult{}, ctx.Err()
		}
	}
	if f.failAt != 0 && spec.Width == f.failAt {
		return ResizeResult{}, fmt.Errorf("resize failed at width %d", spec.Width)
	}

	height := spec.Width * f.height / f.width
	return ResizeResult{
		Data:   []byte(fmt.Sprintf("%s:%d", spec.Mime, spec.Width)),
		Width:  spec.Width,
		Height: height,
	}, nil
}

func TestRender_ResultsFollowPlanOrder(t *testing.T) {
	// the widest variant finishes first, the narrowest last
	adapter := &fakeAdapter{
		width:  1000,
		height: 500,
		delays: map[int]time.Duration{
			100: 30 * time.Millisecond,
			400: 10 * time.Millisecond,
			800: 0,
		},
	}
	plan := []int{100, 400, 800}

	out, err := Render(context.Background(), adapter, plan, RenderOptions{
		Mime:    MimePNG,
		Quality: 85,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	for i, width := range plan {
		if out.Native[i].Width != width {
			t.Errorf("native slot %d holds width %d, want %d", i, out.Native[i].Width, width)
		}
		if out.WebP[i].Width != width {
			t.Errorf("webp slot %d holds width %d, want %d", i, out.WebP[i].Width, width)
		}
		if string(out.Native[i].Data) != fmt.Sprintf("%s:%d", MimePNG, width) {
			t.Errorf("native slot %d holds %q", i, out.Native[i].Data)
		}
		if string(out.WebP[i].Data) != fmt.Sprintf("%s:%d", MimeWebP, width) {
			t.Errorf("webp slot %d holds %q", i, out.WebP[i].Data)
		}
	}
	if out.Placeholder != nil {
		t.Error("placeholder was not requested")
	}
}

func TestRender_PlaceholderVariant(t *testing.T) {
	adapter := &fakeAdapter{width: 1000, height: 1000}

	out, err := Render(context.Background(), adapter, []int{200}, RenderOptions{
		Mime:            MimeJPEG,
		Quality:         85,
		Placeholder:     true,
		PlaceholderSize: 40,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if out.Placeholder == nil {
		t.Fatal("placeholder result missing")
	}
	if out.Placeholder.Width != 40 {
		t.Errorf("placeholder width = %d, want 40", out.Placeholder.Width)
	}
	// the placeholder keeps the target mime, never WebP
	if string(out.Placeholder.Data) != fmt.Sprintf("%s:%d", MimeJPEG, 40) {
		t.Errorf("placeholder data = %q", out.Placeholder.Data)
	}
}

func TestRender_FirstFailureAbortsBatch(t *testing.T) {
	adapter := &fakeAdapter{
		width:  1000,
		height: 500,
		failAt: 400,
	}

	out, err := Render(context.Background(), adapter, []int{100, 400, 800}, RenderOptions{
		Mime:    MimePNG,
		Quality: 85,
	})
	if err == nil {
		t.Fatal("Render() should propagate the resize failure")
	}
	if out != nil {
		t.Error("a failed batch must not return partial results")
	}
}

func TestRender_RequestsTwoVariantsPerWidth(t *testing.T) {
	adapter := &fakeAdapter{width: 1000, height: 1000}
	plan := []int{100, 200, 300}

	if _, err := Render(context.Background(), adapter, plan, RenderOptions{Mime: MimePNG}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	native := 0
	webp := 0
	for _, call := range adapter.calls {
		switch call.Mime {
		case MimeWebP:
			webp++
		default:
			native++
		}
	}
	if native != len(plan) || webp != len(plan) {
		t.Errorf("got %d native and %d webp requests, want %d each", native, webp, len(plan))
	}
}
