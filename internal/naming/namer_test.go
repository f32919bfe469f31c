package naming

import (
	"strings"
	"testing"

	domainimage "imageset-go/internal/domain/image"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("build/images", "/assets/")

	res, err := r.Resolve(domainimage.NameRequest{
		Template:   "[name]-320x160-[hash].[ext]",
		SourcePath: "photos/summer/beach.PNG",
		Ext:        "png",
		Data:       []byte("pixels"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !strings.HasPrefix(res.OutputPath, "build/images/beach-320x160-") {
		t.Errorf("OutputPath = %q", res.OutputPath)
	}
	if !strings.HasSuffix(res.OutputPath, ".png") {
		t.Errorf("OutputPath = %q, want .png suffix", res.OutputPath)
	}
	if !strings.HasPrefix(res.PublicRef, "/assets/beach-320x160-") {
		t.Errorf("PublicRef = %q", res.PublicRef)
	}
	if strings.Contains(res.OutputPath, "[") {
		t.Errorf("unresolved token left in %q", res.OutputPath)
	}

	// the hash token is 10 hex chars
	hash := strings.TrimSuffix(strings.TrimPrefix(res.PublicRef, "/assets/beach-320x160-"), ".png")
	if len(hash) != 10 {
		t.Errorf("hash token %q has length %d, want 10", hash, len(hash))
	}
}

func TestResolver_HashTracksContent(t *testing.T) {
	r := NewResolver("out", "/img")

	req := domainimage.NameRequest{
		Template:   "[name]-[hash].[ext]",
		SourcePath: "a.jpg",
		Ext:        "jpg",
		Data:       []byte("one"),
	}

	first, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	req.Data = []byte("two")
	second, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if first.OutputPath == second.OutputPath {
		t.Error("different content must hash to different names")
	}

	req.Data = []byte("one")
	again, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.OutputPath != again.OutputPath {
		t.Error("identical content must hash to the same name")
	}
}

func TestResolver_NoHashToken(t *testing.T) {
	r := NewResolver("out", "/img")

	res, err := r.Resolve(domainimage.NameRequest{
		Template:   "[name].[ext]",
		SourcePath: "logo.png",
		Ext:        "webp",
		Data:       []byte("pixels"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.PublicRef != "/img/logo.webp" {
		t.Errorf("PublicRef = %q, want /img/logo.webp", res.PublicRef)
	}
}

func TestResolver_EmptyTemplate(t *testing.T) {
	r := NewResolver("out", "/img")
	if _, err := r.Resolve(domainimage.NameRequest{SourcePath: "a.png", Ext: "png"}); err == nil {
		t.Error("empty template must be rejected")
	}
}
