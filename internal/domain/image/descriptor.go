package image

import (
	"encoding/base64"
	"strings"
)

// BuildDescriptor folds the artifact lists into the final output descriptor.
// Srcsets join fragments in planned width order; the placeholder, when
// present, contributes only the inline data URI and is excluded from both
// srcsets. Src, width and height mirror the first native artifact.
func BuildDescriptor(native, webp []Artifact, placeholder *ResizeResult, mime string) Descriptor {
	d := Descriptor{
		SrcSet:     joinFragments(native),
		SrcSetWebP: joinFragments(webp),
		Images:     native,
	}

	if len(native) > 0 {
		d.Src = native[0].PublicRef
		d.Width = native[0].Width
		d.Height = native[0].Height
	}

	if placeholder != nil {
		d.Placeholder = "data:" + mime + ";base64," +
			base64.StdEncoding.EncodeToString(placeholder.Data)
	}

	return d
}

func joinFragments(artifacts []Artifact) string {
	fragments := make([]string, len(artifacts))
	for i, a := range artifacts {
		fragments[i] = a.SrcFragment
	}
	return strings.Join(fragments, ", ")
}
