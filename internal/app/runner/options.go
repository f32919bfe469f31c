package runner

import (
	domainimage "imageset-go/internal/domain/image"
	"imageset-go/internal/platform/config"
)

// Overrides carries per-call settings from CLI flags or dev-server query
// params. Zero values mean "use the configured option"; size overrides beat
// every statically configured size source.
type Overrides struct {
	Size        string
	Sizes       []string
	Min         string
	Max         string
	Steps       int
	Quality     int
	Background  string
	Format      string
	Placeholder *bool
	Disable     *bool

	// NoCache skips the descriptor cache for this call, forcing a full
	// regeneration even when a cached entry exists.
	NoCache bool
}

// resolveOptions folds the static derivative policy and the per-call
// overrides into the invocation options.
func resolveOptions(cfg *config.Config, ov Overrides) domainimage.Options {
	der := cfg.Derivatives

	opts := domainimage.Options{
		SizeSpec: domainimage.SizeSpec{
			Size:  string(der.Size),
			Sizes: sizeValues(der.Sizes),
			Min:   string(der.Min),
			Max:   string(der.Max),
			Steps: der.Steps,
		},
		Quality:         der.Quality,
		Background:      der.Background,
		Format:          der.Format,
		Placeholder:     der.Placeholder,
		PlaceholderSize: der.PlaceholderSize,
		Disable:         der.Disable,
		Template:        cfg.Output.Template,
	}

	opts.SizeSpec.OverrideSize = ov.Size
	opts.SizeSpec.OverrideSizes = ov.Sizes
	if ov.Min != "" {
		opts.SizeSpec.Min = ov.Min
	}
	if ov.Max != "" {
		opts.SizeSpec.Max = ov.Max
	}
	if ov.Steps > 0 {
		opts.SizeSpec.Steps = ov.Steps
	}
	if ov.Quality > 0 {
		opts.Quality = ov.Quality
	}
	if ov.Background != "" {
		opts.Background = ov.Background
	}
	if ov.Format != "" {
		opts.Format = ov.Format
	}
	if ov.Placeholder != nil {
		opts.Placeholder = *ov.Placeholder
	}
	if ov.Disable != nil {
		opts.Disable = *ov.Disable
	}

	return opts
}

func sizeValues(values []config.SizeValue) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
