package image

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RenderOptions configures one render batch.
type RenderOptions struct {
	Mime            string
	Quality         int
	Background      string
	Placeholder     bool
	PlaceholderSize int
}

// RenderOutput collects all resize results of one invocation, in planned
// width order.
type RenderOutput struct {
	Native      []ResizeResult
	WebP        []ResizeResult
	Placeholder *ResizeResult
}

// Render fans out two concurrent resize requests per planned width (native
// mime and WebP) plus, when requested, one placeholder-sized resize, and
// gathers them keyed by plan slot. Results are positioned by their
// originating index, never by completion order. The first failure aborts the
// whole batch.
func Render(ctx context.Context, adapter Adapter, plan []int, opts RenderOptions) (*RenderOutput, error) {
	out := &RenderOutput{
		Native: make([]ResizeResult, len(plan)),
		WebP:   make([]ResizeResult, len(plan)),
	}

	group, ctx := errgroup.WithContext(ctx)

	for i, width := range plan {
		i, width := i, width

		group.Go(func() error {
			res, err := adapter.Resize(ctx, ResizeSpec{
				Width:      width,
				Mime:       opts.Mime,
				Quality:    opts.Quality,
				Background: opts.Background,
			})
			if err != nil {
				return err
			}
			out.Native[i] = res
			return nil
		})

		group.Go(func() error {
			res, err := adapter.Resize(ctx, ResizeSpec{
				Width:      width,
				Mime:       MimeWebP,
				Quality:    opts.Quality,
				Background: opts.Background,
			})
			if err != nil {
				return err
			}
			out.WebP[i] = res
			return nil
		})
	}

	if opts.Placeholder {
		group.Go(func() error {
			res, err := adapter.Resize(ctx, ResizeSpec{
				Width:      opts.PlaceholderSize,
				Mime:       opts.Mime,
				Quality:    opts.Quality,
				Background: opts.Background,
			})
			if err != nil {
				return err
			}
			out.Placeholder = &res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
