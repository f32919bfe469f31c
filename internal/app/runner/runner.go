package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imageset-go/internal/domain/cache"
	"imageset-go/internal/domain/eventbus"
	domainimage "imageset-go/internal/domain/image"
	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/errors"
	"imageset-go/internal/platform/logging"
	"imageset-go/internal/platform/observability"
)

// batchConcurrency caps how many source images a batch run processes at
// once; each image already fans out internally per width.
const batchConcurrency = 4

// Runner drives invocations of the derivative pipeline for CLI, batch, dev
// server and watch callers, layering caching and build events around the
// stateless core.
type Runner struct {
	cfg    *config.Config
	logger *logging.Logger
	svc    *domainimage.Service
	store  cache.Store
}

// New assembles a runner. The cache store may be nil when caching is
// disabled.
func New(cfg *config.Config, logger *logging.Logger, svc *domainimage.Service, store cache.Store) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "runner.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "runner.new", "logger is required")
	}
	if svc == nil {
		return nil, errors.New(errors.KindConfig, "runner.new", "image service is required")
	}

	return &Runner{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		store:  store,
	}, nil
}

// Generate runs one invocation for the file at sourcePath.
func (r *Runner) Generate(ctx context.Context, sourcePath string, ov Overrides) (*domainimage.Descriptor, error) {
	id := uuid.NewString()
	start := time.Now()
	ctx, endSpan := observability.StartSpan(ctx, "runner", "generate")

	eventbus.PublishAsync(eventbus.EventInvocationStarted, eventbus.InvocationEvent{
		ID:         id,
		SourcePath: sourcePath,
	})

	descriptor, cacheHit, err := r.generate(ctx, sourcePath, ov)
	endSpan(err)

	if err != nil {
		eventbus.PublishAsync(eventbus.EventInvocationFailed, eventbus.InvocationEvent{
			ID:         id,
			SourcePath: sourcePath,
			Duration:   time.Since(start),
			Err:        err.Error(),
		})
		return nil, err
	}

	eventbus.PublishAsync(eventbus.EventInvocationCompleted, eventbus.InvocationEvent{
		ID:         id,
		SourcePath: sourcePath,
		Artifacts:  len(descriptor.Images),
		CacheHit:   cacheHit,
		Duration:   time.Since(start),
	})
	return descriptor, nil
}

func (r *Runner) generate(ctx context.Context, sourcePath string, ov Overrides) (*domainimage.Descriptor, bool, error) {
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, false, errors.Wrap(errors.KindConfig, "generate", "read source file", err)
	}

	opts := resolveOptions(r.cfg, ov)

	var key string
	if r.store != nil && !ov.NoCache {
		key, err = cache.Key(source, opts)
		if err != nil {
			return nil, false, errors.Wrap(errors.KindCache, "generate", "derive cache key", err)
		}
		if cached, ok, err := r.store.Get(ctx, key); err != nil {
			r.logger.Warn("cache lookup failed for %s: %v", sourcePath, err)
		} else if ok {
			r.logger.Debug("cache hit for %s", sourcePath)
			return cached, true, nil
		}
	}

	descriptor, err := r.svc.Generate(ctx, source, sourcePath, opts)
	if err != nil {
		return nil, false, err
	}

	if r.store != nil && !ov.NoCache {
		if err := r.store.Put(ctx, key, sourcePath, descriptor); err != nil {
			r.logger.Warn("cache store failed for %s: %v", sourcePath, err)
		}
	}

	return descriptor, false, nil
}

// Batch sweeps the source directory, generates derivatives for every image
// it recognises, and writes the manifest mapping source paths to
// descriptors.
func (r *Runner) Batch(ctx context.Context, dir string, ov Overrides) (map[string]*domainimage.Descriptor, error) {
	sources, err := r.collectSources(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		r.logger.Warn("no source images found under %s", dir)
	}

	results := make([]*domainimage.Descriptor, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(batchConcurrency)

	for i, src := range sources {
		i, src := i, src
		group.Go(func() error {
			descriptor, err := r.Generate(groupCtx, src, ov)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			results[i] = descriptor
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	manifest := make(map[string]*domainimage.Descriptor, len(sources))
	for i, src := range sources {
		manifest[filepath.ToSlash(src)] = results[i]
	}

	if r.cfg.Output.Manifest != "" {
		if err := r.writeManifest(manifest); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

func (r *Runner) collectSources(dir string) ([]string, error) {
	allowed := make(map[string]struct{}, len(r.cfg.Source.Extensions))
	for _, ext := range r.cfg.Source.Extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var sources []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := allowed[ext]; ok {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, "batch", "walk source dir", err)
	}

	sort.Strings(sources)
	return sources, nil
}

func (r *Runner) writeManifest(manifest map[string]*domainimage.Descriptor) error {
	data, err := sonic.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(errors.KindEmit, "batch", "encode manifest", err)
	}

	path := filepath.Join(r.cfg.Output.Dir, r.cfg.Output.Manifest)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.KindEmit, "batch", "create manifest dir", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.KindEmit, "batch", "write manifest", err)
	}

	r.logger.Info("manifest written to %s (%d entries)", path, len(manifest))
	return nil
}
