package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"imageset-go/internal/app/runner"
	"imageset-go/internal/domain/cache"
	"imageset-go/internal/domain/eventbus"
	domainimage "imageset-go/internal/domain/image"
	"imageset-go/internal/domain/image/infrastructure/adapters/imaging"
	"imageset-go/internal/emit"
	"imageset-go/internal/naming"
	platformconfig "imageset-go/internal/platform/config"
	platformerrors "imageset-go/internal/platform/errors"
	platformlogging "imageset-go/internal/platform/logging"
	platformobservability "imageset-go/internal/platform/observability"
	httptransport "imageset-go/internal/transport/http"
	httpderive "imageset-go/internal/transport/http/derive"
	"imageset-go/internal/transport/ws"
	"imageset-go/internal/watch"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	configPath string

	config                *platformconfig.Config
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	cacheStore            cache.Store
	emitter               domainimage.Emitter
	service               *domainimage.Service
	runner                *runner.Runner
}

// Options selects the bootstrap entry point inputs.
type Options struct {
	ConfigPath string
}

// setup runs the init graph and returns the assembled application state.
func setup(ctx context.Context, opts Options) (*appState, error) {
	state := &appState{configPath: opts.ConfigPath}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return nil, err
	}
	if state.config == nil || state.logger == nil || state.runner == nil {
		return nil, platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger/runner not initialised",
		)
	}
	return state, nil
}

func (s *appState) close() {
	if shutdown := s.observabilityShutdown; shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			s.logger.Warn("observability shutdown failed: %v", err)
		}
	}
	if s.cacheStore != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cacheStore.Close(closeCtx); err != nil {
			s.logger.Warn("cache store close failed: %v", err)
		}
	}
	s.logger.Close()
}

// RunGenerate executes one invocation for sourcePath and returns the
// descriptor.
func RunGenerate(ctx context.Context, opts Options, sourcePath string, ov runner.Overrides) (*domainimage.Descriptor, error) {
	state, err := setup(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer state.close()

	return state.runner.Generate(ctx, sourcePath, ov)
}

// RunBatch sweeps the configured source directory and writes the manifest.
func RunBatch(ctx context.Context, opts Options, dir string, ov runner.Overrides) error {
	state, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer state.close()

	if dir == "" {
		dir = state.config.Source.Dir
	}

	manifest, err := state.runner.Batch(ctx, dir, ov)
	if err != nil {
		return err
	}
	state.logger.Info("batch complete: %d images processed", len(manifest))
	return nil
}

// RunServe starts the dev server (HTTP API, output hosting and the
// live-reload hub) and the source watcher when enabled, then blocks
// until a shutdown signal arrives.
func RunServe(ctx context.Context, opts Options) error {
	state, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer state.close()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	hub, err := startHTTPServer(state, group, groupCtx)
	if err != nil {
		cancel()
		return err
	}
	defer hub.CloseAll()

	if state.config.Watch.Enabled {
		if err := startWatcher(state, group, groupCtx); err != nil {
			cancel()
			return err
		}
	}

	return waitForShutdown(signalCtx, cancel, state.logger, group)
}

// RunWatch runs the watcher without the HTTP surface.
func RunWatch(ctx context.Context, opts Options) error {
	state, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer state.close()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	if err := startWatcher(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, state.logger, group)
}

// InitGraph describes the ordered initialisation steps with their
// dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "cache:init",
			Title:     "Initialise descriptor cache",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindCache,
			Execute:   initCacheStep,
		},
		{
			ID:        "emit:init",
			Title:     "Initialise artifact emitter",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindEmit,
			Execute:   initEmitterStep,
		},
		{
			ID:        "image:init-service",
			Title:     "Initialise derivative service",
			DependsOn: []string{"logging:init", "emit:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initServiceStep,
		},
		{
			ID:        "runner:init",
			Title:     "Initialise runner",
			DependsOn: []string{"image:init-service", "cache:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initRunnerStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if stderrors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader(state.configPath).Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
		Format:   state.config.Log.Format,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}

	state.logger = logger
	logger.Debug("logging ready [%s] %s", state.config.Log.Level, state.configPath)

	// per-artifact visibility rides the async bus so emission never
	// blocks on the log writer
	err = eventbus.GetAsync().Subscribe(eventbus.EventArtifactEmitted, func(ev eventbus.ArtifactEvent) {
		logger.Debug("emitted %s (%dx%d, %d bytes) from %s", ev.OutputPath, ev.Width, ev.Height, ev.Bytes, ev.SourcePath)
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "subscribe artifact events", err)
	}
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: state.config.Obs.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	if !state.config.Cache.Enabled {
		return nil
	}

	store, err := cache.New(state.config.Cache)
	if err != nil {
		return err
	}
	state.cacheStore = store
	state.logger.Debug("descriptor cache ready (%s)", state.config.Cache.Type)
	return nil
}

func initEmitterStep(_ context.Context, state *appState) error {
	switch state.config.Output.Emitter {
	case "", "fs":
		state.emitter = emit.NewFS()
	case "s3":
		store, err := emit.NewObjectStore(state.config.Output.S3)
		if err != nil {
			return err
		}
		state.emitter = store
	default:
		return platformerrors.New(
			platformerrors.KindConfig,
			"emit:init",
			fmt.Sprintf("unsupported emitter %q", state.config.Output.Emitter),
		)
	}
	return nil
}

func initServiceStep(_ context.Context, state *appState) error {
	svc, err := domainimage.NewService(domainimage.ServiceOptions{
		Adapters:  imaging.NewFactory(),
		Namer:     naming.NewResolver(state.config.Output.Dir, state.config.Output.PublicPath),
		Emitter:   state.emitter,
		Validator: domainimage.NewValidator(state.config.Limits, state.logger),
		Logger:    state.logger,
	})
	if err != nil {
		return err
	}
	state.service = svc
	return nil
}

func initRunnerStep(_ context.Context, state *appState) error {
	run, err := runner.New(state.config, state.logger, state.service, state.cacheStore)
	if err != nil {
		return err
	}
	state.runner = run
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*ws.Hub, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httptransport.APIResponse{
			Success: false,
			Data:    gin.H{},
			Message: "not found",
			Code:    http.StatusNotFound,
		})
	})

	deriveService, err := httpderive.NewService(config, logger, state.runner)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "derive:new-service", "failed to create derive service", err)
	}
	if err := deriveService.Register(groupCtx, httpRouter.API); err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger)
	if err := hub.Register(router); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "reload:register-hub", "failed to register reload hub", err)
	}

	addr := config.Web.IP + ":" + strconv.Itoa(config.Web.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g.Go(func() error {
		logger.Info("dev server listening on http://%s", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed: %v", err)
			} else {
				logger.Info("http server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed: %v", err)
			return err
		}
		return nil
	})

	return hub, nil
}

func startWatcher(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	watcher, err := watch.New(state.config, state.logger, state.runner)
	if err != nil {
		return err
	}

	g.Go(func() error {
		if err := watcher.Run(groupCtx); err != nil && !stderrors.Is(err, context.Canceled) {
			state.logger.Error("watcher failed: %v", err)
			return err
		}
		return nil
	})
	return nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.Info("shutdown signal received, cleaning up")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && !stderrors.Is(err, context.Canceled) {
			logger.Error("shutdown finished with error: %v", err)
			return err
		}
		logger.Info("all services stopped")
	case <-time.After(15 * time.Second):
		logger.Error("shutdown timed out")
		return stderrors.New("shutdown timed out")
	}
	return nil
}
