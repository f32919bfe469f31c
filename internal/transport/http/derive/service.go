package derive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"imageset-go/internal/app/runner"
	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/errors"
	"imageset-go/internal/platform/logging"
	httptransport "imageset-go/internal/transport/http"
)

// uploadDir holds images posted to the dev server before they run
// through the pipeline.
const uploadDir = "data/uploads"

// Service exposes the derivative pipeline over HTTP for the dev server.
type Service struct {
	logger *logging.Logger
	config *config.Config
	runner *runner.Runner
}

// NewService creates the derive HTTP service.
func NewService(cfg *config.Config, logger *logging.Logger, run *runner.Runner) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "derive.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "derive.new", "logger is required")
	}
	if run == nil {
		return nil, errors.New(errors.KindConfig, "derive.new", "runner is required")
	}

	return &Service{
		logger: logger,
		config: cfg,
		runner: run,
	}, nil
}

// Register wires the derive routes onto the API group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/derive", s.handleGet)
	router.POST("/derive", s.handlePost)

	s.logger.Info("derive routes registered")
	return nil
}

// handleGet reports service status.
func (s *Service) handleGet(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, StatusData{
		Status:    "ok",
		OutputDir: s.config.Output.Dir,
		Emitter:   s.config.Output.Emitter,
	}, "")
}

// handlePost accepts an image upload or a source path, runs the pipeline
// with any query-derived overrides, and returns the descriptor.
func (s *Service) handlePost(c *gin.Context) {
	ov, err := parseOverrides(c)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		s.logger.Warn("derive request rejected: %v", err)
		return
	}

	sourcePath, cleanup, err := s.resolveSource(c)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
		s.logger.Warn("derive request rejected: %v", err)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	descriptor, err := s.runner.Generate(c.Request.Context(), sourcePath, ov)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.IsKind(err, errors.KindConfig) || errors.IsKind(err, errors.KindPlan) {
			status = http.StatusBadRequest
		}
		httptransport.RespondError(c, status, err.Error(), nil)
		s.logger.Warn("derive run failed for %s: %v", sourcePath, err)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, ResultData{
		SourcePath: filepath.ToSlash(sourcePath),
		Descriptor: descriptor,
	}, "derivatives generated")
}

// resolveSource picks the image to process: an uploaded multipart file
// wins; otherwise the "path" form/query value names a file relative to
// the configured source directory.
func (s *Service) resolveSource(c *gin.Context) (string, func(), error) {
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()

		if s.config.Limits.MaxFileSize > 0 && header.Size > s.config.Limits.MaxFileSize {
			return "", nil, errors.New(errors.KindTransport, "derive.source",
				fmt.Sprintf("file size %d exceeds limit %d", header.Size, s.config.Limits.MaxFileSize))
		}

		saved, err := s.saveUpload(file, header.Filename)
		if err != nil {
			return "", nil, err
		}
		return saved, func() { os.Remove(saved) }, nil
	}

	rel := c.Query("path")
	if rel == "" {
		rel = c.PostForm("path")
	}
	if rel == "" {
		return "", nil, errors.New(errors.KindTransport, "derive.source", "either a file upload or a path value is required")
	}

	cleaned := filepath.Clean(rel)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", nil, errors.New(errors.KindTransport, "derive.source", "path must stay inside the source directory")
	}
	return filepath.Join(s.config.Source.Dir, cleaned), nil, nil
}

func (s *Service) saveUpload(file io.Reader, name string) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", errors.Wrap(errors.KindTransport, "derive.upload", "create upload dir", err)
	}

	base := filepath.Base(name)
	path := filepath.Join(uploadDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), base))

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.KindTransport, "derive.upload", "create upload file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", errors.Wrap(errors.KindTransport, "derive.upload", "write upload file", err)
	}
	return path, nil
}

// parseOverrides maps query params onto per-call overrides. Values are
// passed through raw; the size planner validates them.
func parseOverrides(c *gin.Context) (runner.Overrides, error) {
	var ov runner.Overrides

	ov.Size = c.Query("size")
	if raw := c.Query("sizes"); raw != "" {
		ov.Sizes = strings.Split(raw, ",")
	}
	ov.Min = c.Query("min")
	ov.Max = c.Query("max")
	ov.Background = c.Query("background")
	ov.Format = c.Query("format")

	if raw := c.Query("steps"); raw != "" {
		steps, err := strconv.Atoi(raw)
		if err != nil {
			return ov, errors.Wrap(errors.KindTransport, "derive.overrides", "invalid steps value", err)
		}
		ov.Steps = steps
	}
	if raw := c.Query("quality"); raw != "" {
		quality, err := strconv.Atoi(raw)
		if err != nil {
			return ov, errors.Wrap(errors.KindTransport, "derive.overrides", "invalid quality value", err)
		}
		ov.Quality = quality
	}
	if raw := c.Query("placeholder"); raw != "" {
		placeholder, err := strconv.ParseBool(raw)
		if err != nil {
			return ov, errors.Wrap(errors.KindTransport, "derive.overrides", "invalid placeholder value", err)
		}
		ov.Placeholder = &placeholder
	}
	if raw := c.Query("disable"); raw != "" {
		disable, err := strconv.ParseBool(raw)
		if err != nil {
			return ov, errors.Wrap(errors.KindTransport, "derive.overrides", "invalid disable value", err)
		}
		ov.Disable = &disable
	}

	return ov, nil
}
