package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
	"git.home.luguber.info/inful/sitebuilder/internal/images"
	"git.home.luguber.info/inful/sitebuilder/internal/markup"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/scripts"
	"git.home.luguber.info/inful/sitebuilder/internal/styles"
)

// Output artifacts the orchestrator writes at the output root.
const (
	ManifestFileName = "image-manifest.json"
	ReportFileName   = "build-report.json"
	PageFileName     = "index.html"
)

// Options provides the injection points of a DefaultService.
type Options struct {
	// Store is the shared build cache. When nil, Run opens one from the
	// request's cache configuration.
	Store *cache.Store

	// Generator produces the entry page. When nil, Run falls back to the
	// built-in static generator configured by the page section.
	Generator pages.Generator

	// History is the optional build ledger. Recording is best-effort.
	History *history.Store

	// Recorder receives build and pipeline metrics.
	Recorder metrics.Recorder
}

// DefaultService is the standard implementation of Service. It fans the
// three asset pipelines out concurrently over the shared cache, fails fast
// on the first pipeline error, and on success assembles the page, the image
// manifest, and the build report.
type DefaultService struct {
	opts Options
}

// NewService creates a DefaultService.
func NewService(opts Options) *DefaultService {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &DefaultService{opts: opts}
}

// Run executes the complete build.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	buildID := uuid.NewString()

	result := &Result{
		BuildID:   buildID,
		StartTime: startTime,
	}

	ctx = observability.WithBuildID(ctx, buildID)

	if req.Config == nil {
		return s.fail(ctx, result, errors.New("config required"))
	}
	cfg := req.Config

	outDir := req.OutputDir
	if outDir == "" {
		outDir = cfg.Output.Directory
	}
	result.OutputDir = outDir

	store := s.opts.Store
	if store == nil {
		var err error
		store, err = cache.New(cache.Options{
			Dir:      cfg.Cache.Directory,
			Capacity: cfg.Cache.MemoryCapacity,
			TTL:      cfg.Cache.TTL(),
			Recorder: s.opts.Recorder,
		})
		if err != nil {
			return s.fail(ctx, result, fmt.Errorf("failed to open build cache: %w", err))
		}
	}

	generator := s.opts.Generator
	if generator == nil {
		generator = &pages.StaticGenerator{Title: cfg.Page.Title, ContentPath: cfg.Page.Content}
	}

	observability.InfoContext(ctx, "Build starting", slog.String("output", outDir))

	imagePipe := images.New(images.Options{
		SourceDir:   cfg.Source.Images,
		OutputDir:   outDir,
		Formats:     cfg.Images.Formats,
		Widths:      cfg.Images.Widths,
		Quality:     cfg.Images.Quality,
		Concurrency: cfg.Images.Concurrency,
		Store:       store,
		Recorder:    s.opts.Recorder,
	})
	stylePipe := styles.New(styles.Options{
		Inputs:    cfg.Source.Styles,
		OutputDir: outDir,
		Store:     store,
	})
	scriptPipe := scripts.New(scripts.Options{
		Entries:            cfg.Source.Scripts,
		OutputDir:          outDir,
		Externals:          cfg.Scripts.Externals,
		DependencyManifest: cfg.Scripts.DependencyManifest,
		Store:              store,
	})

	// The pipelines share no mutable state beyond the cache store, which is
	// safe for concurrent distinct keys. The first failure cancels the group;
	// in-flight work finishes, nothing new starts.
	var (
		imageResult  *images.Result
		styleResult  *styles.Result
		scriptResult *scripts.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := imagePipe.Run(observability.WithPipeline(gctx, "images"))
		if err != nil {
			s.opts.Recorder.IncPipelineResult("images", metrics.ResultFatal)
			return &PipelineError{Pipeline: "images", Err: err}
		}
		s.opts.Recorder.ObservePipelineDuration("images", res.Duration)
		s.opts.Recorder.IncPipelineResult("images", metrics.ResultSuccess)
		imageResult = res
		return nil
	})
	g.Go(func() error {
		res, err := stylePipe.Run(observability.WithPipeline(gctx, "styles"))
		if err != nil {
			s.opts.Recorder.IncPipelineResult("styles", metrics.ResultFatal)
			return &PipelineError{Pipeline: "styles", Err: err}
		}
		s.opts.Recorder.ObservePipelineDuration("styles", res.Duration)
		s.opts.Recorder.IncPipelineResult("styles", metrics.ResultSuccess)
		styleResult = res
		return nil
	})
	g.Go(func() error {
		res, err := scriptPipe.Run(observability.WithPipeline(gctx, "scripts"))
		if err != nil {
			s.opts.Recorder.IncPipelineResult("scripts", metrics.ResultFatal)
			return &PipelineError{Pipeline: "scripts", Err: err}
		}
		s.opts.Recorder.ObservePipelineDuration("scripts", res.Duration)
		s.opts.Recorder.IncPipelineResult("scripts", metrics.ResultSuccess)
		scriptResult = res
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			result.EndTime = time.Now()
			result.Duration = result.EndTime.Sub(startTime)
			s.opts.Recorder.IncBuildOutcome(string(StatusCancelled))
			return result, ctx.Err()
		}
		observability.ErrorContext(ctx, "Pipeline failed", slog.String("error", err.Error()))
		return s.fail(ctx, result, err)
	}

	result.ImagesProcessed = imageResult.Processed
	result.ImageCacheHits = imageResult.CacheHits

	assets := ReportAssets{
		JS:     scriptResult.Files,
		CSS:    []string{},
		Images: imageResult.Manifest,
	}
	if assets.JS == nil {
		assets.JS = []string{}
	}
	if styleResult.FileName != "" {
		assets.CSS = append(assets.CSS, styleResult.FileName)
	}

	page, err := generator.GeneratePage(ctx, pages.Data{
		StyleFileName: styleResult.FileName,
		ScriptFiles:   assets.JS,
		Images:        imageResult.Manifest,
	})
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("page generation failed: %w", err))
	}

	result.Status = StatusSuccess
	if issues := markup.Validate(page); len(issues) > 0 {
		for _, issue := range issues {
			observability.WarnContext(ctx, "Markup validation issue", slog.String("issue", issue.String()))
		}
		if !cfg.Markup.AllowInvalid {
			return s.fail(ctx, result,
				fmt.Errorf("generated page failed validation with %d issues, first: %s", len(issues), issues[0]))
		}
		observability.WarnContext(ctx, "Proceeding despite markup validation failure",
			slog.Int("issues", len(issues)))
		result.Status = StatusWarning
	}

	minified, err := markup.MinifyHTML(page)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("failed to minify page: %w", err))
	}
	if err := os.WriteFile(filepath.Join(outDir, PageFileName), []byte(minified), 0o644); err != nil {
		return s.fail(ctx, result, fmt.Errorf("failed to write page: %w", err))
	}
	// The manifest reaches disk only once the page has passed validation; a
	// fatal build leaves no output artifacts behind.
	if err := imageResult.Manifest.Write(filepath.Join(outDir, ManifestFileName)); err != nil {
		return s.fail(ctx, result, err)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	stats, err := store.Stats()
	if err != nil {
		observability.WarnContext(ctx, "Failed to read cache stats", slog.String("error", err.Error()))
	}

	report := &Report{
		BuildID:         buildID,
		Revision:        Revision("."),
		StartedAt:       startTime.UTC(),
		TimeInSeconds:   result.Duration.Seconds(),
		Outcome:         string(result.Status),
		Assets:          assets,
		OutputDirectory: outDir,
		CacheStats:      stats,
		PipelineDurations: map[string]float64{
			"images":  imageResult.Duration.Seconds(),
			"styles":  styleResult.Duration.Seconds(),
			"scripts": scriptResult.Duration.Seconds(),
		},
	}
	if err := report.Persist(filepath.Join(outDir, ReportFileName)); err != nil {
		return s.fail(ctx, result, err)
	}
	result.Report = report

	s.recordHistory(ctx, result, report, nil)
	s.opts.Recorder.ObserveBuildDuration(result.Duration)
	s.opts.Recorder.IncBuildOutcome(string(result.Status))

	observability.InfoContext(ctx, "Build complete",
		slog.String("outcome", string(result.Status)),
		slog.Int("js", len(assets.JS)),
		slog.Int("css", len(assets.CSS)),
		slog.Int("images", assets.Images.FileCount()),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

// fail finalizes the result for a fatal error and records the outcome.
func (s *DefaultService) fail(ctx context.Context, result *Result, err error) (*Result, error) {
	result.Status = StatusFailed
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.opts.Recorder.IncBuildOutcome(string(StatusFailed))
	s.recordHistory(ctx, result, nil, err)
	return result, err
}

// recordHistory appends the build to the ledger when one is configured. A
// ledger failure never affects the build outcome.
func (s *DefaultService) recordHistory(ctx context.Context, result *Result, report *Report, buildErr error) {
	if s.opts.History == nil {
		return
	}

	b := history.Build{
		BuildID:   result.BuildID,
		StartedAt: result.StartTime,
		Duration:  result.Duration,
		Outcome:   string(result.Status),
	}
	if report != nil {
		b.JS = len(report.Assets.JS)
		b.CSS = len(report.Assets.CSS)
		b.Images = report.Assets.Images.FileCount()
	}
	if buildErr != nil {
		b.Error = buildErr.Error()
	}

	if err := s.opts.History.Record(ctx, b); err != nil {
		observability.WarnContext(ctx, "Failed to record build history", slog.String("error", err.Error()))
	}
}
