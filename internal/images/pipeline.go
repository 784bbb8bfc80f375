package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/fingerprint"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Options configures a Pipeline.
type Options struct {
	// SourceDir is walked for raster images.
	SourceDir string
	// OutputDir is the build output root; versions land under images/ inside it.
	OutputDir string
	// Formats are the output formats rendered per width.
	Formats []string
	// Widths are the target widths; widths above a source's intrinsic width
	// are skipped for that source, never upscaled.
	Widths []int
	// Quality applies to quality-capable encoders (1-100).
	Quality int
	// Concurrency bounds how many source files transform at once.
	Concurrency int
	Store       *cache.Store
	Logger      *slog.Logger
	Recorder    metrics.Recorder
}

// Pipeline converts discovered source images into resized, re-encoded
// versions and assembles the image manifest.
type Pipeline struct {
	opts Options
}

// Result carries the assembled manifest plus work counters for the build
// report and the idempotence tests.
type Result struct {
	Manifest  manifest.ImageManifest
	Processed int // files transformed this run
	CacheHits int // files reused from cache
	Duration  time.Duration
}

// New creates an image pipeline. Zero Concurrency falls back to 4.
func New(opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Pipeline{opts: opts}
}

// Run discovers sources and fans each file out through a bounded worker
// pool. Completion order is unordered; the manifest map keyed by relative
// source path makes the final output deterministic regardless.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	files, err := Discover(p.opts.SourceDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Manifest: manifest.ImageManifest{}}
	if len(files) == 0 {
		p.opts.Logger.Info("no images to process", logfields.Path(p.opts.SourceDir))
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := os.MkdirAll(filepath.Join(p.opts.OutputDir, "images"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images output directory: %w", err)
	}

	concurrency := p.opts.Concurrency
	if concurrency > len(files) {
		concurrency = len(files)
	}
	p.opts.Recorder.SetImageConcurrency(concurrency)

	// First transform error cancels the remaining fan-out; in-flight files
	// finish.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	worker := func() {
		defer wg.Done()
		for rel := range tasks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			versions, hit, err := p.processFile(rel)
			mu.Lock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", rel, err)
				}
				mu.Unlock()
				cancel()
				continue
			}
			result.Manifest[rel] = versions
			if hit {
				result.CacheHits++
			} else {
				result.Processed++
			}
			mu.Unlock()
		}
	}

	wg.Add(concurrency)
	for range concurrency {
		go worker()
	}

feed:
	for _, rel := range files {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- rel:
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.opts.Logger.Info("image pipeline complete",
		logfields.Count(len(files)),
		slog.Int("transformed", result.Processed),
		slog.Int("cache_hits", result.CacheHits),
		logfields.DurationMS(result.Duration))
	return result, nil
}

// processFile transforms one source image, or reuses its cached versions when
// the validator accepts the entry. The returned bool reports a cache hit.
func (p *Pipeline) processFile(rel string) ([]manifest.ImageVersion, bool, error) {
	absSource := filepath.Join(p.opts.SourceDir, filepath.FromSlash(rel))
	key := fingerprint.Key(absSource, cache.KindImage)

	if e, ok := p.opts.Store.Get(key, cache.KindImage, Validator(p.opts.OutputDir)); ok {
		if cached, err := cache.Payload[cachedImage](e); err == nil {
			p.opts.Logger.Debug("image unchanged, reusing versions", logfields.File(rel))
			return cached.Versions, true, nil
		}
	}

	img, err := imaging.Open(absSource, imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}
	info, err := os.Stat(absSource)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat source: %w", err)
	}

	intrinsicWidth := img.Bounds().Dx()
	versions := make([]manifest.ImageVersion, 0, len(p.opts.Widths)*len(p.opts.Formats))
	outputSizes := make(map[string]int64)

	for _, width := range p.opts.Widths {
		if width > intrinsicWidth {
			// Never upscale.
			continue
		}
		resized := imaging.Resize(img, width, 0, imaging.Lanczos)
		height := resized.Bounds().Dy()

		for _, format := range p.opts.Formats {
			relOut := outputPath(rel, width, format)
			size, err := p.writeVersion(relOut, resized, format)
			if err != nil {
				return nil, false, err
			}
			versions = append(versions, manifest.ImageVersion{
				Format: format,
				Width:  width,
				Height: height,
				File:   relOut,
			})
			outputSizes[relOut] = size
			p.opts.Logger.Debug("wrote image version",
				logfields.File(relOut), logfields.Format(format), logfields.Width(width))
		}
	}

	payload := cachedImage{
		Source:      absSource,
		SourceMod:   info.ModTime().UnixNano(),
		Versions:    versions,
		OutputSizes: outputSizes,
	}
	if entry, err := cache.NewEntry(key, cache.KindImage, payload); err == nil {
		p.opts.Store.Set(entry)
	} else {
		p.opts.Logger.Warn("failed to cache image result", logfields.File(rel), logfields.Error(err))
	}

	return versions, false, nil
}

// writeVersion encodes one resized rendition to its output path and returns
// the written byte count.
func (p *Pipeline) writeVersion(relOut string, img image.Image, format string) (int64, error) {
	enc, err := encoderFor(format)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := enc(&buf, img, p.opts.Quality); err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	absOut := filepath.Join(p.opts.OutputDir, filepath.FromSlash(relOut))
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(absOut, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", relOut, err)
	}
	return int64(buf.Len()), nil
}

// outputPath builds the deterministic output path for one version, keeping
// the source's directory structure under images/: photos/cat.jpg at width 640
// as webp becomes images/photos/cat-640.webp.
func outputPath(rel string, width int, format string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	name := fmt.Sprintf("%s-%d.%s", base, width, Extension(format))
	if dir == "." {
		return "images/" + name
	}
	return "images/" + dir + "/" + name
}
