// Package scripts implements the script bundling pipeline: whole-program
// bundling of the configured entry points with code splitting into an
// ECMAScript-module output set, plus a human-readable bundle analysis report.
// The cache validator tracks every bundled input file and the dependency
// descriptor, so dependency upgrades invalidate bundles even when no source
// file changed.
package scripts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/fingerprint"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// AnalysisFileName is the bundle report written next to the bundles.
const AnalysisFileName = "bundle-analysis.txt"

// Options configures a Pipeline.
type Options struct {
	// Entries are the bundle entry points.
	Entries   []string
	OutputDir string
	// Externals are shared runtime dependencies excluded from the bundle.
	Externals []string
	// DependencyManifest is the package descriptor whose mtime invalidates
	// cached bundles when dependencies change. May name a missing file.
	DependencyManifest string
	Store              *cache.Store
	Logger             *slog.Logger
}

// Pipeline bundles the configured entry points.
type Pipeline struct {
	opts Options
}

// Result lists the bundle outputs relative to the output root.
type Result struct {
	Files     []string // sorted; empty when no entries configured
	Processed bool
	Duration  time.Duration
}

// cachedBundle is the script-kind cache payload.
type cachedBundle struct {
	Inputs      map[string]int64 `json:"inputs"`       // bundled file -> mtime unix nanos
	Manifest    string           `json:"manifest"`     // dependency descriptor path
	ManifestMod int64            `json:"manifest_mod"` // 0 when the descriptor is absent
	Files       []string         `json:"files"`        // outputs relative to outDir
	Sizes       map[string]int64 `json:"sizes"`
}

func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts}
}

// Validator returns the script-kind cache predicate: every bundled input and
// the dependency descriptor must carry their recorded modification times, and
// every output must exist at its recorded size.
func Validator(outDir string) cache.Validator {
	return func(e *cache.Entry) bool {
		p, err := cache.Payload[cachedBundle](e)
		if err != nil {
			return false
		}
		for input, mod := range p.Inputs {
			info, err := os.Stat(input)
			if err != nil || info.ModTime().UnixNano() != mod {
				return false
			}
		}
		if modTimeOrZero(p.Manifest) != p.ManifestMod {
			return false
		}
		for rel, size := range p.Sizes {
			info, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel)))
			if err != nil || info.Size() != size {
				return false
			}
		}
		return true
	}
}

// Run bundles the entry points, reusing the cached output set when nothing
// they depend on has changed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if len(p.opts.Entries) == 0 {
		p.opts.Logger.Info("no script entry points configured")
		return &Result{Duration: time.Since(start)}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fingerprint.Key(strings.Join(p.opts.Entries, ","), cache.KindScript)
	if e, ok := p.opts.Store.Get(key, cache.KindScript, Validator(p.opts.OutputDir)); ok {
		if cached, err := cache.Payload[cachedBundle](e); err == nil {
			p.opts.Logger.Debug("scripts unchanged, reusing bundles", logfields.Count(len(cached.Files)))
			return &Result{Files: cached.Files, Duration: time.Since(start)}, nil
		}
	}

	// esbuild reports absolute output paths; relativize against an absolute
	// root so the configured directory may be relative.
	absRoot, err := filepath.Abs(p.opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	outDir := filepath.Join(absRoot, "scripts")
	build := api.Build(api.BuildOptions{
		EntryPoints:       p.opts.Entries,
		Bundle:            true,
		Splitting:         true,
		Format:            api.FormatESModule,
		Outdir:            outDir,
		EntryNames:        "[name]-[hash]",
		ChunkNames:        "chunks/[name]-[hash]",
		External:          p.opts.Externals,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Metafile:          true,
		Write:             false,
	})
	if len(build.Errors) > 0 {
		return nil, fmt.Errorf("bundling failed: %s", formatMessages(build.Errors))
	}
	for _, warning := range build.Warnings {
		p.opts.Logger.Warn("bundler warning", slog.String("message", warning.Text))
	}

	files := make([]string, 0, len(build.OutputFiles))
	sizes := make(map[string]int64, len(build.OutputFiles))
	for _, of := range build.OutputFiles {
		rel, err := filepath.Rel(absRoot, of.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize bundle path %s: %w", of.Path, err)
		}
		rel = filepath.ToSlash(rel)
		if err := os.MkdirAll(filepath.Dir(of.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bundle directory: %w", err)
		}
		if err := os.WriteFile(of.Path, of.Contents, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write bundle %s: %w", rel, err)
		}
		files = append(files, rel)
		sizes[rel] = int64(len(of.Contents))
	}
	sort.Strings(files)

	if err := p.writeAnalysis(build.Metafile, outDir); err != nil {
		// The analysis report is informational; losing it never fails a build.
		p.opts.Logger.Warn("failed to write bundle analysis", logfields.Error(err))
	}

	inputs, err := metafileInputMods(build.Metafile)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle metadata: %w", err)
	}

	payload := cachedBundle{
		Inputs:      inputs,
		Manifest:    p.opts.DependencyManifest,
		ManifestMod: modTimeOrZero(p.opts.DependencyManifest),
		Files:       files,
		Sizes:       sizes,
	}
	if entry, err := cache.NewEntry(key, cache.KindScript, payload); err == nil {
		p.opts.Store.Set(entry)
	} else {
		p.opts.Logger.Warn("failed to cache script result", logfields.Error(err))
	}

	duration := time.Since(start)
	p.opts.Logger.Info("script pipeline complete",
		logfields.Count(len(files)),
		logfields.DurationMS(duration))
	return &Result{Files: files, Processed: true, Duration: duration}, nil
}

// writeAnalysis renders the metafile into the human-readable bundle report.
func (p *Pipeline) writeAnalysis(metafile, outDir string) error {
	analysis := api.AnalyzeMetafile(metafile, api.AnalyzeMetafileOptions{})
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, AnalysisFileName), []byte(analysis), 0o644)
}

// metafileInputMods captures the current mtime of every file the bundle was
// built from, keyed by absolute path so later validation is independent of
// the working directory.
func metafileInputMods(metafile string) (map[string]int64, error) {
	var meta struct {
		Inputs map[string]struct {
			Bytes int64 `json:"bytes"`
		} `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, err
	}

	mods := make(map[string]int64, len(meta.Inputs))
	for input := range meta.Inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			// Virtual or namespaced inputs have no backing file to track.
			continue
		}
		mods[abs] = info.ModTime().UnixNano()
	}
	return mods, nil
}

func modTimeOrZero(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

// formatMessages flattens esbuild diagnostics into one line each.
func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d: %s", m.Location.File, m.Location.Line, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
