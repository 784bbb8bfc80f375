// Package styles implements the stylesheet pipeline: it concatenates the
// configured sources in order, vendor-prefixes and minifies the result, and
// writes it to a content-hashed filename so the output name changes exactly
// when the transformed bytes do.
package styles

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/fingerprint"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Options configures a Pipeline.
type Options struct {
	// Inputs is the ordered stylesheet list. Order is significant: it is the
	// concatenation order and part of the cache key, so reordering unchanged
	// files is a cache miss. That is deliberate, observable behavior.
	Inputs    []string
	OutputDir string
	Store     *cache.Store
	Logger    *slog.Logger
}

// Pipeline builds the single combined stylesheet.
type Pipeline struct {
	opts Options
}

// Result names the produced stylesheet relative to the output root.
type Result struct {
	FileName  string // e.g. styles/styles.0ab1c2d3e4.css; empty when no inputs
	Processed bool   // false on cache hit
	Duration  time.Duration
}

// cachedStyle is the style-kind cache payload.
type cachedStyle struct {
	Inputs map[string]int64 `json:"inputs"` // input path -> mtime unix nanos
	File   string           `json:"file"`   // output path relative to outDir
	Size   int64            `json:"size"`
}

var cssMinifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return m
}()

func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts}
}

// Validator returns the style-kind cache predicate: every recorded input must
// still carry its recorded modification time and the output file must exist
// at its recorded size.
func Validator(outDir string) cache.Validator {
	return func(e *cache.Entry) bool {
		p, err := cache.Payload[cachedStyle](e)
		if err != nil {
			return false
		}
		for input, mod := range p.Inputs {
			info, err := os.Stat(input)
			if err != nil || info.ModTime().UnixNano() != mod {
				return false
			}
		}
		info, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(p.File)))
		if err != nil || info.Size() != p.Size {
			return false
		}
		return true
	}
}

// Run produces the combined stylesheet, reusing the cached output when every
// input is unchanged.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if len(p.opts.Inputs) == 0 {
		p.opts.Logger.Info("no stylesheets configured")
		return &Result{Duration: time.Since(start)}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fingerprint.Key(strings.Join(p.opts.Inputs, ","), cache.KindStyle)
	if e, ok := p.opts.Store.Get(key, cache.KindStyle, Validator(p.opts.OutputDir)); ok {
		if cached, err := cache.Payload[cachedStyle](e); err == nil {
			p.opts.Logger.Debug("stylesheets unchanged, reusing output", logfields.Output(cached.File))
			return &Result{FileName: cached.File, Duration: time.Since(start)}, nil
		}
	}

	inputMods := make(map[string]int64, len(p.opts.Inputs))
	parts := make([]string, 0, len(p.opts.Inputs))
	for _, input := range p.opts.Inputs {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read stylesheet %s: %w", input, err)
		}
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("failed to stat stylesheet %s: %w", input, err)
		}
		parts = append(parts, string(data))
		inputMods[input] = info.ModTime().UnixNano()
	}

	combined := strings.Join(parts, "\n")
	prefixed := AddPrefixes(combined)
	minified, err := cssMinifier.String("text/css", prefixed)
	if err != nil {
		return nil, fmt.Errorf("failed to minify styles: %w", err)
	}

	// The output filename is content-addressed, independent of the cache key.
	sum := sha256.Sum256([]byte(minified))
	relOut := "styles/styles." + hex.EncodeToString(sum[:])[:10] + ".css"

	absOut := filepath.Join(p.opts.OutputDir, filepath.FromSlash(relOut))
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create styles output directory: %w", err)
	}
	if err := os.WriteFile(absOut, []byte(minified), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stylesheet: %w", err)
	}

	payload := cachedStyle{Inputs: inputMods, File: relOut, Size: int64(len(minified))}
	if entry, err := cache.NewEntry(key, cache.KindStyle, payload); err == nil {
		p.opts.Store.Set(entry)
	} else {
		p.opts.Logger.Warn("failed to cache style result", logfields.Error(err))
	}

	duration := time.Since(start)
	p.opts.Logger.Info("style pipeline complete",
		logfields.Count(len(p.opts.Inputs)),
		logfields.Output(relOut),
		logfields.DurationMS(duration))
	return &Result{FileName: relOut, Processed: true, Duration: duration}, nil
}
