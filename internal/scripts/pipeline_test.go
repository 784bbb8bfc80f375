package scripts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Store == nil {
		store, err := cache.New(cache.Options{Dir: filepath.Join(t.TempDir(), "cache"), Logger: quietLogger()})
		if err != nil {
			t.Fatalf("cache.New: %v", err)
		}
		opts.Store = store
	}
	opts.Logger = quietLogger()
	return New(opts)
}

func TestRunBundlesEntry(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeSource(t, srcDir, "lib.js", "export const greeting = 'hello';\n")
	entry := writeSource(t, srcDir, "app.js", "import { greeting } from './lib.js';\nconsole.log(greeting);\n")

	p := newTestPipeline(t, Options{Entries: []string{entry}, OutputDir: outDir})
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Processed {
		t.Error("expected Processed on first run")
	}
	if len(result.Files) != 1 {
		t.Fatalf("got %d output files, want 1: %v", len(result.Files), result.Files)
	}
	rel := result.Files[0]
	if !strings.HasPrefix(rel, "scripts/app-") || !strings.HasSuffix(rel, ".js") {
		t.Errorf("output %q, want scripts/app-<hash>.js", rel)
	}

	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Error("bundle does not contain imported constant")
	}

	if _, err := os.Stat(filepath.Join(outDir, "scripts", AnalysisFileName)); err != nil {
		t.Errorf("bundle analysis missing: %v", err)
	}
}

func TestRunSecondRunHitsCache(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	entry := writeSource(t, srcDir, "app.js", "console.log(1);\n")

	p := newTestPipeline(t, Options{Entries: []string{entry}, OutputDir: outDir})
	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if second.Processed {
		t.Error("second run processed despite unchanged inputs")
	}
	if len(second.Files) != len(first.Files) || second.Files[0] != first.Files[0] {
		t.Errorf("cached files %v differ from first run %v", second.Files, first.Files)
	}
}

func TestRunInvalidatesOnImportedFileChange(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	lib := writeSource(t, srcDir, "lib.js", "export const n = 1;\n")
	entry := writeSource(t, srcDir, "app.js", "import { n } from './lib.js';\nconsole.log(n);\n")

	p := newTestPipeline(t, Options{Entries: []string{entry}, OutputDir: outDir})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// The entry point is untouched; only a transitively bundled file moves.
	future := time.Now().Add(3 * time.Second)
	if err := os.Chtimes(lib, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !result.Processed {
		t.Error("expected rebundle after imported file change")
	}
}

func TestRunInvalidatesOnDependencyManifestChange(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	entry := writeSource(t, srcDir, "app.js", "console.log(1);\n")
	descriptor := writeSource(t, srcDir, "package.json", `{"dependencies":{}}`)

	p := newTestPipeline(t, Options{
		Entries:            []string{entry},
		OutputDir:          outDir,
		DependencyManifest: descriptor,
	})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	future := time.Now().Add(3 * time.Second)
	if err := os.Chtimes(descriptor, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !result.Processed {
		t.Error("expected rebundle after dependency descriptor change")
	}
}

func TestRunKeepsExternalsUnbundled(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	entry := writeSource(t, srcDir, "app.js", "import { createApp } from 'vue';\ncreateApp({});\n")

	p := newTestPipeline(t, Options{
		Entries:   []string{entry},
		OutputDir: outDir,
		Externals: []string{"vue"},
	})
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(result.Files[0])))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if !strings.Contains(string(data), `"vue"`) {
		t.Error("external import should remain in the bundle as a bare specifier")
	}
}

func TestRunFailsOnMissingEntry(t *testing.T) {
	p := newTestPipeline(t, Options{
		Entries:   []string{filepath.Join(t.TempDir(), "absent.js")},
		OutputDir: t.TempDir(),
	})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing entry point")
	}
}

func TestRunNoEntries(t *testing.T) {
	p := newTestPipeline(t, Options{OutputDir: t.TempDir()})
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Files) != 0 || result.Processed {
		t.Errorf("result = %+v, want empty no-op", result)
	}
}
