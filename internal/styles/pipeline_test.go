package styles

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

func writeStylesheet(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestPipeline(t *testing.T, inputs []string, outDir string) *Pipeline {
	t.Helper()
	store, err := cache.New(cache.Options{Dir: filepath.Join(t.TempDir(), "cache"), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return New(Options{Inputs: inputs, OutputDir: outDir, Store: store, Logger: quietLogger()})
}

func TestRunWritesHashedMinifiedOutput(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeStylesheet(t, srcDir, "a.css", "body {\n  color: red;\n}\n")
	b := writeStylesheet(t, srcDir, "b.css", ".menu {\n  user-select: none;\n}\n")

	p := newTestPipeline(t, []string{a, b}, outDir)
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Processed {
		t.Error("expected Processed on first run")
	}
	if !strings.HasPrefix(result.FileName, "styles/styles.") || !strings.HasSuffix(result.FileName, ".css") {
		t.Errorf("FileName = %q, want styles/styles.<hash>.css", result.FileName)
	}

	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(result.FileName)))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "\n  ") {
		t.Error("output does not look minified")
	}
	if !strings.Contains(content, "-webkit-user-select") {
		t.Error("output missing vendor-prefixed declaration")
	}
	// Inputs concatenate in configured order: a.css rules precede b.css rules.
	if strings.Index(content, "body") > strings.Index(content, ".menu") {
		t.Error("concatenation order does not follow input order")
	}
}

func TestRunSecondRunHitsCache(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeStylesheet(t, srcDir, "a.css", "body { margin: 0; }")

	p := newTestPipeline(t, []string{a}, outDir)
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
	if second.FileName != first.FileName {
		t.Errorf("FileName changed: %q vs %q", first.FileName, second.FileName)
	}
}

func TestRunInvalidatesOnInputChange(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeStylesheet(t, srcDir, "a.css", "body { margin: 0; }")
	b := writeStylesheet(t, srcDir, "b.css", "p { padding: 0; }")

	p := newTestPipeline(t, []string{a, b}, outDir)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Touch only the second input.
	future := time.Now().Add(3 * time.Second)
	if err := os.Chtimes(b, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !result.Processed {
		t.Error("expected reprocessing after input mtime change")
	}
}

func TestRunReorderedInputsMiss(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeStylesheet(t, srcDir, "a.css", "body { margin: 0; }")
	b := writeStylesheet(t, srcDir, "b.css", "p { padding: 0; }")

	store, err := cache.New(cache.Options{Dir: filepath.Join(t.TempDir(), "cache"), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	p1 := New(Options{Inputs: []string{a, b}, OutputDir: outDir, Store: store, Logger: quietLogger()})
	if _, err := p1.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Reordering the unchanged inputs changes the cache key; this is
	// deliberate order-sensitive behavior.
	p2 := New(Options{Inputs: []string{b, a}, OutputDir: outDir, Store: store, Logger: quietLogger()})
	result, err := p2.Run(context.Background())
	if err != nil {
		t.Fatalf("reordered Run failed: %v", err)
	}
	if !result.Processed {
		t.Error("expected reordered inputs to miss the cache")
	}
}

func TestRunRegeneratesMissingOutput(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	a := writeStylesheet(t, srcDir, "a.css", "body { margin: 0; }")

	p := newTestPipeline(t, []string{a}, outDir)
	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	if err := os.Remove(filepath.Join(outDir, filepath.FromSlash(first.FileName))); err != nil {
		t.Fatalf("remove output: %v", err)
	}

	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !second.Processed {
		t.Error("expected reprocessing after output removal")
	}
	if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(second.FileName))); err != nil {
		t.Errorf("output not restored: %v", err)
	}
}

func TestRunNoInputs(t *testing.T) {
	p := newTestPipeline(t, nil, t.TempDir())
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FileName != "" || result.Processed {
		t.Errorf("result = %+v, want empty no-op", result)
	}
}

func TestRunMissingInputFails(t *testing.T) {
	p := newTestPipeline(t, []string{filepath.Join(t.TempDir(), "absent.css")}, t.TempDir())
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing stylesheet")
	}
	if !strings.Contains(err.Error(), "absent.css") {
		t.Errorf("error %v does not name the missing file", err)
	}
}
