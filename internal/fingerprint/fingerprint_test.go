package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestKeyDeterministic(t *testing.T) {
	path := writeTestFile(t, "a.jpg", "pixels")

	k1 := Key(path, cache.KindImage)
	k2 := Key(path, cache.KindImage)
	if k1 != k2 {
		t.Errorf("keys differ for unchanged file: %s vs %s", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(k1))
	}
}

func TestKeyVariesByKind(t *testing.T) {
	path := writeTestFile(t, "a.css", "body{}")

	if Key(path, cache.KindStyle) == Key(path, cache.KindScript) {
		t.Error("expected different keys for different kinds with identical identifier")
	}
	// Same holds for content identifiers
	if Key("not-a-file", cache.KindStyle) == Key("not-a-file", cache.KindScript) {
		t.Error("expected different content keys for different kinds")
	}
}

func TestKeyVariesByModTime(t *testing.T) {
	path := writeTestFile(t, "a.js", "console.log(1)")
	before := Key(path, cache.KindScript)

	// Push the mtime forward; content is irrelevant to file keys.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	after := Key(path, cache.KindScript)
	if before == after {
		t.Error("expected key change after mtime change")
	}
}

func TestKeyContentBranchForMissingFile(t *testing.T) {
	// A non-existent path is treated as literal content: stable across calls
	// and insensitive to the working directory.
	k1 := Key("styles/a.css,styles/b.css", cache.KindStyle)
	k2 := Key("styles/a.css,styles/b.css", cache.KindStyle)
	if k1 != k2 {
		t.Error("content keys must be deterministic")
	}
	if k1 == Key("styles/b.css,styles/a.css", cache.KindStyle) {
		t.Error("reordered input list must change the key")
	}
}

func TestKeyDirectoryUsesContentBranch(t *testing.T) {
	dir := t.TempDir()
	// Directories are not regular files; the identifier hashes as content,
	// so the key ignores the directory mtime.
	k1 := Key(dir, cache.KindImage)
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if k1 != Key(dir, cache.KindImage) {
		t.Error("directory keys must not depend on mtime")
	}
}
