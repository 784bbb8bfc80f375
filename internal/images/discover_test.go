package images

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "zebra.jpg")
	touch(t, root, "apple.png")
	touch(t, root, "photos/cat.jpeg")
	touch(t, root, "photos/dog.GIF")
	touch(t, root, "banner.webp")
	touch(t, root, "notes.txt")
	touch(t, root, "style.css")
	touch(t, root, ".hidden.png")
	touch(t, root, ".thumbnails/cached.jpg")

	files, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{"apple.png", "banner.webp", "photos/cat.jpeg", "photos/dog.GIF", "zebra.jpg"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Discover = %v, want %v", files, want)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	files, err := Discover(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Discover = %v, want empty for missing root", files)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		rel    string
		width  int
		format string
		want   string
	}{
		{"cat.jpg", 640, "webp", "images/cat-640.webp"},
		{"photos/dog.png", 1024, "avif", "images/photos/dog-1024.avif"},
		{"a/b/c.jpeg", 320, "jpeg", "images/a/b/c-320.jpg"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.rel, tt.width, tt.format); got != tt.want {
			t.Errorf("outputPath(%s, %d, %s) = %s, want %s", tt.rel, tt.width, tt.format, got, tt.want)
		}
	}
}
