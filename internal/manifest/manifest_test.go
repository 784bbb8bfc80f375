package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteLoadRoundtrip(t *testing.T) {
	m := ImageManifest{
		"photos/cat.jpg": {
			{Format: "webp", Width: 640, Height: 360, File: "images/cat-640.webp"},
			{Format: "avif", Width: 640, Height: 360, File: "images/cat-640.avif"},
		},
		"photos/empty.png": {},
	}

	path := filepath.Join(t.TempDir(), "image-manifest.json")
	require.NoError(t, m.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	versions := loaded["photos/cat.jpg"]
	require.Len(t, versions, 2)
	require.Equal(t, "webp", versions[0].Format)
	require.Equal(t, "images/cat-640.webp", versions[0].File)

	// Zero-version entries survive the roundtrip
	require.Contains(t, loaded, "photos/empty.png")
}

func TestWriteIsDeterministic(t *testing.T) {
	m := ImageManifest{
		"b.jpg": {{Format: "webp", Width: 100, Height: 50, File: "images/b-100.webp"}},
		"a.jpg": {{Format: "webp", Width: 100, Height: 50, File: "images/a-100.webp"}},
	}

	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.json")
	p2 := filepath.Join(dir, "two.json")
	require.NoError(t, m.Write(p1))
	require.NoError(t, m.Write(p2))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestFileCount(t *testing.T) {
	m := ImageManifest{
		"a.jpg": {{}, {}},
		"b.jpg": {{}},
		"c.jpg": {},
	}
	require.Equal(t, 3, m.FileCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
