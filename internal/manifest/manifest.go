// Package manifest defines the image manifest consumed by page assembly:
// a mapping from original relative image path to the ordered list of
// optimized versions produced from it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ImageVersion describes one optimized rendition of a source image.
type ImageVersion struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	File   string `json:"file"`
}

// ImageManifest maps an original relative source path to its versions. JSON
// object keys serialize in sorted order, so the written form is deterministic
// regardless of pipeline completion order.
type ImageManifest map[string][]ImageVersion

// Write serializes the manifest to path via a temp file and atomic rename.
func (m ImageManifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal image manifest: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest to temporary file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}
	return nil
}

// Load reads a manifest previously written by Write.
func Load(path string) (ImageManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image manifest: %w", err)
	}
	var m ImageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse image manifest: %w", err)
	}
	return m, nil
}

// FileCount returns the total number of version files across all entries.
func (m ImageManifest) FileCount() int {
	n := 0
	for _, versions := range m {
		n += len(versions)
	}
	return n
}
