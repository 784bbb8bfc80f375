// Package images implements the image transformation pipeline: it discovers
// raster sources, renders resized re-encoded versions per configured format
// and width, and assembles the image manifest, reusing cached results when
// source files are unchanged.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// rasterExtensions lists the source formats the pipeline accepts.
var rasterExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Discover walks root for raster image files and returns their paths relative
// to root, sorted so downstream ordering is stable. Hidden files and
// directories are skipped. A missing root yields an empty result, not an
// error: a site without images is a valid site.
func Discover(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if !rasterExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover images in %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}
