package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// diskTier persists one JSON file per entry under the cache directory. It has
// no automatic eviction: the directory grows until an explicit Clear. Writes
// go through a uniquely named temp file and an atomic rename so concurrent
// writers on the same key cannot leave a truncated entry behind.
type diskTier struct {
	dir string
}

func newDiskTier(dir string) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &diskTier{dir: dir}, nil
}

// path maps a key to its entry file. Keys are fingerprint digests; anything
// that could escape the cache directory is rejected upstream.
func (d *diskTier) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

func (d *diskTier) read(key string) (*Entry, error) {
	// #nosec G304 - path is internal, constructed from a fingerprint digest
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &e, nil
}

func (d *diskTier) write(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", e.Key, err)
	}

	tmp, err := os.CreateTemp(d.dir, e.Key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", e.Key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry %s: %w", e.Key, err)
	}
	if err := os.Rename(tmp.Name(), d.path(e.Key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace cache entry %s: %w", e.Key, err)
	}
	return nil
}

func (d *diskTier) remove(key string) error {
	err := os.Remove(d.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *diskTier) removeAll() error {
	files, err := d.entryFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache entry %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// scan visits every entry file. Corrupt files are reported to onCorrupt and
// skipped; they are never fatal.
func (d *diskTier) scan(visit func(*Entry) bool, onCorrupt func(file string, err error)) error {
	files, err := d.entryFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		key := strings.TrimSuffix(filepath.Base(f), ".json")
		e, err := d.read(key)
		if err != nil {
			onCorrupt(f, err)
			continue
		}
		if !visit(e) {
			return nil
		}
	}
	return nil
}

// stats returns the entry-file count and their total size in bytes.
func (d *diskTier) stats() (int, int64, error) {
	files, err := d.entryFiles()
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return len(files), total, nil
}

func (d *diskTier) entryFiles() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	var files []string
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(d.dir, de.Name()))
	}
	return files, nil
}
