// Package fingerprint derives stable cache keys from build inputs. A key for
// an existing file is derived from its absolute path and modification time
// rather than its content, trading a very small risk of false-negative
// invalidation under mtime-preserving copies for speed. Any other identifier
// is keyed by its literal content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
)

// Key computes the cache key for identifier under the given asset kind. It is
// a pure function: identical inputs produce the identical key within a run
// and across runs. Changing the kind alone changes the key.
func Key(identifier string, kind cache.Kind) string {
	if info, err := os.Stat(identifier); err == nil && info.Mode().IsRegular() {
		abs, err := filepath.Abs(identifier)
		if err == nil {
			return digest("file", string(kind), abs, strconv.FormatInt(info.ModTime().UnixNano(), 10))
		}
	}
	return digest("content", string(kind), identifier)
}

// digest hashes the NUL-separated fields with SHA-256 and returns lowercase hex.
func digest(fields ...string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
