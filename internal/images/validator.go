package images

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// cachedImage is the payload stored for a processed source image.
type cachedImage struct {
	Source      string                  `json:"source"`      // absolute source path
	SourceMod   int64                   `json:"source_mod"`  // mtime, unix nanos
	Versions    []manifest.ImageVersion `json:"versions"`
	OutputSizes map[string]int64        `json:"output_sizes"` // output path relative to outDir -> bytes
}

// Validator returns the image-kind cache predicate. An entry stays valid
// while the source file's modification time matches the recorded one and
// every recorded output file is still present at its recorded size (a crash
// mid-write leaves missing or truncated files behind, which must degrade to
// a miss so the next run overwrites them).
func Validator(outDir string) cache.Validator {
	return func(e *cache.Entry) bool {
		p, err := cache.Payload[cachedImage](e)
		if err != nil {
			return false
		}
		info, err := os.Stat(p.Source)
		if err != nil || info.ModTime().UnixNano() != p.SourceMod {
			return false
		}
		for rel, size := range p.OutputSizes {
			oi, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel)))
			if err != nil || oi.Size() != size {
				return false
			}
		}
		return true
	}
}
