package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// Report is the build report written alongside the generated site. Field
// names are camelCase on the wire; downstream tooling parses this file.
type Report struct {
	BuildID           string             `json:"buildId"`
	Revision          string             `json:"revision,omitempty"`
	StartedAt         time.Time          `json:"startedAt"`
	TimeInSeconds     float64            `json:"timeInSeconds"`
	Outcome           string             `json:"outcome"`
	Assets            ReportAssets       `json:"assets"`
	OutputDirectory   string             `json:"outputDirectory"`
	CacheStats        cache.Stats        `json:"cacheStats"`
	PipelineDurations map[string]float64 `json:"pipelineDurations"`
}

// ReportAssets lists the produced artifacts by kind. Paths are relative to
// the output root.
type ReportAssets struct {
	JS     []string               `json:"js"`
	CSS    []string               `json:"css"`
	Images manifest.ImageManifest `json:"images"`
}

// Persist writes the report to path via a temp file and atomic rename, so a
// crash mid-write never leaves a torn report behind.
func (r *Report) Persist(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build report: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to temporary file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace report file: %w", err)
	}
	return nil
}

// LoadReport reads a report previously written by Persist.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse build report: %w", err)
	}
	return &r, nil
}

// Revision returns the HEAD commit hash of the git work tree enclosing dir,
// or empty when dir is not inside one. Builds outside a repository are
// normal; the report just omits the field.
func Revision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
