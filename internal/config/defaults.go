package config

import (
	"fmt"
	"time"
)

const (
	defaultOutputDirectory = "./public"
	defaultCacheDirectory  = ".sitebuilder/cache"
	defaultMemoryCapacity  = 256
	defaultMemoryTTL       = time.Hour
	defaultImageQuality    = 80
	defaultConcurrency     = 4
	defaultDependencyFile  = "package.json"
	defaultPageTitle       = "Site"
)

// encodableFormats lists the output formats the image pipeline can encode.
var encodableFormats = map[string]bool{
	"jpeg": true,
	"jpg":  true,
	"png":  true,
	"webp": true,
	"avif": true,
}

// applyDefaults fills in sane defaults for omitted fields.
func (c *Config) applyDefaults() {
	if c.Source.Images == "" {
		c.Source.Images = "assets/images"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = defaultOutputDirectory
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = defaultCacheDirectory
	}
	if c.Cache.MemoryCapacity == 0 {
		c.Cache.MemoryCapacity = defaultMemoryCapacity
	}
	if c.Cache.MemoryTTL == "" {
		c.Cache.MemoryTTL = defaultMemoryTTL.String()
	}
	if len(c.Images.Formats) == 0 {
		c.Images.Formats = []string{"webp", "avif"}
	}
	if len(c.Images.Widths) == 0 {
		c.Images.Widths = []int{640, 1024, 1920}
	}
	if c.Images.Quality == 0 {
		c.Images.Quality = defaultImageQuality
	}
	if c.Images.Concurrency == 0 {
		c.Images.Concurrency = defaultConcurrency
	}
	if c.Scripts.DependencyManifest == "" {
		c.Scripts.DependencyManifest = defaultDependencyFile
	}
	if c.Page.Title == "" {
		c.Page.Title = defaultPageTitle
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}
	if c.Cache.MemoryCapacity < 0 {
		return fmt.Errorf("cache.memory_capacity must not be negative, got %d", c.Cache.MemoryCapacity)
	}
	if _, err := time.ParseDuration(c.Cache.MemoryTTL); err != nil {
		return fmt.Errorf("cache.memory_ttl %q is not a valid duration: %w", c.Cache.MemoryTTL, err)
	}
	for _, f := range c.Images.Formats {
		if !encodableFormats[f] {
			return fmt.Errorf("images.formats contains unsupported format %q", f)
		}
	}
	for _, w := range c.Images.Widths {
		if w <= 0 {
			return fmt.Errorf("images.widths must be positive, got %d", w)
		}
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100, got %d", c.Images.Quality)
	}
	if c.Images.Concurrency < 1 {
		return fmt.Errorf("images.concurrency must be at least 1, got %d", c.Images.Concurrency)
	}
	return nil
}
