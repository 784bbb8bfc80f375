// Package config loads and validates the sitebuilder configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvForce is the environment override that lets a build proceed when
// generated-markup validation fails (reported as a warning instead).
const EnvForce = "SITEBUILDER_FORCE"

// Config represents the application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Images  ImagesConfig  `yaml:"images"`
	Scripts ScriptsConfig `yaml:"scripts"`
	Markup  MarkupConfig  `yaml:"markup"`
	Page    PageConfig    `yaml:"page"`
}

// SourceConfig names the build inputs.
type SourceConfig struct {
	Images  string   `yaml:"images"`  // directory walked for raster images
	Styles  []string `yaml:"styles"`  // ordered stylesheet list; order is significant
	Scripts []string `yaml:"scripts"` // bundle entry points
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// CacheConfig configures the two-tier build cache.
type CacheConfig struct {
	Directory      string `yaml:"directory"`
	MemoryCapacity int    `yaml:"memory_capacity"`
	MemoryTTL      string `yaml:"memory_ttl"` // time.ParseDuration syntax
}

// TTL returns the parsed memory-tier TTL. Validate guarantees the string
// parses; a zero value falls back to the default.
func (c CacheConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.MemoryTTL)
	if err != nil || d <= 0 {
		return defaultMemoryTTL
	}
	return d
}

// ImagesConfig configures the image pipeline.
type ImagesConfig struct {
	Formats     []string `yaml:"formats"`
	Widths      []int    `yaml:"widths"`
	Quality     int      `yaml:"quality"`
	Concurrency int      `yaml:"concurrency"`
}

// ScriptsConfig configures the script bundling pipeline.
type ScriptsConfig struct {
	// Externals are runtime dependencies excluded from the bundle.
	Externals []string `yaml:"externals"`
	// DependencyManifest is the package descriptor whose mtime invalidates
	// cached bundles when dependencies change.
	DependencyManifest string `yaml:"dependency_manifest"`
}

// MarkupConfig configures the generated-markup validation step.
type MarkupConfig struct {
	// AllowInvalid downgrades markup validation failures to warnings.
	// The SITEBUILDER_FORCE environment variable overrides it to true.
	AllowInvalid bool `yaml:"allow_invalid"`
}

// PageConfig configures the built-in page generator.
type PageConfig struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"` // optional markdown file rendered into the page body
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env/.env.local first so ${VAR} expansion below sees them.
	// Missing files are fine; this mirrors local-development workflows.
	_ = godotenv.Load(".env", ".env.local")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides maps recognized environment variables onto the config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvForce); v != "" && v != "0" && v != "false" {
		c.Markup.AllowInvalid = true
	}
}
