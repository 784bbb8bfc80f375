// Package build provides the canonical build execution pipeline for
// sitebuilder. All execution paths (CLI, tests) should route through Service.
package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// Service is the canonical interface for executing site builds.
type Service interface {
	// Run executes a complete build: the three asset pipelines concurrently,
	// then page generation, markup validation, and the final report.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains all inputs required to execute a build.
type Request struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// OutputDir overrides Config.Output.Directory when set.
	OutputDir string
}

// Result contains the outcome of a build execution.
type Result struct {
	// Status indicates overall build outcome.
	Status Status

	// BuildID uniquely identifies this build across logs, report, and ledger.
	BuildID string

	// Report is the persisted build report; nil when the build failed before
	// producing one.
	Report *Report

	// OutputDir is the final output directory.
	OutputDir string

	// ImagesProcessed is the count of source images transformed this run.
	ImagesProcessed int

	// ImageCacheHits is the count of source images reused from cache.
	ImageCacheHits int

	// Duration is the total build execution time.
	Duration time.Duration

	// StartTime is when the build started.
	StartTime time.Time

	// EndTime is when the build completed.
	EndTime time.Time
}

// Status represents the outcome of a build execution.
type Status string

const (
	// StatusSuccess indicates the build completed cleanly.
	StatusSuccess Status = "success"

	// StatusWarning indicates the build completed but the generated page
	// failed validation and the override allowed it through.
	StatusWarning Status = "warning"

	// StatusFailed indicates the build encountered a fatal error.
	StatusFailed Status = "fatal"

	// StatusCancelled indicates the build was cancelled.
	StatusCancelled Status = "cancelled"
)

// IsSuccess returns true if the build produced a usable site.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning
}
