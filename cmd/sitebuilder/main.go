package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/cache"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/history"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
	"github.com/alecthomas/kong"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build struct {
		Output      string `short:"o" help:"Output directory for the generated site (overrides config)"`
		MetricsAddr string `help:"Serve Prometheus metrics on this address for the duration of the build"`
	} `cmd:"" help:"Build the site from the configured sources"`

	Clean struct {
		Output bool `help:"Also remove the output directory"`
	} `cmd:"" help:"Remove cached build artifacts"`

	Stats struct{} `cmd:"" help:"Show build cache statistics"`

	History struct {
		Limit int `short:"n" help:"Number of builds to show" default:"10"`
	} `cmd:"" help:"Show recent builds from the ledger"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.String()})

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Execute command
	switch ctx.Command() {
	case "build":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runBuild(cfg, CLI.Build.Output, CLI.Build.MetricsAddr); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "clean":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runClean(cfg, CLI.Clean.Output); err != nil {
			slog.Error("Clean failed", "error", err)
			os.Exit(1)
		}
	case "stats":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runStats(cfg); err != nil {
			slog.Error("Stats failed", "error", err)
			os.Exit(1)
		}
	case "history":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runHistory(cfg, CLI.History.Limit); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	}
}

// historyPath places the build ledger inside the cache directory. The ledger
// is not an entry file, so cache Clear leaves it alone.
func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.Cache.Directory, "history.db")
}

func runBuild(cfg *config.Config, outputDir, metricsAddr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		stop, err := startMetricsServer(metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	ledger, err := history.Open(historyPath(cfg))
	if err != nil {
		slog.Warn("Build history unavailable", "error", err)
	} else {
		defer func() {
			_ = ledger.Close()
		}()
	}

	service := build.NewService(build.Options{History: ledger, Recorder: resolveRecorder()})
	result, err := service.Run(ctx, build.Request{Config: cfg, OutputDir: outputDir})
	if err != nil {
		return err
	}

	fmt.Printf("Build %s in %s\n", result.Status, result.Duration.Round(time.Millisecond))
	if report := result.Report; report != nil {
		fmt.Printf("  output:  %s\n", report.OutputDirectory)
		fmt.Printf("  images:  %d processed, %d from cache\n", result.ImagesProcessed, result.ImageCacheHits)
		fmt.Printf("  assets:  %d js, %d css, %d image files\n",
			len(report.Assets.JS), len(report.Assets.CSS), report.Assets.Images.FileCount())
		if report.Revision != "" {
			fmt.Printf("  revision: %s\n", report.Revision)
		}
	}
	return nil
}

func runClean(cfg *config.Config, removeOutput bool) error {
	store, err := cache.New(cache.Options{
		Dir:      cfg.Cache.Directory,
		Capacity: cfg.Cache.MemoryCapacity,
		TTL:      cfg.Cache.TTL(),
	})
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Cleared cache at %s\n", cfg.Cache.Directory)

	if removeOutput {
		if err := os.RemoveAll(cfg.Output.Directory); err != nil {
			return fmt.Errorf("failed to remove output directory: %w", err)
		}
		fmt.Printf("Removed output directory %s\n", cfg.Output.Directory)
	}
	return nil
}

func runStats(cfg *config.Config) error {
	store, err := cache.New(cache.Options{
		Dir:      cfg.Cache.Directory,
		Capacity: cfg.Cache.MemoryCapacity,
		TTL:      cfg.Cache.TTL(),
	})
	if err != nil {
		return err
	}

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Cache directory: %s\n", cfg.Cache.Directory)
	fmt.Printf("  memory items: %d\n", stats.MemoryItems)
	fmt.Printf("  disk items:   %d\n", stats.DiskItems)
	fmt.Printf("  total size:   %s\n", formatBytes(stats.TotalBytes))
	return nil
}

func runHistory(cfg *config.Config, limit int) error {
	ledger, err := history.Open(historyPath(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_ = ledger.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	builds, err := ledger.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Println("No builds recorded yet")
		return nil
	}

	fmt.Printf("%-20s  %-9s  %-9s  %s\n", "STARTED", "OUTCOME", "DURATION", "ASSETS")
	for _, b := range builds {
		assets := fmt.Sprintf("%d js, %d css, %d images", b.JS, b.CSS, b.Images)
		fmt.Printf("%-20s  %-9s  %-9s  %s\n",
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			b.Outcome,
			b.Duration.Round(time.Millisecond),
			assets)
		if b.Error != "" {
			fmt.Printf("%22s%s\n", "", b.Error)
		}
	}
	return nil
}

// formatBytes renders a byte count in the largest sensible unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
