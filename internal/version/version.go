// Package version carries build-time version metadata.
// Release builds stamp it via ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/sitebuilder/internal/version.Version=v1.2.0".
package version

import "fmt"

// Version is the release version, "dev" unless stamped at build time.
var Version = "dev"

// Additional build metadata, also stamped via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the line shown by --version.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}
