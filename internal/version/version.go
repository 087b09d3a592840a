// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags, e.g.
//
//	-X github.com/MeKo-Tech/polyglot/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String renders the version line printed by `polyglot --version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
