// Package version holds build metadata injected via ldflags.
package version

// Populated by the build pipeline; "dev" values mean a local build.
//
//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
