// Package version holds build metadata injected at link time.
package version

var (
	// GitRelease is the release tag, set via -ldflags.
	GitRelease = "dev"

	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"

	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
