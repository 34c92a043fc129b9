// Package version holds build metadata for the tablepose binaries. The
// values are overridden at link time, for example:
//
//	go build -ldflags "-X github.com/banshee-data/tablepose/internal/version.Version=v0.3.0" ./cmd/tablepose
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
