package version

import "fmt"

var (
	// Version is the release version, set with -ldflags "-X .../version.Version=..."
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Banner is the one-line build identity printed at startup.
func Banner(program string) string {
	return fmt.Sprintf("%s %s (%s, built %s)", program, Version, GitSHA, BuildTime)
}
