// Package version carries build identity, injected via -ldflags at release
// build time.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// ProcessorTag is the fixed identifier written into every artifact so a
// surface can be traced back to the build that produced it.
func ProcessorTag() string {
	return fmt.Sprintf("bigmap-metrics %s (%s)", Version, GitSHA)
}
