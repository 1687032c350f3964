// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/scopebuild/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for --version output.
func String() string {
	return fmt.Sprintf("scopebuild %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
