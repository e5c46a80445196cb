// Package build holds build-time information.
package build

import "fmt"

// Version, Commit and Date are overwritten by linker flags, for example
// -ldflags "-X go.trai.ch/tangle/internal/build.Version=v1.2.0".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the running binary.
func Info() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
