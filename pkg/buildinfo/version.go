// Package buildinfo exposes the version stamped into the heapscope
// binary at build time:
//
//	go build -ldflags "\
//	    -X github.com/matzehuels/heapscope/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/heapscope/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/heapscope/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds (go install, go run) fall back to the module
// version and VCS revision recorded by the toolchain, when present.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release version, "dev" when not stamped.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

func init() {
	if Version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "none" && len(s.Value) >= 12 {
				Commit = s.Value[:12]
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		}
	}
}

// String formats the build information on a single line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", Version, Commit, Date, runtime.Version())
}

// Template renders the cobra --version output.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
		Version, Commit, Date, runtime.Version())
}
