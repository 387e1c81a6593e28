// Package version reports what build is running
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Service names the API process in health and version payloads
const Service = "cancioneiro-api"

// set with -ldflags "-X cancioneiro/internal/core/version.version=v0.3.0 ..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// BuildInfo is the version payload
type BuildInfo struct {
	Service string `json:"service" example:"cancioneiro-api"`
	Version string `json:"version" example:"v0.3.0"`
	Commit  string `json:"commit"  example:"4f2a9c1"`
	Date    string `json:"date"    example:"2026-03-01T09:00:00Z"`
	Go      string `json:"go"      example:"go1.25.0"`
}

var info = sync.OnceValue(func() BuildInfo {
	b := BuildInfo{Service: Service, Version: version, Commit: commit, Date: date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.Go = bi.GoVersion
	// go build stamps vcs settings; ldflags win when both are present
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "none" && len(s.Value) >= 7:
			b.Commit = s.Value[:7]
		case s.Key == "vcs.time" && date == "unknown":
			b.Date = s.Value
		}
	}
	return b
})

// Info returns the build information
func Info() BuildInfo { return info() }

// String renders the info on one line for CLIs
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Service, b.Version, b.Commit, b.Date)
}
