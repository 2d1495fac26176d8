// Package version exposes build identification for the status backend. The
// release pipeline stamps Version, Commit, and BuildDate through -ldflags;
// source builds carry the defaults.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Name identifies the service in logs and on the version endpoint.
	Name = "Airglow"

	Version   = "0.3.0"
	Commit    = ""
	BuildDate = ""
)

// Info is the version fragment served by the HTTP API.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// GetInfo describes the running binary.
func GetInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String renders a startup banner such as "Airglow 0.3.0 (ab12cd3)".
func (i Info) String() string {
	banner := fmt.Sprintf("%s %s", i.Name, i.Version)
	if i.Commit != "" {
		banner = fmt.Sprintf("%s (%s)", banner, i.Commit[:min(7, len(i.Commit))])
	}
	return banner
}
