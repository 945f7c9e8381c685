// Package version carries build metadata set through -ldflags:
//
//	-X github.com/dl-alexandre/dbxmirror/pkg/version.Version=1.0.0
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Name is the program name used in version output and the User-Agent
const Name = "dbxmirror"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running build
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
}

func Get() *Info {
	platform := runtime.GOOS + "/" + runtime.GOARCH
	return &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  platform,
		UserAgent: userAgent(Version, platform),
	}
}

// String renders the one-line form printed by `dbxmirror version`.
// Unknown commit and build time are left out.
func (i *Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", Name, i.Version)
	if i.GitCommit != "unknown" && i.GitCommit != "" {
		fmt.Fprintf(&b, " (%s)", i.GitCommit)
	}
	if i.BuildTime != "unknown" && i.BuildTime != "" {
		fmt.Fprintf(&b, " built %s", i.BuildTime)
	}
	fmt.Fprintf(&b, ", %s %s", i.GoVersion, i.Platform)
	return b.String()
}

// UserAgent is sent on every HTTP request to the storage backends
func UserAgent() string {
	return Get().UserAgent
}

func userAgent(version, platform string) string {
	return fmt.Sprintf("%s/%s (%s)", Name, version, platform)
}
