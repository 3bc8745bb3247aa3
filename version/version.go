// Package version exposes the build metadata stamped into httptrail
// binaries at link time:
//
//	go build -ldflags "\
//	  -X github.com/lgc202/httptrail/version.gitVersion=$(git describe --tags --always) \
//	  -X github.com/lgc202/httptrail/version.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/lgc202/httptrail/version.gitTreeState=clean \
//	  -X github.com/lgc202/httptrail/version.buildDate=$(date -u +'%Y-%m-%dT%H:%M:%SZ')"
//
// For semantic version comparison use golang.org/x/mod/semver.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/gosuri/uitable"
)

var (
	// gitVersion is the semantic version, vMAJOR.MINOR.PATCH[-PRERELEASE][+BUILD].
	gitVersion = "v0.0.0-master+$Format:%h$"
	// buildDate is the ISO8601 build timestamp, $(date -u +'%Y-%m-%dT%H:%M:%SZ').
	buildDate = "1970-01-01T00:00:00Z"
	// gitCommit is the full SHA1, $(git rev-parse HEAD).
	gitCommit = "$Format:%H$"
	// gitTreeState is "clean" or "dirty" at build time.
	gitTreeState = ""
	// buildUser is who ran the build.
	buildUser = ""
	// buildHost is where the build ran.
	buildHost = ""
)

// Info describes the build of a running binary.
type Info struct {
	GitVersion   string `json:"gitVersion"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState,omitempty"`
	BuildDate    string `json:"buildDate"`
	BuildUser    string `json:"buildUser,omitempty"`
	BuildHost    string `json:"buildHost,omitempty"`
	GoVersion    string `json:"goVersion"`
	Compiler     string `json:"compiler"`
	Platform     string `json:"platform"`
}

// String returns the version, marked when built from a dirty tree.
func (info Info) String() string {
	if info.GitTreeState == "dirty" {
		return info.GitVersion + "-dirty"
	}
	return info.GitVersion
}

// ShortString returns the bare version string.
func (info Info) ShortString() string {
	return info.GitVersion
}

// ToJSON encodes the info on one line.
func (info Info) ToJSON() (string, error) {
	s, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(s), nil
}

// ToJSONIndent encodes the info indented for humans.
func (info Info) ToJSONIndent() (string, error) {
	s, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(s), nil
}

// Text renders the info as an aligned table, omitting fields the build did
// not stamp.
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	table.AddRow("gitVersion:", info.GitVersion)
	table.AddRow("gitCommit:", info.GitCommit)
	if info.GitTreeState != "" {
		table.AddRow("gitTreeState:", info.GitTreeState)
	}
	table.AddRow("buildDate:", info.BuildDate)
	if info.BuildUser != "" {
		table.AddRow("buildUser:", info.BuildUser)
	}
	if info.BuildHost != "" {
		table.AddRow("buildHost:", info.BuildHost)
	}
	table.AddRow("goVersion:", info.GoVersion)
	table.AddRow("compiler:", info.Compiler)
	table.AddRow("platform:", info.Platform)

	return table.String()
}

// Get returns the build info of the running binary.
func Get() Info {
	return Info{
		GitVersion:   gitVersion,
		GitCommit:    gitCommit,
		GitTreeState: gitTreeState,
		BuildDate:    buildDate,
		BuildUser:    buildUser,
		BuildHost:    buildHost,
		GoVersion:    runtime.Version(),
		Compiler:     runtime.Compiler,
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
