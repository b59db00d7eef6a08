/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package version provides version information for the satchel CLI.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version information, set at build time via ldflags
	Version   = "dev"     // Version string (e.g., "v0.3.0")
	GitCommit = "unknown" // Git commit hash
	GitTag    = "unknown" // Git tag
	BuildTime = "unknown" // Build timestamp
	GitDirty  = ""        // "dirty" if working directory has uncommitted changes
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
	GitDirty  string `json:"gitDirty,omitempty"`
	GoVersion string `json:"goVersion"`
}

// GetVersion returns the version string for the application
func GetVersion() string {
	if Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "(devel)" && info.Main.Version != "" {
		return info.Main.Version
	}

	if GitTag != "unknown" && GitCommit != "unknown" {
		version := GitTag
		commitSuffix := GitCommit[:min(7, len(GitCommit))]
		if commitSuffix != "" && !strings.HasSuffix(GitTag, commitSuffix) {
			version = fmt.Sprintf("%s-%s", GitTag, commitSuffix)
		}
		if GitDirty == "dirty" {
			version += "-dirty"
		}
		return version
	}

	return "dev"
}

// GetFullVersion returns the version with the commit it was built from.
func GetFullVersion() string {
	info := GetBuildInfo()
	if info.GitCommit == "unknown" {
		return info.Version
	}
	return fmt.Sprintf("%s (commit: %s)", info.Version, info.GitCommit)
}

// GetBuildInfo returns detailed build information. Values not set with
// ldflags are taken from the VCS stamp of the Go toolchain when present.
func GetBuildInfo() Info {
	out := Info{
		Version:   GetVersion(),
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
		GitDirty:  GitDirty,
		GoVersion: runtime.Version(),
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if out.GitCommit == "unknown" {
				out.GitCommit = setting.Value
			}
		case "vcs.time":
			if out.BuildTime == "unknown" {
				out.BuildTime = setting.Value
			}
		case "vcs.modified":
			if out.GitDirty == "" && setting.Value == "true" {
				out.GitDirty = "dirty"
			}
		}
	}
	return out
}
