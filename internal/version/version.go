// Package version reports the admitguard build.
package version

import (
	"runtime/debug"
)

// Overridable at link time:
//
//	-ldflags "-X github.com/admitguard/admitguard/internal/version.Version=v1.0.0"
var (
	Version = ""
	Commit  = ""
)

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the linked version, then the module version, or "dev".
func BuildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// Revision returns the short VCS revision, empty if unknown
func Revision() string {
	if Commit != "" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// String is the human form used by `admitguard version`
func String() string {
	v := BuildVersion()
	if r := Revision(); r != "" {
		v += " (" + r + ")"
	}
	return v
}
