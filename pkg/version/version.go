// Package version exposes the build identity of the esmport binary.
package version

import "runtime/debug"

const unknown = "unknown"

// Build identity, set with -ldflags "-X .../pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills the fields left unset by the linker from the
// module build info embedded by the go tool.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == unknown && s.Value != "" {
				Commit = s.Value
				if len(Commit) > shortHashLen {
					Commit = Commit[:shortHashLen]
				}
			}
		case "vcs.time":
			if Date == unknown && s.Value != "" {
				Date = s.Value
			}
		}
	}
}

const shortHashLen = 12

// String renders the identity on one line.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
