package version

import (
	"runtime/debug"
	"strings"
)

// Set at release time with -ldflags "-X ...".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

const develVersion = "(devel)"

// Info describes the running binary.
type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
}

// Resolve returns the version string shown by `enscribe version`.
func Resolve() string {
	return Current().String()
}

func Current() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, Date, bi)
}

func resolve(version, commit, date string, bi *debug.BuildInfo) Info {
	info := Info{Version: version, Commit: commit, Date: date}

	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != develVersion {
			info.Version = strings.TrimPrefix(bi.Main.Version, "v")
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = setting.Value
				}
			case "vcs.modified":
				info.Dirty = setting.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}
	return info
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if strings.HasSuffix(i.Version, "-dev") && i.Commit != "" {
		b.WriteString("+")
		b.WriteString(shortCommit(i.Commit))
		if i.Dirty {
			b.WriteString(".dirty")
		}
	}
	return b.String()
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
