package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Tag and GitCommit are set with -ldflags at release time.
	Tag       = "v0.0.0-dev"
	GitCommit = "HEAD"
)

type Version struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
	Dirty  bool   `json:"dirty"`
}

func (v Version) String() string {
	if len(v.Commit) < 12 {
		return v.Tag
	}
	if v.Dirty {
		return fmt.Sprintf("%s+%s-dirty", v.Tag, v.Commit[:12])
	}
	return fmt.Sprintf("%s+%s", v.Tag, v.Commit[:12])
}

// Get falls back to the VCS stamp of the build when GitCommit was not injected.
func Get() Version {
	v := Version{Tag: Tag, Commit: GitCommit}
	if GitCommit != "HEAD" {
		return v
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Commit = s.Value
		case "vcs.modified":
			v.Dirty = s.Value == "true"
		}
	}
	return v
}
