// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
)

// Info returns the --version line: "handset 0.1.0-dev (abc1234, go1.25.6 linux/amd64)".
func Info() string {
	return format(Version, commit(), runtime.Version(), runtime.GOOS+"/"+runtime.GOARCH)
}

func format(version, commit, goVersion, platform string) string {
	return fmt.Sprintf("handset %s (%s, %s %s)", version, commit, goVersion, platform)
}

// commit returns GitCommit, falling back to the embedded VCS revision.
func commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return revision
}
