/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import "fmt"

// Version is the current version of Linecrew.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/linecrew/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Commit is the git commit the binary was built from, set via ldflags.
var Commit = "unknown"

// BuildDate is the build timestamp, set via ldflags.
var BuildDate = "unknown"

// String returns the full version line printed by the version command.
func String() string {
	return fmt.Sprintf("linecrew %s (commit %s, built %s)", Version, Commit, BuildDate)
}
