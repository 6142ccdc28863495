// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package version

import (
	"fmt"
	"strings"
)

var (
	// The git commit that was compiled. Filled in by the compiler.
	GitCommit string

	// The main version number that is being run at the moment.
	Version = "0.1.0"

	// VersionPrerelease is a pre-release marker for the version. If this
	// is "" (empty string) then it means that it is a final release.
	// Otherwise, this is a pre-release such as "dev", "beta", "rc1", etc.
	VersionPrerelease = "dev"
)

// GetHumanVersion composes the parts of the version in a way that's suitable
// for displaying to humans.
func GetHumanVersion() string {
	version := Version
	if VersionPrerelease != "" && !strings.HasSuffix(version, "-"+VersionPrerelease) {
		version += fmt.Sprintf("-%s", VersionPrerelease)
	}

	// Strip off any single quotes added by the git information.
	return strings.ReplaceAll(version, "'", "")
}
