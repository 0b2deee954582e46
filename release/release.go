// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package release implements release specific constants and methods.
package release

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
)

// Commit and Date of the release, set with
//
//	go build -ldflags "-X github.com/mutecomm/mutechan/release.Commit=..."
var (
	Commit = "unknown"
	Date   = "unknown"
)

// PrintVersion prints version information.
func PrintVersion(c *cli.Context) {
	fmt.Fprintf(c.App.Writer, "%v version %v\n", c.App.Name, c.App.Version)
	fmt.Fprintf(c.App.Writer, "commit %s\n", Commit)
	fmt.Fprintf(c.App.Writer, "Date:   %s\n", Date)
	fmt.Fprintf(c.App.Writer, "built with %s for %s/%s\n", runtime.Version(),
		runtime.GOOS, runtime.GOARCH)
}
