// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mutechan is the command line tool for forward-secure chat channels over a
// content-addressed store.
package main

import (
	"os"

	"github.com/mutecomm/mutechan/chanengine"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/release"
	"github.com/mutecomm/mutechan/util"
	"github.com/urfave/cli"
)

func init() {
	cli.VersionPrinter = release.PrintVersion
}

func mutechanMain() error {
	defer log.Flush()

	// create channel engine
	ce := chanengine.New()
	defer ce.Close()

	// run command, interrupts cancel blocking operations
	return ce.Start(os.Args)
}

func main() {
	// work around defer not working after os.Exit()
	if err := mutechanMain(); err != nil {
		util.Fatal(err)
	}
}
