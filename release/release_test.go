// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package release

import (
	"bytes"
	"strings"
	"testing"

	"github.com/urfave/cli"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	app := cli.NewApp()
	app.Name = "mutechan"
	app.Version = "1.2.3"
	app.Writer = &buf
	PrintVersion(cli.NewContext(app, nil, nil))
	out := buf.String()
	if !strings.HasPrefix(out, "mutechan version 1.2.3\n") {
		t.Errorf("unexpected version output: %q", out)
	}
	if !strings.Contains(out, "commit "+Commit) {
		t.Error("commit missing")
	}
}
