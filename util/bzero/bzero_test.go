// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bzero

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"
)

func TestBytes(t *testing.T) {
	zero := make([]byte, 1024)
	buf := make([]byte, 1024)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		t.Fatal(err)
	}
	Bytes(buf)
	if !bytes.Equal(buf, zero) {
		t.Error("buffers differ")
	}
}

func TestBytes32(t *testing.T) {
	var a [32]byte
	for i := range a {
		a[i] = byte(i + 1)
	}
	Bytes32(&a)
	if a != [32]byte{} {
		t.Error("array not zeroed")
	}
	Bytes32(nil)
}

func TestSlices(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	Slices(a, b, nil)
	if !bytes.Equal(a, []byte{0, 0, 0}) || !bytes.Equal(b, []byte{0, 0}) {
		t.Error("slices not zeroed")
	}
}
