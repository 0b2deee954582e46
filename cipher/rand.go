// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/rand"
	"io"

	"github.com/mutecomm/mutechan/log"
)

// RandReader defines the CSPRNG used in mutechan.
var RandReader = rand.Reader

// RandFail is a Reader that doesn't deliver any data.
var RandFail = eofReader{}

// RandZero is a Reader that only delivers zeros (for tests only).
var RandZero = zeroReader{}

type eofReader struct{}

func (e eofReader) Read(p []byte) (n int, err error) {
	return 0, io.EOF
}

type zeroReader struct{}

func (z zeroReader) Read(p []byte) (n int, err error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// RandBytes returns n bytes read from rand.
func RandBytes(rand io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand, b); err != nil {
		return nil, log.Error(err)
	}
	return b, nil
}
