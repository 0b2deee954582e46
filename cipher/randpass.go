// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"io"

	"github.com/mutecomm/mutechan/encode/base64"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
)

// RandPassSize is the entropy of a passphrase generated by RandPass in bytes.
const RandPassSize = 32

// RandPass returns a random passphrase with RandPassSize bytes of entropy
// read from rand, encoded in base64. The caller should wipe it after use.
func RandPass(rand io.Reader) ([]byte, error) {
	var raw [RandPassSize]byte
	defer bzero.Bytes(raw[:])
	if _, err := io.ReadFull(rand, raw[:]); err != nil {
		return nil, log.Error(err)
	}
	return []byte(base64.Encode(raw[:])), nil
}
