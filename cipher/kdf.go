// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/sha512"
	"io"

	"github.com/mutecomm/mutechan/log"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of all symmetric keys derived in mutechan.
const KeySize = 32

// HKDFSHA512 derives a KeySize long key from secret with HKDF-SHA512, using
// info as the context string and no salt.
func HKDFSHA512(secret []byte, info string) []byte {
	r := hkdf.New(sha512.New, secret, nil, []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// cannot happen for KeySize much smaller than 255*64
		panic(log.Critical(err))
	}
	return key
}

// BLAKE2bMAC derives a KeySize long key as keyed BLAKE2b-256 of info under
// secret. len(secret) must not exceed 64 bytes.
func BLAKE2bMAC(secret []byte, info string) []byte {
	h, err := blake2b.New256(secret)
	if err != nil {
		panic(log.Critical(err))
	}
	h.Write([]byte(info))
	return h.Sum(make([]byte, 0, KeySize))
}
