// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 computes the SHA256 hash of the given buffer.
// In mutechan SHA256 is only used to derive store addresses.
func SHA256(buffer []byte) []byte {
	hash := sha256.Sum256(buffer)
	return hash[:]
}

// SHA512 computes the SHA512 hash of the given buffer.
// SHA512 is used for everything else, for example to hash signed payloads.
func SHA512(buffer []byte) []byte {
	hash := sha512.Sum512(buffer)
	return hash[:]
}
