// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bzero defines helper functions to zero sensitive memory.
package bzero

// Bytes sets all entries in the given byte slice buffer to zero.
func Bytes(buffer []byte) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// Bytes32 zeroes a 32-byte array in place. A nil pointer is ignored.
func Bytes32(buffer *[32]byte) {
	if buffer != nil {
		Bytes(buffer[:])
	}
}

// Slices zeroes every buffer in buffers.
func Slices(buffers ...[]byte) {
	for _, b := range buffers {
		Bytes(b)
	}
}
