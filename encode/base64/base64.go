// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package base64 implements base64 helper functions for mutechan.
//
// Encode and Decode use the standard encoding with padding. The URL
// variants use the unpadded URL-safe alphabet and are used for store
// addresses and handshake artifacts that travel in URLs and chat windows.
package base64

import (
	"encoding/base64"
	"io"
)

var (
	base64Encoding    = base64.StdEncoding
	base64URLEncoding = base64.RawURLEncoding
)

// Decode returns the bytes represented by the base64 string s.
func Decode(s string) ([]byte, error) {
	return base64Encoding.DecodeString(s)
}

// Encode returns the base64 encoding of src.
func Encode(src []byte) string {
	return base64Encoding.EncodeToString(src)
}

// DecodeURL returns the bytes represented by the unpadded base64url string s.
func DecodeURL(s string) ([]byte, error) {
	return base64URLEncoding.DecodeString(s)
}

// EncodeURL returns the unpadded base64url encoding of src.
func EncodeURL(src []byte) string {
	return base64URLEncoding.EncodeToString(src)
}

// NewDecoder constructs a new base64 stream decoder.
func NewDecoder(r io.Reader) io.Reader {
	return base64.NewDecoder(base64Encoding, r)
}

// NewEncoder returns a new base64 stream encoder.
func NewEncoder(w io.Writer) io.WriteCloser {
	return base64.NewEncoder(base64Encoding, w)
}
