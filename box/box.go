// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package box implements authenticated boxes (symmetric AEAD envelopes keyed
// by ratchet output) and signed boxes (signature envelopes for handshake
// payloads). Both are tagged with the algorithm used.
package box

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
)

// Authenticated is a sealed box.
type Authenticated struct {
	Alg        algo.AEAD `cbor:"1,keyasint"`
	Nonce      []byte    `cbor:"2,keyasint"`
	Tag        []byte    `cbor:"3,keyasint"`
	Ciphertext []byte    `cbor:"4,keyasint"`
}

// Seal encrypts plaintext under key with a fresh random nonce read from rand.
func Seal(alg algo.AEAD, key, plaintext []byte, rand io.Reader) (*Authenticated, error) {
	if !alg.Supported() {
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	nonce, err := cipher.RandBytes(rand, alg.NonceSize())
	if err != nil {
		return nil, err
	}
	var ct, tag []byte
	switch alg {
	case algo.ChaCha20Poly1305:
		ct, tag, err = cipher.ChaCha20Poly1305Seal(key, nonce, plaintext)
	case algo.XSalsa20Poly1305:
		ct, tag, err = cipher.XSalsa20Poly1305Seal(key, nonce, plaintext)
	}
	if err != nil {
		return nil, err
	}
	return &Authenticated{Alg: alg, Nonce: nonce, Tag: tag, Ciphertext: ct}, nil
}

// Open verifies and decrypts b with key. Every authentication failure is
// reported as ErrDecryptionFailed and no plaintext is returned.
func Open(b *Authenticated, key []byte) ([]byte, error) {
	var (
		pt  []byte
		err error
	)
	switch b.Alg {
	case algo.ChaCha20Poly1305:
		pt, err = cipher.ChaCha20Poly1305Open(key, b.Nonce, b.Ciphertext, b.Tag)
	case algo.XSalsa20Poly1305:
		pt, err = cipher.XSalsa20Poly1305Open(key, b.Nonce, b.Ciphertext, b.Tag)
	default:
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	if err != nil {
		return nil, log.Error(ErrDecryptionFailed)
	}
	return pt, nil
}

// Marshal encodes b as CBOR.
func (b *Authenticated) Marshal() ([]byte, error) {
	enc, err := cbor.Marshal(b)
	if err != nil {
		return nil, log.Error(err)
	}
	return enc, nil
}

// UnmarshalAuthenticated decodes a CBOR encoded authenticated box. Unknown
// algorithm tags are rejected before the box is used.
func UnmarshalAuthenticated(data []byte) (*Authenticated, error) {
	var b Authenticated
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, log.Error(err)
	}
	if !b.Alg.Supported() {
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	return &b, nil
}
