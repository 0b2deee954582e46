// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"errors"

	"github.com/mutecomm/mutechan/log"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/secretbox"
)

// TagSize is the size of the authentication tag of all AEAD constructions
// wrapped here.
const TagSize = 16

// ErrAuthentication is returned when an AEAD tag does not verify.
var ErrAuthentication = errors.New("cipher: message authentication failed")

// ChaCha20Poly1305Seal encrypts and authenticates plaintext with the given
// 32-byte key and 12-byte nonce and returns the ciphertext and the tag
// separately.
func ChaCha20Poly1305Seal(key, nonce, plaintext []byte) (ciphertext, tag []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, log.Error(err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, nil, log.Errorf("cipher: ChaCha20Poly1305Seal(): len(nonce) = %d != %d",
			len(nonce), aead.NonceSize())
	}
	out := aead.Seal(nil, nonce, plaintext, nil)
	n := len(out) - TagSize
	return out[:n], out[n:], nil
}

// ChaCha20Poly1305Open verifies and decrypts ciphertext. It returns
// ErrAuthentication for every failure and never any partial plaintext.
func ChaCha20Poly1305Open(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil || len(nonce) != aead.NonceSize() || len(tag) != TagSize {
		return nil, ErrAuthentication
	}
	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// XSalsa20Poly1305Seal encrypts and authenticates plaintext as a NaCl
// secretbox with the given 32-byte key and 24-byte nonce.
func XSalsa20Poly1305Seal(key, nonce, plaintext []byte) (ciphertext, tag []byte, err error) {
	if len(key) != 32 {
		return nil, nil, log.Errorf("cipher: XSalsa20Poly1305Seal(): len(key) = %d != 32", len(key))
	}
	if len(nonce) != 24 {
		return nil, nil, log.Errorf("cipher: XSalsa20Poly1305Seal(): len(nonce) = %d != 24", len(nonce))
	}
	var k [32]byte
	var n [24]byte
	copy(k[:], key)
	copy(n[:], nonce)
	out := secretbox.Seal(nil, plaintext, &n, &k)
	return out[secretbox.Overhead:], out[:secretbox.Overhead], nil
}

// XSalsa20Poly1305Open verifies and decrypts a NaCl secretbox. It returns
// ErrAuthentication for every failure and never any partial plaintext.
func XSalsa20Poly1305Open(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	if len(key) != 32 || len(nonce) != 24 || len(tag) != secretbox.Overhead {
		return nil, ErrAuthentication
	}
	var k [32]byte
	var n [24]byte
	copy(k[:], key)
	copy(n[:], nonce)
	sealed := make([]byte, 0, len(ciphertext)+secretbox.Overhead)
	sealed = append(sealed, tag...)
	sealed = append(sealed, ciphertext...)
	plaintext, ok := secretbox.Open(nil, sealed, &n, &k)
	if !ok {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
